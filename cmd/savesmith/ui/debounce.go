package ui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
)

// DebouncedMsg is delivered when a debounced value settles.
type DebouncedMsg struct {
	Key   string
	Gen   uint64
	Value string
}

// Debouncer delays rapid input (filter keystrokes) until it goes quiet.
// Each Trigger supersedes the previous one; only the latest DebouncedMsg
// is Current.
type Debouncer struct {
	mu       sync.Mutex
	key      string
	gen      uint64
	duration time.Duration
	clock    clockwork.Clock
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(key string, duration time.Duration, c clockwork.Clock) *Debouncer {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Debouncer{key: key, duration: duration, clock: c}
}

// Trigger returns a command that emits value after the quiet period.
func (d *Debouncer) Trigger(value string) tea.Cmd {
	d.mu.Lock()
	d.gen++
	gen, key := d.gen, d.key
	var wait <-chan time.Time
	if d.duration > 0 {
		wait = d.clock.After(d.duration)
	}
	d.mu.Unlock()

	return func() tea.Msg {
		if wait != nil {
			<-wait
		}
		return DebouncedMsg{Key: key, Gen: gen, Value: value}
	}
}

// Current reports whether msg is the latest trigger of this debouncer.
func (d *Debouncer) Current(msg DebouncedMsg) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return msg.Key == d.key && msg.Gen == d.gen
}

// Cancel makes every pending trigger stale.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
}
