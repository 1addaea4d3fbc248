// Package readiness polls the backend until it reports that initialization
// finished.
//
// Polls run on an exponential schedule (500ms, x1.5, capped at 5s) and give
// up after a total wait of 60s. A failed poll only means "not ready yet".
package readiness

import (
	"context"
	"errors"
	"time"

	"savesmith/internal/backend"
	"savesmith/internal/logging"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrTimeout is returned when the backend is not ready within Policy.MaxWait.
var ErrTimeout = errors.New("backend did not become ready in time")

// Stage is the backend initialization stage.
type Stage = backend.Stage

// StatusFetcher returns the backend initialization status.
type StatusFetcher interface {
	Status(ctx context.Context) (*backend.Status, error)
}

// Policy is the polling schedule.
type Policy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxWait         time.Duration
	// RequestTimeout bounds a single status call. Zero means no bound
	// beyond the caller's context.
	RequestTimeout time.Duration
}

// DefaultPolicy returns the standard schedule.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      1.5,
		MaxInterval:     5 * time.Second,
		MaxWait:         60 * time.Second,
		RequestTimeout:  2 * time.Second,
	}
}

// newBackOff returns the interval generator for p. Jitter is disabled so
// the schedule is exact.
func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxInterval,
	}
	b.Reset()
	return b
}

// Update reports one poll attempt.
type Update struct {
	// Status is nil when the poll failed.
	Status  *backend.Status
	Attempt int
	Elapsed time.Duration
	// Err is the poll failure, if any. It is informational only.
	Err error
}

// Message returns the text to show for this update.
func (u Update) Message() string {
	if u.Status == nil {
		return "Waiting for backend..."
	}
	return u.Status.Stage.Message()
}

// Progress returns the reported progress percentage, 0 if unknown.
func (u Update) Progress() float64 {
	if u.Status == nil {
		return 0
	}
	return u.Status.Progress
}

// Poller waits for backend readiness.
type Poller struct {
	fetcher StatusFetcher
	clock   clockwork.Clock
	policy  Policy
	logger  *zap.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithPolicy sets the polling schedule.
func WithPolicy(policy Policy) Option {
	return func(p *Poller) { p.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a poller over fetcher.
func NewPoller(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		clock:   clockwork.NewRealClock(),
		policy:  DefaultPolicy(),
		logger:  logging.Get(logging.CategoryPoller),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until the backend is ready (nil), MaxWait elapses (ErrTimeout)
// or ctx is cancelled (ctx.Err()). onUpdate, if non-nil, is called after
// every completed poll on the calling goroutine. Nothing is reported for a
// poll whose context was cancelled while in flight.
func (p *Poller) Run(ctx context.Context, onUpdate func(Update)) error {
	start := p.clock.Now()
	schedule := p.policy.newBackOff()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		status, err := p.poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		elapsed := p.clock.Since(start)

		if onUpdate != nil {
			onUpdate(Update{Status: status, Attempt: attempt, Elapsed: elapsed, Err: err})
		}

		if err == nil && status.Ready() {
			p.logger.Info("backend ready", zap.Int("attempts", attempt), zap.Duration("elapsed", elapsed))
			return nil
		}
		if err != nil {
			p.logger.Debug("status poll failed", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			p.logger.Debug("backend not ready",
				zap.Int("attempt", attempt),
				zap.String("stage", string(status.Stage)),
				zap.Float64("progress", status.Progress))
		}

		if elapsed >= p.policy.MaxWait {
			p.logger.Warn("backend readiness timed out", zap.Int("attempts", attempt), zap.Duration("elapsed", elapsed))
			return ErrTimeout
		}

		wait := schedule.NextBackOff()
		if remaining := p.policy.MaxWait - elapsed; wait > remaining {
			wait = remaining
		}

		timer := p.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

func (p *Poller) poll(ctx context.Context) (*backend.Status, error) {
	if p.policy.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.policy.RequestTimeout)
		defer cancel()
	}
	return p.fetcher.Status(ctx)
}

// Start runs the poller in the background and returns its handle.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		updates: make(chan Update, 8),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	go func() {
		defer cancel()
		err := p.Run(ctx, h.publish)
		h.err = err
		close(h.updates)
		close(h.done)
	}()

	return h
}
