package character

import (
	"encoding/json"
	"time"
)

// Name identifies a character subsystem.
type Name string

const (
	Skills        Name = "skills"
	Classes       Name = "classes"
	AbilityScores Name = "abilityScores"
	Feats         Name = "feats"
	Combat        Name = "combat"
	Saves         Name = "saves"
	Spells        Name = "spells"
	Inventory     Name = "inventory"
)

// AllNames lists every subsystem in display order.
var AllNames = []Name{AbilityScores, Classes, Skills, Feats, Spells, Inventory, Combat, Saves}

// Valid reports whether n is a known subsystem.
func (n Name) Valid() bool {
	switch n {
	case Skills, Classes, AbilityScores, Feats, Combat, Saves, Spells, Inventory:
		return true
	}
	return false
}

// Path returns the backend URL segment for the subsystem.
func (n Name) Path() string {
	if n == AbilityScores {
		return "abilities"
	}
	return string(n)
}

// ParseName accepts either the subsystem name or its backend path.
func ParseName(s string) (Name, bool) {
	if s == "abilities" {
		return AbilityScores, true
	}
	n := Name(s)
	return n, n.Valid()
}

// State is the lifecycle position of a cache entry.
//
//	empty -> loading -> ready
//	ready -> stale -> loading -> ready | failed
//	failed -> loading
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateStale
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is a read-only copy of one cache entry.
type Snapshot struct {
	Name  Name
	State State
	// Data is the last successfully fetched document. It survives a failed
	// refetch and is cleared by invalidation.
	Data      json.RawMessage
	Err       error
	FetchedAt time.Time
}

// Loading reports whether a fetch is in flight.
func (s Snapshot) Loading() bool { return s.State == StateLoading }

// HasData reports whether cached data is available.
func (s Snapshot) HasData() bool { return len(s.Data) > 0 }

type entry struct {
	data      json.RawMessage
	err       error
	state     State
	version   uint64
	fetchedAt time.Time
}

func (e *entry) snapshot(name Name) Snapshot {
	return Snapshot{
		Name:      name,
		State:     e.state,
		Data:      e.data,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
	}
}
