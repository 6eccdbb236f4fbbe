// Package temporal defines the immutable TemporalItem type and the
// TimeQueryable contract implemented by every backend in this module.
package temporal

import (
	"time"

	"github.com/grafana/temporalcol/pkg/clock"
)

// Item is an immutable (value, timestamp) pair. Ordering is by Timestamp
// ascending; equality is structural.
type Item[T any] struct {
	Value     T
	Timestamp clock.Timestamp
}

// New builds an Item, stamped via the domain-scoped monotonic clock for T.
func New[T any](value T) Item[T] {
	return Item[T]{Value: value, Timestamp: clock.Now[T]()}
}

// NewAt builds an Item with an explicit timestamp, used when the caller
// supplies its own (possibly externally produced, possibly colliding on
// ticks) timestamp rather than asking the clock for one.
func NewAt[T any](value T, ts clock.Timestamp) Item[T] {
	return Item[T]{Value: value, Timestamp: ts}
}

// Queryable is the uniform operation set every backend in this module
// exposes (spec §4.3). T is the stored element type (which, for backends
// whose natural unit is not the bare value — Multimap's (K,V) pairs,
// IntervalTree's intervals, PriorityQueue's (value, priority) pairs — is a
// small wrapper type defined by that backend).
type Queryable[T any] interface {
	// GetInRange returns items with ts in [from, to], ascending by ts.
	GetInRange(from, to clock.Timestamp) ([]Item[T], error)
	// GetBefore returns items with ts < t, ascending by ts.
	GetBefore(t clock.Timestamp) []Item[T]
	// GetAfter returns items with ts > t, ascending by ts.
	GetAfter(t clock.Timestamp) []Item[T]
	// CountInRange equals len(GetInRange(from, to)).
	CountInRange(from, to clock.Timestamp) (int, error)
	// CountSince counts items with ts >= from.
	CountSince(from clock.Timestamp) int
	// GetEarliest returns the item with the minimum ts, or !ok if empty.
	GetEarliest() (Item[T], bool)
	// GetLatest returns the item with the maximum ts, or !ok if empty.
	GetLatest() (Item[T], bool)
	// GetTimeSpan returns latest.ts - earliest.ts, or zero if fewer than 2 items.
	GetTimeSpan() time.Duration
	// GetNearest returns the item whose ts is closest to t. Tie policy is
	// backend-specific but stable across calls (see each backend's doc).
	GetNearest(t clock.Timestamp) (Item[T], bool)
	// RemoveOlderThan removes all items with ts < t.
	RemoveOlderThan(t clock.Timestamp)
	// RemoveRange removes all items with ts in [from, to].
	RemoveRange(from, to clock.Timestamp) error
	// Clear removes everything.
	Clear()
	// Count returns the number of stored items.
	Count() int
}
