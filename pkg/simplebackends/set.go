// Package simplebackends implements the backends spec.md specifies "only
// through the uniform contract": a Set, a Dictionary, a FIFO queue, a LIFO
// stack, a sorted list, a fixed-capacity circular buffer and a
// fixed-window set. Six of them share the same storage shape — one
// ts-ascending slice guarded by a single mutex — and delegate every
// TimeQueryable operation to internal/ordered, the same binary-search
// technique segmentedarray.go applies per-segment. CircularBuffer instead
// keeps a fixed-size ring, reads its earliest/latest slots directly, and
// materializes the ring into ts order for the other operations.
package simplebackends

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grafana/temporalcol/internal/metrics"
	"github.com/grafana/temporalcol/internal/ordered"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
	"github.com/grafana/temporalcol/pkg/timenorm"
)

var setMetrics = metrics.NewSet("set")

// TemporalSet is a ts-ordered collection of distinct comparable values.
type TemporalSet[T comparable] struct {
	mu        sync.RWMutex
	items     []temporal.Item[T]
	domainKey reflect.Type
	id        uuid.UUID
}

// NewTemporalSet constructs an empty TemporalSet.
func NewTemporalSet[T comparable]() *TemporalSet[T] {
	return &TemporalSet[T]{domainKey: clock.DomainKey[T](), id: uuid.New()}
}

func (s *TemporalSet[T]) idString() string { return s.id.String() }

// Add inserts v, stamped via the current time. Returns false if v is
// already present.
func (s *TemporalSet[T]) Add(v T) bool {
	s.mu.Lock()
	for _, it := range s.items {
		if it.Value == v {
			s.mu.Unlock()
			return false
		}
	}
	s.items = ordered.InsertSorted(s.items, temporal.NewAt(v, clock.NowForKey(s.domainKey)))
	n := len(s.items)
	s.mu.Unlock()
	setMetrics.Inserted(s.idString(), 1)
	setMetrics.SetCount(s.idString(), n)
	return true
}

// Contains reports whether v is stored.
func (s *TemporalSet[T]) Contains(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Value == v {
			return true
		}
	}
	return false
}

// Remove deletes v. Returns false if v was not present.
func (s *TemporalSet[T]) Remove(v T) bool {
	s.mu.Lock()
	idx := -1
	for i, it := range s.items {
		if it.Value == v {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	n := len(s.items)
	s.mu.Unlock()
	setMetrics.Removed(s.idString(), 1)
	setMetrics.SetCount(s.idString(), n)
	return true
}

func (s *TemporalSet[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetInRange(s.items, from.Ticks, to.Ticks), nil
}

func (s *TemporalSet[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetBefore(s.items, t.Ticks)
}

func (s *TemporalSet[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetAfter(s.items, t.Ticks)
}

func (s *TemporalSet[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.CountInRange(s.items, from.Ticks, to.Ticks), nil
}

func (s *TemporalSet[T]) CountSince(from clock.Timestamp) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.CountSince(s.items, from.Ticks)
}

func (s *TemporalSet[T]) GetEarliest() (temporal.Item[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetEarliest(s.items)
}

func (s *TemporalSet[T]) GetLatest() (temporal.Item[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetLatest(s.items)
}

func (s *TemporalSet[T]) GetTimeSpan() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetTimeSpan(s.items)
}

// GetNearest prefers the earlier item on an exact tie, matching
// SegmentedArray and Multimap's policy (see SPEC_FULL.md §14).
func (s *TemporalSet[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ordered.GetNearest(s.items, t.Ticks, false)
}

func (s *TemporalSet[T]) RemoveOlderThan(t clock.Timestamp) {
	s.mu.Lock()
	var removed int
	s.items, removed = ordered.RemoveOlderThan(s.items, t.Ticks)
	n := len(s.items)
	s.mu.Unlock()
	if removed > 0 {
		setMetrics.Removed(s.idString(), removed)
		setMetrics.SetCount(s.idString(), n)
	}
}

func (s *TemporalSet[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	var removed int
	s.items, removed = ordered.RemoveRange(s.items, from.Ticks, to.Ticks)
	n := len(s.items)
	s.mu.Unlock()
	if removed > 0 {
		setMetrics.Removed(s.idString(), removed)
		setMetrics.SetCount(s.idString(), n)
	}
	return nil
}

func (s *TemporalSet[T]) Clear() {
	s.mu.Lock()
	n := len(s.items)
	s.items = nil
	s.mu.Unlock()
	if n > 0 {
		setMetrics.Removed(s.idString(), n)
		setMetrics.SetCount(s.idString(), 0)
	}
}

func (s *TemporalSet[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
