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

var sortedListMetrics = metrics.NewSet("sorted_list")

// TemporalSortedList is a ts-ordered list permitting duplicate values,
// exposing the value-only projection ToSlice in addition to the uniform
// contract.
type TemporalSortedList[T any] struct {
	mu        sync.RWMutex
	items     []temporal.Item[T]
	domainKey reflect.Type
	id        uuid.UUID
}

// NewTemporalSortedList constructs an empty TemporalSortedList.
func NewTemporalSortedList[T any]() *TemporalSortedList[T] {
	return &TemporalSortedList[T]{domainKey: clock.DomainKey[T](), id: uuid.New()}
}

func (l *TemporalSortedList[T]) idString() string { return l.id.String() }

// Add inserts v at its ts-sorted position (always the tail, in practice,
// since ts is strictly increasing via the domain clock).
func (l *TemporalSortedList[T]) Add(v T) {
	l.mu.Lock()
	l.items = ordered.InsertSorted(l.items, temporal.NewAt(v, clock.NowForKey(l.domainKey)))
	n := len(l.items)
	l.mu.Unlock()
	sortedListMetrics.Inserted(l.idString(), 1)
	sortedListMetrics.SetCount(l.idString(), n)
}

// ToSlice returns the values in ascending-ts order.
func (l *TemporalSortedList[T]) ToSlice() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	for i, it := range l.items {
		out[i] = it.Value
	}
	return out
}

func (l *TemporalSortedList[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetInRange(l.items, from.Ticks, to.Ticks), nil
}

func (l *TemporalSortedList[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetBefore(l.items, t.Ticks)
}

func (l *TemporalSortedList[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetAfter(l.items, t.Ticks)
}

func (l *TemporalSortedList[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.CountInRange(l.items, from.Ticks, to.Ticks), nil
}

func (l *TemporalSortedList[T]) CountSince(from clock.Timestamp) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.CountSince(l.items, from.Ticks)
}

func (l *TemporalSortedList[T]) GetEarliest() (temporal.Item[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetEarliest(l.items)
}

func (l *TemporalSortedList[T]) GetLatest() (temporal.Item[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetLatest(l.items)
}

func (l *TemporalSortedList[T]) GetTimeSpan() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetTimeSpan(l.items)
}

func (l *TemporalSortedList[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ordered.GetNearest(l.items, t.Ticks, false)
}

func (l *TemporalSortedList[T]) RemoveOlderThan(t clock.Timestamp) {
	l.mu.Lock()
	var removed int
	l.items, removed = ordered.RemoveOlderThan(l.items, t.Ticks)
	n := len(l.items)
	l.mu.Unlock()
	if removed > 0 {
		sortedListMetrics.Removed(l.idString(), removed)
		sortedListMetrics.SetCount(l.idString(), n)
	}
}

func (l *TemporalSortedList[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	l.mu.Lock()
	var removed int
	l.items, removed = ordered.RemoveRange(l.items, from.Ticks, to.Ticks)
	n := len(l.items)
	l.mu.Unlock()
	if removed > 0 {
		sortedListMetrics.Removed(l.idString(), removed)
		sortedListMetrics.SetCount(l.idString(), n)
	}
	return nil
}

func (l *TemporalSortedList[T]) Clear() {
	l.mu.Lock()
	n := len(l.items)
	l.items = nil
	l.mu.Unlock()
	if n > 0 {
		sortedListMetrics.Removed(l.idString(), n)
		sortedListMetrics.SetCount(l.idString(), 0)
	}
}

func (l *TemporalSortedList[T]) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
