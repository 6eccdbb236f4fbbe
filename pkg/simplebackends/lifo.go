package simplebackends

import (
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/internal/metrics"
	"github.com/grafana/temporalcol/internal/ordered"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
	"github.com/grafana/temporalcol/pkg/timenorm"
)

var lifoMetrics = metrics.NewSet("lifo_stack")

// TemporalLIFOStack mirrors TemporalFIFOQueue: Push appends at the tail
// (ts strictly increasing), but Pop/TryPop remove from the tail too, so the
// most recently pushed item comes off first.
type TemporalLIFOStack[T any] struct {
	mu        sync.Mutex
	items     []temporal.Item[T]
	domainKey reflect.Type
	id        uuid.UUID
}

// NewTemporalLIFOStack constructs an empty TemporalLIFOStack.
func NewTemporalLIFOStack[T any]() *TemporalLIFOStack[T] {
	return &TemporalLIFOStack[T]{domainKey: clock.DomainKey[T](), id: uuid.New()}
}

func (s *TemporalLIFOStack[T]) idString() string { return s.id.String() }

// Push appends v, stamped via the current time.
func (s *TemporalLIFOStack[T]) Push(v T) {
	s.mu.Lock()
	s.items = append(s.items, temporal.NewAt(v, clock.NowForKey(s.domainKey)))
	n := len(s.items)
	s.mu.Unlock()
	lifoMetrics.Inserted(s.idString(), 1)
	lifoMetrics.SetCount(s.idString(), n)
}

// TryPop removes and returns the most recently pushed item, or !ok if empty.
func (s *TemporalLIFOStack[T]) TryPop() (T, bool) {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	last := len(s.items) - 1
	v := s.items[last].Value
	s.items = s.items[:last]
	n := len(s.items)
	s.mu.Unlock()
	lifoMetrics.Removed(s.idString(), 1)
	lifoMetrics.SetCount(s.idString(), n)
	return v, true
}

// Pop is TryPop but fails ErrEmptyContainer instead of reporting !ok.
func (s *TemporalLIFOStack[T]) Pop() (T, error) {
	v, ok := s.TryPop()
	if !ok {
		var zero T
		return zero, errs.ErrEmptyContainer
	}
	return v, nil
}

func (s *TemporalLIFOStack[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetInRange(s.items, from.Ticks, to.Ticks), nil
}

func (s *TemporalLIFOStack[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetBefore(s.items, t.Ticks)
}

func (s *TemporalLIFOStack[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetAfter(s.items, t.Ticks)
}

func (s *TemporalLIFOStack[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.CountInRange(s.items, from.Ticks, to.Ticks), nil
}

func (s *TemporalLIFOStack[T]) CountSince(from clock.Timestamp) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.CountSince(s.items, from.Ticks)
}

func (s *TemporalLIFOStack[T]) GetEarliest() (temporal.Item[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetEarliest(s.items)
}

func (s *TemporalLIFOStack[T]) GetLatest() (temporal.Item[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetLatest(s.items)
}

func (s *TemporalLIFOStack[T]) GetTimeSpan() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetTimeSpan(s.items)
}

func (s *TemporalLIFOStack[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.GetNearest(s.items, t.Ticks, false)
}

func (s *TemporalLIFOStack[T]) RemoveOlderThan(t clock.Timestamp) {
	s.mu.Lock()
	var removed int
	s.items, removed = ordered.RemoveOlderThan(s.items, t.Ticks)
	n := len(s.items)
	s.mu.Unlock()
	if removed > 0 {
		lifoMetrics.Removed(s.idString(), removed)
		lifoMetrics.SetCount(s.idString(), n)
	}
}

func (s *TemporalLIFOStack[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	s.mu.Lock()
	var removed int
	s.items, removed = ordered.RemoveRange(s.items, from.Ticks, to.Ticks)
	n := len(s.items)
	s.mu.Unlock()
	if removed > 0 {
		lifoMetrics.Removed(s.idString(), removed)
		lifoMetrics.SetCount(s.idString(), n)
	}
	return nil
}

func (s *TemporalLIFOStack[T]) Clear() {
	s.mu.Lock()
	n := len(s.items)
	s.items = nil
	s.mu.Unlock()
	if n > 0 {
		lifoMetrics.Removed(s.idString(), n)
		lifoMetrics.SetCount(s.idString(), 0)
	}
}

func (s *TemporalLIFOStack[T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
