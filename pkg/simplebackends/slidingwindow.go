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

var slidingWindowMetrics = metrics.NewSet("sliding_window_set")

// SlidingWindowSet holds distinct values stamped at insertion; RemoveExpired
// is the only operation that drops items older than windowSize relative to
// a caller-supplied now — reads (GetInRange and the rest of the uniform
// contract) never implicitly expire anything, per SPEC_FULL.md §13/§9.
type SlidingWindowSet[T comparable] struct {
	mu         sync.RWMutex
	items      []temporal.Item[T]
	windowSize time.Duration
	domainKey  reflect.Type
	id         uuid.UUID
}

// NewSlidingWindowSet constructs an empty SlidingWindowSet with the given
// fixed window size. ErrConstructionInvalid if windowSize <= 0.
func NewSlidingWindowSet[T comparable](windowSize time.Duration) (*SlidingWindowSet[T], error) {
	if windowSize <= 0 {
		return nil, errs.ErrConstructionInvalid
	}
	return &SlidingWindowSet[T]{windowSize: windowSize, domainKey: clock.DomainKey[T](), id: uuid.New()}, nil
}

func (w *SlidingWindowSet[T]) idString() string { return w.id.String() }

// Add inserts v, stamped via the current time. A duplicate value is a
// no-op.
func (w *SlidingWindowSet[T]) Add(v T) bool {
	w.mu.Lock()
	for _, it := range w.items {
		if it.Value == v {
			w.mu.Unlock()
			return false
		}
	}
	w.items = ordered.InsertSorted(w.items, temporal.NewAt(v, clock.NowForKey(w.domainKey)))
	n := len(w.items)
	w.mu.Unlock()
	slidingWindowMetrics.Inserted(w.idString(), 1)
	slidingWindowMetrics.SetCount(w.idString(), n)
	return true
}

// RemoveExpired drops every item with ts < now - windowSize.
func (w *SlidingWindowSet[T]) RemoveExpired(now clock.Timestamp) {
	cutoff := clock.NewTimestamp(now.Ticks - ticksFromDuration(w.windowSize))
	w.RemoveOlderThan(cutoff)
}

func ticksFromDuration(d time.Duration) clock.Tick {
	return clock.Tick(d.Nanoseconds() / 100)
}

func (w *SlidingWindowSet[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetInRange(w.items, from.Ticks, to.Ticks), nil
}

func (w *SlidingWindowSet[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetBefore(w.items, t.Ticks)
}

func (w *SlidingWindowSet[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetAfter(w.items, t.Ticks)
}

func (w *SlidingWindowSet[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.CountInRange(w.items, from.Ticks, to.Ticks), nil
}

func (w *SlidingWindowSet[T]) CountSince(from clock.Timestamp) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.CountSince(w.items, from.Ticks)
}

func (w *SlidingWindowSet[T]) GetEarliest() (temporal.Item[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetEarliest(w.items)
}

func (w *SlidingWindowSet[T]) GetLatest() (temporal.Item[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetLatest(w.items)
}

func (w *SlidingWindowSet[T]) GetTimeSpan() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetTimeSpan(w.items)
}

func (w *SlidingWindowSet[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return ordered.GetNearest(w.items, t.Ticks, false)
}

func (w *SlidingWindowSet[T]) RemoveOlderThan(t clock.Timestamp) {
	w.mu.Lock()
	var removed int
	w.items, removed = ordered.RemoveOlderThan(w.items, t.Ticks)
	n := len(w.items)
	w.mu.Unlock()
	if removed > 0 {
		slidingWindowMetrics.Removed(w.idString(), removed)
		slidingWindowMetrics.SetCount(w.idString(), n)
	}
}

func (w *SlidingWindowSet[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	w.mu.Lock()
	var removed int
	w.items, removed = ordered.RemoveRange(w.items, from.Ticks, to.Ticks)
	n := len(w.items)
	w.mu.Unlock()
	if removed > 0 {
		slidingWindowMetrics.Removed(w.idString(), removed)
		slidingWindowMetrics.SetCount(w.idString(), n)
	}
	return nil
}

func (w *SlidingWindowSet[T]) Clear() {
	w.mu.Lock()
	n := len(w.items)
	w.items = nil
	w.mu.Unlock()
	if n > 0 {
		slidingWindowMetrics.Removed(w.idString(), n)
		slidingWindowMetrics.SetCount(w.idString(), 0)
	}
}

func (w *SlidingWindowSet[T]) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}
