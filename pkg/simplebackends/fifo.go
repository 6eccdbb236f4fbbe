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

var fifoMetrics = metrics.NewSet("fifo_queue")

// TemporalFIFOQueue is a first-in-first-out queue: Enqueue always appends
// (ts is strictly increasing via the domain clock, so append preserves
// order without a binary-search insert), TryDequeue/Dequeue pop the head.
type TemporalFIFOQueue[T any] struct {
	mu        sync.Mutex
	items     []temporal.Item[T]
	domainKey reflect.Type
	id        uuid.UUID
}

// NewTemporalFIFOQueue constructs an empty TemporalFIFOQueue.
func NewTemporalFIFOQueue[T any]() *TemporalFIFOQueue[T] {
	return &TemporalFIFOQueue[T]{domainKey: clock.DomainKey[T](), id: uuid.New()}
}

func (q *TemporalFIFOQueue[T]) idString() string { return q.id.String() }

// Enqueue appends v at the tail, stamped via the current time.
func (q *TemporalFIFOQueue[T]) Enqueue(v T) {
	q.mu.Lock()
	q.items = append(q.items, temporal.NewAt(v, clock.NowForKey(q.domainKey)))
	n := len(q.items)
	q.mu.Unlock()
	fifoMetrics.Inserted(q.idString(), 1)
	fifoMetrics.SetCount(q.idString(), n)
}

// TryDequeue removes and returns the head, or !ok if empty.
func (q *TemporalFIFOQueue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	v := q.items[0].Value
	q.items = q.items[1:]
	n := len(q.items)
	q.mu.Unlock()
	fifoMetrics.Removed(q.idString(), 1)
	fifoMetrics.SetCount(q.idString(), n)
	return v, true
}

// Dequeue is TryDequeue but fails ErrEmptyContainer instead of reporting
// !ok.
func (q *TemporalFIFOQueue[T]) Dequeue() (T, error) {
	v, ok := q.TryDequeue()
	if !ok {
		var zero T
		return zero, errs.ErrEmptyContainer
	}
	return v, nil
}

func (q *TemporalFIFOQueue[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetInRange(q.items, from.Ticks, to.Ticks), nil
}

func (q *TemporalFIFOQueue[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetBefore(q.items, t.Ticks)
}

func (q *TemporalFIFOQueue[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetAfter(q.items, t.Ticks)
}

func (q *TemporalFIFOQueue[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.CountInRange(q.items, from.Ticks, to.Ticks), nil
}

func (q *TemporalFIFOQueue[T]) CountSince(from clock.Timestamp) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.CountSince(q.items, from.Ticks)
}

func (q *TemporalFIFOQueue[T]) GetEarliest() (temporal.Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetEarliest(q.items)
}

func (q *TemporalFIFOQueue[T]) GetLatest() (temporal.Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetLatest(q.items)
}

func (q *TemporalFIFOQueue[T]) GetTimeSpan() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetTimeSpan(q.items)
}

func (q *TemporalFIFOQueue[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ordered.GetNearest(q.items, t.Ticks, false)
}

func (q *TemporalFIFOQueue[T]) RemoveOlderThan(t clock.Timestamp) {
	q.mu.Lock()
	var removed int
	q.items, removed = ordered.RemoveOlderThan(q.items, t.Ticks)
	n := len(q.items)
	q.mu.Unlock()
	if removed > 0 {
		fifoMetrics.Removed(q.idString(), removed)
		fifoMetrics.SetCount(q.idString(), n)
	}
}

func (q *TemporalFIFOQueue[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	q.mu.Lock()
	var removed int
	q.items, removed = ordered.RemoveRange(q.items, from.Ticks, to.Ticks)
	n := len(q.items)
	q.mu.Unlock()
	if removed > 0 {
		fifoMetrics.Removed(q.idString(), removed)
		fifoMetrics.SetCount(q.idString(), n)
	}
	return nil
}

func (q *TemporalFIFOQueue[T]) Clear() {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.mu.Unlock()
	if n > 0 {
		fifoMetrics.Removed(q.idString(), n)
		fifoMetrics.SetCount(q.idString(), 0)
	}
}

func (q *TemporalFIFOQueue[T]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
