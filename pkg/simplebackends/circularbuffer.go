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

var circularBufferMetrics = metrics.NewSet("circular_buffer")

// CircularBuffer holds at most capacity items; Add overwrites the oldest
// slot once full (scenario CB-1). Internally a ring (head + count) so
// Add/Snapshot stay O(1) amortized / O(capacity) respectively; since the
// domain clock is strictly increasing, the ring's natural head-to-tail
// order already is the ts-ascending order every TimeQueryable method needs.
type CircularBuffer[T any] struct {
	mu        sync.RWMutex
	buf       []temporal.Item[T]
	head      int
	count     int
	capacity  int
	domainKey reflect.Type
	id        uuid.UUID
}

// NewCircularBuffer constructs a CircularBuffer holding at most capacity
// items. ErrConstructionInvalid if capacity <= 0.
func NewCircularBuffer[T any](capacity int) (*CircularBuffer[T], error) {
	if capacity <= 0 {
		return nil, errs.ErrConstructionInvalid
	}
	return &CircularBuffer[T]{
		buf:       make([]temporal.Item[T], capacity),
		capacity:  capacity,
		domainKey: clock.DomainKey[T](),
		id:        uuid.New(),
	}, nil
}

func (c *CircularBuffer[T]) idString() string { return c.id.String() }

// Add inserts v, overwriting the oldest slot once the buffer is full.
func (c *CircularBuffer[T]) Add(v T) {
	c.mu.Lock()
	item := temporal.NewAt(v, clock.NowForKey(c.domainKey))
	var overwrote bool
	if c.count < c.capacity {
		idx := (c.head + c.count) % c.capacity
		c.buf[idx] = item
		c.count++
	} else {
		c.buf[c.head] = item
		c.head = (c.head + 1) % c.capacity
		overwrote = true
	}
	n := c.count
	c.mu.Unlock()
	circularBufferMetrics.Inserted(c.idString(), 1)
	if overwrote {
		circularBufferMetrics.Removed(c.idString(), 1)
	}
	circularBufferMetrics.SetCount(c.idString(), n)
}

// Snapshot returns the stored values in insertion order (oldest first),
// post-overwrite.
func (c *CircularBuffer[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, c.count)
	for i := 0; i < c.count; i++ {
		out[i] = c.buf[(c.head+i)%c.capacity].Value
	}
	return out
}

// orderedItemsLocked materializes the ring into a ts-ascending slice. Must be
// called with at least a read lock held.
func (c *CircularBuffer[T]) orderedItemsLocked() []temporal.Item[T] {
	out := make([]temporal.Item[T], c.count)
	for i := 0; i < c.count; i++ {
		out[i] = c.buf[(c.head+i)%c.capacity]
	}
	return out
}

// rebuildLocked replaces the ring's contents with items (already
// ts-ascending), used by the removal operations below. Must be called with
// the write lock held.
func (c *CircularBuffer[T]) rebuildLocked(items []temporal.Item[T]) {
	c.head = 0
	c.count = len(items)
	copy(c.buf, items)
}

func (c *CircularBuffer[T]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[T], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.GetInRange(c.orderedItemsLocked(), from.Ticks, to.Ticks), nil
}

func (c *CircularBuffer[T]) GetBefore(t clock.Timestamp) []temporal.Item[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.GetBefore(c.orderedItemsLocked(), t.Ticks)
}

func (c *CircularBuffer[T]) GetAfter(t clock.Timestamp) []temporal.Item[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.GetAfter(c.orderedItemsLocked(), t.Ticks)
}

func (c *CircularBuffer[T]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.CountInRange(c.orderedItemsLocked(), from.Ticks, to.Ticks), nil
}

func (c *CircularBuffer[T]) CountSince(from clock.Timestamp) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.CountSince(c.orderedItemsLocked(), from.Ticks)
}

func (c *CircularBuffer[T]) GetEarliest() (temporal.Item[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.count == 0 {
		return temporal.Item[T]{}, false
	}
	return c.buf[c.head], true
}

func (c *CircularBuffer[T]) GetLatest() (temporal.Item[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.count == 0 {
		return temporal.Item[T]{}, false
	}
	return c.buf[(c.head+c.count-1)%c.capacity], true
}

func (c *CircularBuffer[T]) GetTimeSpan() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.GetTimeSpan(c.orderedItemsLocked())
}

func (c *CircularBuffer[T]) GetNearest(t clock.Timestamp) (temporal.Item[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ordered.GetNearest(c.orderedItemsLocked(), t.Ticks, false)
}

func (c *CircularBuffer[T]) RemoveOlderThan(t clock.Timestamp) {
	c.mu.Lock()
	items, removed := ordered.RemoveOlderThan(c.orderedItemsLocked(), t.Ticks)
	c.rebuildLocked(items)
	n := c.count
	c.mu.Unlock()
	if removed > 0 {
		circularBufferMetrics.Removed(c.idString(), removed)
		circularBufferMetrics.SetCount(c.idString(), n)
	}
}

func (c *CircularBuffer[T]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	c.mu.Lock()
	items, removed := ordered.RemoveRange(c.orderedItemsLocked(), from.Ticks, to.Ticks)
	c.rebuildLocked(items)
	n := c.count
	c.mu.Unlock()
	if removed > 0 {
		circularBufferMetrics.Removed(c.idString(), removed)
		circularBufferMetrics.SetCount(c.idString(), n)
	}
	return nil
}

func (c *CircularBuffer[T]) Clear() {
	c.mu.Lock()
	n := c.count
	c.head, c.count = 0, 0
	c.mu.Unlock()
	if n > 0 {
		circularBufferMetrics.Removed(c.idString(), n)
		circularBufferMetrics.SetCount(c.idString(), 0)
	}
}

func (c *CircularBuffer[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}
