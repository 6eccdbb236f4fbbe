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

var dictMetrics = metrics.NewSet("dictionary")

// KVPair is TemporalDictionary's stored element: a key with its current
// value.
type KVPair[K comparable, V any] struct {
	Key   K
	Value V
}

// TemporalDictionary is a ts-ordered key/value store where Set restamps and
// reorders a key to "now" on every write, so the ts order is also the
// last-touched order.
type TemporalDictionary[K comparable, V any] struct {
	mu        sync.RWMutex
	items     []temporal.Item[KVPair[K, V]]
	domainKey reflect.Type
	id        uuid.UUID
}

// NewTemporalDictionary constructs an empty TemporalDictionary.
func NewTemporalDictionary[K comparable, V any]() *TemporalDictionary[K, V] {
	return &TemporalDictionary[K, V]{domainKey: clock.DomainKey[KVPair[K, V]](), id: uuid.New()}
}

func (d *TemporalDictionary[K, V]) idString() string { return d.id.String() }

// Set stamps/overwrites the entry for k: any prior entry for k is dropped
// before the new value is inserted at the current time.
func (d *TemporalDictionary[K, V]) Set(k K, v V) {
	d.mu.Lock()
	for i, it := range d.items {
		if it.Value.Key == k {
			d.items = append(d.items[:i], d.items[i+1:]...)
			break
		}
	}
	d.items = ordered.InsertSorted(d.items, temporal.NewAt(KVPair[K, V]{Key: k, Value: v}, clock.NowForKey(d.domainKey)))
	n := len(d.items)
	d.mu.Unlock()
	dictMetrics.Inserted(d.idString(), 1)
	dictMetrics.SetCount(d.idString(), n)
}

// Get returns the current value for k, if present.
func (d *TemporalDictionary[K, V]) Get(k K) (V, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, it := range d.items {
		if it.Value.Key == k {
			return it.Value.Value, true
		}
	}
	var zero V
	return zero, false
}

// Delete removes the entry for k. Returns false if k was not present.
func (d *TemporalDictionary[K, V]) Delete(k K) bool {
	d.mu.Lock()
	idx := -1
	for i, it := range d.items {
		if it.Value.Key == k {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return false
	}
	d.items = append(d.items[:idx], d.items[idx+1:]...)
	n := len(d.items)
	d.mu.Unlock()
	dictMetrics.Removed(d.idString(), 1)
	dictMetrics.SetCount(d.idString(), n)
	return true
}

func (d *TemporalDictionary[K, V]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[KVPair[K, V]], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetInRange(d.items, from.Ticks, to.Ticks), nil
}

func (d *TemporalDictionary[K, V]) GetBefore(t clock.Timestamp) []temporal.Item[KVPair[K, V]] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetBefore(d.items, t.Ticks)
}

func (d *TemporalDictionary[K, V]) GetAfter(t clock.Timestamp) []temporal.Item[KVPair[K, V]] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetAfter(d.items, t.Ticks)
}

func (d *TemporalDictionary[K, V]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.CountInRange(d.items, from.Ticks, to.Ticks), nil
}

func (d *TemporalDictionary[K, V]) CountSince(from clock.Timestamp) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.CountSince(d.items, from.Ticks)
}

func (d *TemporalDictionary[K, V]) GetEarliest() (temporal.Item[KVPair[K, V]], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetEarliest(d.items)
}

func (d *TemporalDictionary[K, V]) GetLatest() (temporal.Item[KVPair[K, V]], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetLatest(d.items)
}

func (d *TemporalDictionary[K, V]) GetTimeSpan() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetTimeSpan(d.items)
}

func (d *TemporalDictionary[K, V]) GetNearest(t clock.Timestamp) (temporal.Item[KVPair[K, V]], bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return ordered.GetNearest(d.items, t.Ticks, false)
}

func (d *TemporalDictionary[K, V]) RemoveOlderThan(t clock.Timestamp) {
	d.mu.Lock()
	var removed int
	d.items, removed = ordered.RemoveOlderThan(d.items, t.Ticks)
	n := len(d.items)
	d.mu.Unlock()
	if removed > 0 {
		dictMetrics.Removed(d.idString(), removed)
		dictMetrics.SetCount(d.idString(), n)
	}
}

func (d *TemporalDictionary[K, V]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	d.mu.Lock()
	var removed int
	d.items, removed = ordered.RemoveRange(d.items, from.Ticks, to.Ticks)
	n := len(d.items)
	d.mu.Unlock()
	if removed > 0 {
		dictMetrics.Removed(d.idString(), removed)
		dictMetrics.SetCount(d.idString(), n)
	}
	return nil
}

func (d *TemporalDictionary[K, V]) Clear() {
	d.mu.Lock()
	n := len(d.items)
	d.items = nil
	d.mu.Unlock()
	if n > 0 {
		dictMetrics.Removed(d.idString(), n)
		dictMetrics.SetCount(d.idString(), 0)
	}
}

func (d *TemporalDictionary[K, V]) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}
