// Package multimap implements a thread-safe per-key time series store: many
// stamped values per key, each key's own run kept sorted by ts, plus a
// global query surface that prunes whole runs before merging.
package multimap

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/grafana/temporalcol/internal/metrics"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
	"github.com/grafana/temporalcol/pkg/timenorm"
)

var mmMetrics = metrics.NewSet("multimap")

// KV is the (key, value) pair stored under each TemporalItem in a Multimap;
// it is the stored element type T a Multimap satisfies temporal.Queryable
// for.
type KV[K comparable, V any] struct {
	Key   K
	Value V
}

type run[K comparable, V any] struct {
	items []temporal.Item[KV[K, V]]
}

// Multimap is a thread-safe store of many stamped values per key, with both
// per-key and global time-range queries. Keys must be comparable and
// non-null; there are no constructor options.
type Multimap[K comparable, V any] struct {
	mu        sync.RWMutex
	runs      map[K]*run[K, V]
	count     int
	id        uuid.UUID
	domainKey reflect.Type
}

// New constructs an empty Multimap.
func New[K comparable, V any]() *Multimap[K, V] {
	return &Multimap[K, V]{
		runs:      make(map[K]*run[K, V]),
		id:        uuid.New(),
		domainKey: clock.DomainKey[KV[K, V]](),
	}
}

func (m *Multimap[K, V]) idString() string { return m.id.String() }

// AddValue stamps v under key k via the TimeSource for KV[K,V].
func (m *Multimap[K, V]) AddValue(k K, v V) temporal.Item[KV[K, V]] {
	item := temporal.NewAt(KV[K, V]{Key: k, Value: v}, clock.NowForKey(m.domainKey))
	m.Add(item)
	return item
}

// Add inserts a manually stamped item, keyed by item.Value.Key.
func (m *Multimap[K, V]) Add(item temporal.Item[KV[K, V]]) {
	m.mu.Lock()
	m.insertLocked(item)
	n := m.count
	m.mu.Unlock()
	mmMetrics.Inserted(m.idString(), 1)
	mmMetrics.SetCount(m.idString(), n)
}

// AddRange inserts every item in items.
func (m *Multimap[K, V]) AddRange(items []temporal.Item[KV[K, V]]) {
	m.mu.Lock()
	for _, item := range items {
		m.insertLocked(item)
	}
	n := m.count
	m.mu.Unlock()
	mmMetrics.Inserted(m.idString(), len(items))
	mmMetrics.SetCount(m.idString(), n)
}

// AddValues stamps and inserts every value in vs under key k.
func (m *Multimap[K, V]) AddValues(k K, vs []V) {
	m.mu.Lock()
	for _, v := range vs {
		item := temporal.NewAt(KV[K, V]{Key: k, Value: v}, clock.NowForKey(m.domainKey))
		m.insertLocked(item)
	}
	n := m.count
	m.mu.Unlock()
	mmMetrics.Inserted(m.idString(), len(vs))
	mmMetrics.SetCount(m.idString(), n)
}

func (m *Multimap[K, V]) insertLocked(item temporal.Item[KV[K, V]]) {
	k := item.Value.Key
	r, ok := m.runs[k]
	if !ok {
		r = &run[K, V]{}
		m.runs[k] = r
	}
	ticks := item.Timestamp.Ticks

	if len(r.items) == 0 || ticks >= r.items[len(r.items)-1].Timestamp.Ticks {
		r.items = append(r.items, item)
		m.count++
		return
	}

	pos := lowerBound(r.items, ticks)
	for pos < len(r.items) && r.items[pos].Timestamp.Ticks == ticks {
		pos++
	}
	r.items = append(r.items, temporal.Item[KV[K, V]]{})
	copy(r.items[pos+1:], r.items[pos:])
	r.items[pos] = item
	m.count++
}

func lowerBound[K comparable, V any](items []temporal.Item[KV[K, V]], ticks clock.Tick) int {
	return sort.Search(len(items), func(i int) bool { return items[i].Timestamp.Ticks >= ticks })
}

func upperBound[K comparable, V any](items []temporal.Item[KV[K, V]], ticks clock.Tick) int {
	return sort.Search(len(items), func(i int) bool { return items[i].Timestamp.Ticks > ticks })
}

// RemoveKey drops k and every value stored under it.
func (m *Multimap[K, V]) RemoveKey(k K) bool {
	m.mu.Lock()
	r, ok := m.runs[k]
	removed := 0
	if ok {
		removed = len(r.items)
		delete(m.runs, k)
		m.count -= removed
	}
	n := m.count
	m.mu.Unlock()
	if ok {
		mmMetrics.Removed(m.idString(), removed)
		mmMetrics.SetCount(m.idString(), n)
	}
	return ok
}

// GetValuesInRange returns the values stored under k with ts in [from, to],
// ascending by ts.
func (m *Multimap[K, V]) GetValuesInRange(k K, from, to clock.Timestamp) ([]V, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[k]
	if !ok {
		return nil, nil
	}
	lo := lowerBound(r.items, from.Ticks)
	hi := upperBound(r.items, to.Ticks)
	out := make([]V, 0, hi-lo)
	for _, it := range r.items[lo:hi] {
		out = append(out, it.Value.Value)
	}
	return out, nil
}

// RemoveKeyOlderThan removes values under k with ts < t, dropping the key
// entirely if nothing remains.
func (m *Multimap[K, V]) RemoveKeyOlderThan(k K, t clock.Timestamp) {
	m.mu.Lock()
	r, ok := m.runs[k]
	removed := 0
	if ok {
		idx := lowerBound(r.items, t.Ticks)
		removed = idx
		r.items = append([]temporal.Item[KV[K, V]]{}, r.items[idx:]...)
		if len(r.items) == 0 {
			delete(m.runs, k)
		}
		m.count -= removed
	}
	n := m.count
	m.mu.Unlock()
	if removed > 0 {
		mmMetrics.Removed(m.idString(), removed)
		mmMetrics.SetCount(m.idString(), n)
	}
}

// RemoveKeyRange removes values under k with ts in [from, to], dropping the
// key entirely if nothing remains.
func (m *Multimap[K, V]) RemoveKeyRange(k K, from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	m.mu.Lock()
	r, ok := m.runs[k]
	removed := 0
	if ok {
		lo := lowerBound(r.items, from.Ticks)
		hi := upperBound(r.items, to.Ticks)
		removed = hi - lo
		remaining := append([]temporal.Item[KV[K, V]]{}, r.items[:lo]...)
		remaining = append(remaining, r.items[hi:]...)
		r.items = remaining
		if len(r.items) == 0 {
			delete(m.runs, k)
		}
		m.count -= removed
	}
	n := m.count
	m.mu.Unlock()
	if removed > 0 {
		mmMetrics.Removed(m.idString(), removed)
		mmMetrics.SetCount(m.idString(), n)
	}
	return nil
}

// --- global temporal.Queryable[KV[K,V]] surface ---

// GetInRange returns every (key, value) pair across all keys with ts in
// [from, to], ascending by ts, pruning whole runs that fall outside the
// window before merging.
func (m *Multimap[K, V]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[KV[K, V]], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Item[KV[K, V]]
	for _, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		if r.items[len(r.items)-1].Timestamp.Ticks < from.Ticks || r.items[0].Timestamp.Ticks > to.Ticks {
			continue
		}
		lo := lowerBound(r.items, from.Ticks)
		hi := upperBound(r.items, to.Ticks)
		out = append(out, r.items[lo:hi]...)
	}
	if len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Ticks < out[j].Timestamp.Ticks })
	}
	return out, nil
}

// GetBefore returns every pair with ts < t, ascending by ts.
func (m *Multimap[K, V]) GetBefore(t clock.Timestamp) []temporal.Item[KV[K, V]] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Item[KV[K, V]]
	for _, r := range m.runs {
		if len(r.items) == 0 || r.items[0].Timestamp.Ticks >= t.Ticks {
			continue
		}
		hi := lowerBound(r.items, t.Ticks)
		out = append(out, r.items[:hi]...)
	}
	if len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Ticks < out[j].Timestamp.Ticks })
	}
	return out
}

// GetAfter returns every pair with ts > t, ascending by ts.
func (m *Multimap[K, V]) GetAfter(t clock.Timestamp) []temporal.Item[KV[K, V]] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []temporal.Item[KV[K, V]]
	for _, r := range m.runs {
		if len(r.items) == 0 || r.items[len(r.items)-1].Timestamp.Ticks <= t.Ticks {
			continue
		}
		lo := upperBound(r.items, t.Ticks)
		out = append(out, r.items[lo:]...)
	}
	if len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Ticks < out[j].Timestamp.Ticks })
	}
	return out
}

// CountInRange equals len(GetInRange(from, to)).
func (m *Multimap[K, V]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		if r.items[len(r.items)-1].Timestamp.Ticks < from.Ticks || r.items[0].Timestamp.Ticks > to.Ticks {
			continue
		}
		lo := lowerBound(r.items, from.Ticks)
		hi := upperBound(r.items, to.Ticks)
		n += hi - lo
	}
	return n, nil
}

// CountSince counts pairs with ts >= from.
func (m *Multimap[K, V]) CountSince(from clock.Timestamp) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.runs {
		if len(r.items) == 0 || r.items[len(r.items)-1].Timestamp.Ticks < from.Ticks {
			continue
		}
		lo := lowerBound(r.items, from.Ticks)
		n += len(r.items) - lo
	}
	return n
}

// GetEarliest returns the pair with the minimum ts across all keys.
func (m *Multimap[K, V]) GetEarliest() (temporal.Item[KV[K, V]], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *temporal.Item[KV[K, V]]
	for _, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		if best == nil || r.items[0].Timestamp.Ticks < best.Timestamp.Ticks {
			best = &r.items[0]
		}
	}
	if best == nil {
		return temporal.Item[KV[K, V]]{}, false
	}
	return *best, true
}

// GetLatest returns the pair with the maximum ts across all keys.
func (m *Multimap[K, V]) GetLatest() (temporal.Item[KV[K, V]], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *temporal.Item[KV[K, V]]
	for _, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		last := &r.items[len(r.items)-1]
		if best == nil || last.Timestamp.Ticks > best.Timestamp.Ticks {
			best = last
		}
	}
	if best == nil {
		return temporal.Item[KV[K, V]]{}, false
	}
	return *best, true
}

// GetTimeSpan returns latest.ts - earliest.ts across all keys, or zero if
// fewer than 2 items total.
func (m *Multimap[K, V]) GetTimeSpan() time.Duration {
	earliest, ok := m.GetEarliest()
	if !ok {
		return 0
	}
	latest, _ := m.GetLatest()
	if earliest.Timestamp.Equal(latest.Timestamp) {
		return 0
	}
	return latest.Timestamp.Sub(earliest.Timestamp)
}

// GetNearest returns the pair across all keys whose ts is closest to t. On
// an exact tie it prefers the earlier item (this backend's pinned policy,
// see SPEC_FULL.md §14).
func (m *Multimap[K, V]) GetNearest(t clock.Timestamp) (temporal.Item[KV[K, V]], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *temporal.Item[KV[K, V]]
	var bestDist clock.Tick
	consider := func(it *temporal.Item[KV[K, V]]) {
		d := it.Timestamp.Ticks - t.Ticks
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist || (d == bestDist && it.Timestamp.Ticks < best.Timestamp.Ticks) {
			best = it
			bestDist = d
		}
	}

	for _, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		pos := lowerBound(r.items, t.Ticks)
		if pos < len(r.items) {
			consider(&r.items[pos])
		}
		if pos > 0 {
			consider(&r.items[pos-1])
		}
	}
	if best == nil {
		return temporal.Item[KV[K, V]]{}, false
	}
	return *best, true
}

// RemoveOlderThan removes, across every key, items with ts < t; keys left
// with no items are dropped.
func (m *Multimap[K, V]) RemoveOlderThan(t clock.Timestamp) {
	m.mu.Lock()
	removed := 0
	for k, r := range m.runs {
		idx := lowerBound(r.items, t.Ticks)
		if idx == 0 {
			continue
		}
		removed += idx
		r.items = append([]temporal.Item[KV[K, V]]{}, r.items[idx:]...)
		if len(r.items) == 0 {
			delete(m.runs, k)
		}
	}
	m.count -= removed
	n := m.count
	m.mu.Unlock()
	if removed > 0 {
		mmMetrics.Removed(m.idString(), removed)
		mmMetrics.SetCount(m.idString(), n)
	}
}

// RemoveRange removes, across every key, items with ts in [from, to]; keys
// left with no items are dropped.
func (m *Multimap[K, V]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	m.mu.Lock()
	removed := 0
	for k, r := range m.runs {
		lo := lowerBound(r.items, from.Ticks)
		hi := upperBound(r.items, to.Ticks)
		if hi == lo {
			continue
		}
		removed += hi - lo
		remaining := append([]temporal.Item[KV[K, V]]{}, r.items[:lo]...)
		remaining = append(remaining, r.items[hi:]...)
		r.items = remaining
		if len(r.items) == 0 {
			delete(m.runs, k)
		}
	}
	m.count -= removed
	n := m.count
	m.mu.Unlock()
	if removed > 0 {
		mmMetrics.Removed(m.idString(), removed)
		mmMetrics.SetCount(m.idString(), n)
	}
	return nil
}

// Clear removes every key and value.
func (m *Multimap[K, V]) Clear() {
	m.mu.Lock()
	n := m.count
	m.runs = make(map[K]*run[K, V])
	m.count = 0
	m.mu.Unlock()
	mmMetrics.Removed(m.idString(), n)
	mmMetrics.SetCount(m.idString(), 0)
}

// Count returns the total number of stored (key, value) pairs.
func (m *Multimap[K, V]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Keys returns a snapshot of every key currently holding at least one value.
func (m *Multimap[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]K, 0, len(m.runs))
	for k := range m.runs {
		out = append(out, k)
	}
	return out
}

// Dump renders a human-readable snapshot of every run, for debugging — not
// part of the query contract.
func (m *Multimap[K, V]) Dump() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := table.NewWriter()
	t.AppendHeader(table.Row{"key", "count", "min_ticks", "max_ticks"})
	for k, r := range m.runs {
		if len(r.items) == 0 {
			continue
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%v", k), len(r.items),
			int64(r.items[0].Timestamp.Ticks), int64(r.items[len(r.items)-1].Timestamp.Ticks),
		})
	}
	return fmt.Sprintf("Multimap %s (%d items, %d keys)\n%s", m.idString(), m.count, len(m.runs), t.Render())
}
