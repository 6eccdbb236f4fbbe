// Package pqueue implements a thread-safe priority queue ordered by
// (priority ascending, insertion-ts ascending, stable sequence) with a
// secondary time-range query surface, built on container/heap.
package pqueue

import (
	"cmp"
	"container/heap"
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

var pqMetrics = metrics.NewSet("priority_queue")

// Entry is the stored element type a Queue satisfies temporal.Queryable
// for: a value paired with the priority it was enqueued under.
type Entry[T any, P cmp.Ordered] struct {
	Value    T
	Priority P
}

type pqItem[T any, P cmp.Ordered] struct {
	value    T
	priority P
	ts       clock.Timestamp
	seq      uint64
}

// innerHeap is the container/heap.Interface implementation the Queue holds
// its backing array as. Ordering is lexicographic on (priority, ts, seq) so
// that equal priorities break ties by insertion order and, failing that, by
// a strictly increasing sequence number — a strict weak ordering per spec
// §3.
type innerHeap[T any, P cmp.Ordered] []*pqItem[T, P]

func (h innerHeap[T, P]) Len() int { return len(h) }

func (h innerHeap[T, P]) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.ts.Ticks != b.ts.Ticks {
		return a.ts.Ticks < b.ts.Ticks
	}
	return a.seq < b.seq
}

func (h innerHeap[T, P]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *innerHeap[T, P]) Push(x any) { *h = append(*h, x.(*pqItem[T, P])) }

func (h *innerHeap[T, P]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is a thread-safe priority queue over values of type T with
// priorities of type P, plus the uniform time-range query contract over
// insertion order.
type Queue[T any, P cmp.Ordered] struct {
	mu        sync.Mutex
	heap      innerHeap[T, P]
	seq       uint64
	domainKey reflect.Type
	id        uuid.UUID
}

// New constructs an empty Queue.
func New[T any, P cmp.Ordered]() *Queue[T, P] {
	return &Queue[T, P]{domainKey: clock.DomainKey[T](), id: uuid.New()}
}

func (q *Queue[T, P]) idString() string { return q.id.String() }

// Enqueue stamps the current time for this Queue's value-type domain and
// inserts (value, priority).
func (q *Queue[T, P]) Enqueue(value T, priority P) {
	q.mu.Lock()
	it := &pqItem[T, P]{value: value, priority: priority, ts: clock.NowForKey(q.domainKey), seq: q.seq}
	q.seq++
	heap.Push(&q.heap, it)
	n := q.heap.Len()
	q.mu.Unlock()
	pqMetrics.Inserted(q.idString(), 1)
	pqMetrics.SetCount(q.idString(), n)
}

// TryPeek returns the minimum-priority entry without removing it.
func (q *Queue[T, P]) TryPeek() (temporal.Item[Entry[T, P]], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return temporal.Item[Entry[T, P]]{}, false
	}
	return itemFor(q.heap[0]), true
}

// TryDequeue removes and returns the minimum-priority entry.
func (q *Queue[T, P]) TryDequeue() (temporal.Item[Entry[T, P]], bool) {
	q.mu.Lock()
	if len(q.heap) == 0 {
		q.mu.Unlock()
		return temporal.Item[Entry[T, P]]{}, false
	}
	it := heap.Pop(&q.heap).(*pqItem[T, P])
	n := q.heap.Len()
	q.mu.Unlock()
	pqMetrics.Removed(q.idString(), 1)
	pqMetrics.SetCount(q.idString(), n)
	return itemFor(it), true
}

func itemFor[T any, P cmp.Ordered](it *pqItem[T, P]) temporal.Item[Entry[T, P]] {
	return temporal.Item[Entry[T, P]]{
		Value:     Entry[T, P]{Value: it.value, Priority: it.priority},
		Timestamp: it.ts,
	}
}

func sortByTs[T any, P cmp.Ordered](out []temporal.Item[Entry[T, P]]) {
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Ticks < out[j].Timestamp.Ticks })
}

// GetInRange scans the heap for items with ts in [from, to], per spec §4.7
// (no secondary time index is required), returning them sorted by ts.
func (q *Queue[T, P]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[Entry[T, P]], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []temporal.Item[Entry[T, P]]
	for _, it := range q.heap {
		if it.ts.Ticks >= from.Ticks && it.ts.Ticks <= to.Ticks {
			out = append(out, itemFor(it))
		}
	}
	sortByTs(out)
	return out, nil
}

// GetBefore scans for ts < t, sorted by ts.
func (q *Queue[T, P]) GetBefore(t clock.Timestamp) []temporal.Item[Entry[T, P]] {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []temporal.Item[Entry[T, P]]
	for _, it := range q.heap {
		if it.ts.Ticks < t.Ticks {
			out = append(out, itemFor(it))
		}
	}
	sortByTs(out)
	return out
}

// GetAfter scans for ts > t, sorted by ts.
func (q *Queue[T, P]) GetAfter(t clock.Timestamp) []temporal.Item[Entry[T, P]] {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []temporal.Item[Entry[T, P]]
	for _, it := range q.heap {
		if it.ts.Ticks > t.Ticks {
			out = append(out, itemFor(it))
		}
	}
	sortByTs(out)
	return out
}

// CountInRange equals len(GetInRange(from, to)).
func (q *Queue[T, P]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, it := range q.heap {
		if it.ts.Ticks >= from.Ticks && it.ts.Ticks <= to.Ticks {
			count++
		}
	}
	return count, nil
}

// CountSince counts items with ts >= from.
func (q *Queue[T, P]) CountSince(from clock.Timestamp) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, it := range q.heap {
		if it.ts.Ticks >= from.Ticks {
			count++
		}
	}
	return count
}

// GetEarliest returns the item with the minimum ts (a linear scan, since
// the heap's primary order is priority, not ts).
func (q *Queue[T, P]) GetEarliest() (temporal.Item[Entry[T, P]], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return temporal.Item[Entry[T, P]]{}, false
	}
	best := q.heap[0]
	for _, it := range q.heap[1:] {
		if it.ts.Ticks < best.ts.Ticks {
			best = it
		}
	}
	return itemFor(best), true
}

// GetLatest returns the item with the maximum ts.
func (q *Queue[T, P]) GetLatest() (temporal.Item[Entry[T, P]], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return temporal.Item[Entry[T, P]]{}, false
	}
	best := q.heap[0]
	for _, it := range q.heap[1:] {
		if it.ts.Ticks > best.ts.Ticks {
			best = it
		}
	}
	return itemFor(best), true
}

// GetTimeSpan returns latest.ts - earliest.ts, zero if fewer than 2 items.
func (q *Queue[T, P]) GetTimeSpan() time.Duration {
	earliest, ok := q.GetEarliest()
	if !ok {
		return 0
	}
	latest, _ := q.GetLatest()
	if earliest.Timestamp.Equal(latest.Timestamp) {
		return 0
	}
	return latest.Timestamp.Sub(earliest.Timestamp)
}

// GetNearest returns the item whose ts is closest to t. On an exact tie it
// prefers the LATER item (this backend's pinned policy, see
// SPEC_FULL.md §14).
func (q *Queue[T, P]) GetNearest(t clock.Timestamp) (temporal.Item[Entry[T, P]], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return temporal.Item[Entry[T, P]]{}, false
	}
	var best *pqItem[T, P]
	var bestDist clock.Tick
	for _, it := range q.heap {
		d := it.ts.Ticks - t.Ticks
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist || (d == bestDist && it.ts.Ticks > best.ts.Ticks) {
			best, bestDist = it, d
		}
	}
	return itemFor(best), true
}

// removeMatching collects every item satisfying pred, then removes each via
// heap.Remove located by pointer identity. The spec explicitly notes this
// cannot early-exit: the primary order is priority, not ts.
func (q *Queue[T, P]) removeMatching(pred func(*pqItem[T, P]) bool) int {
	var toRemove []*pqItem[T, P]
	for _, it := range q.heap {
		if pred(it) {
			toRemove = append(toRemove, it)
		}
	}
	for _, target := range toRemove {
		for i, it := range q.heap {
			if it == target {
				heap.Remove(&q.heap, i)
				break
			}
		}
	}
	return len(toRemove)
}

// RemoveOlderThan removes every item with ts < t.
func (q *Queue[T, P]) RemoveOlderThan(t clock.Timestamp) {
	q.mu.Lock()
	removed := q.removeMatching(func(it *pqItem[T, P]) bool { return it.ts.Ticks < t.Ticks })
	n := q.heap.Len()
	q.mu.Unlock()
	if removed > 0 {
		pqMetrics.Removed(q.idString(), removed)
		pqMetrics.SetCount(q.idString(), n)
	}
}

// RemoveRange removes every item with ts in [from, to].
func (q *Queue[T, P]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	q.mu.Lock()
	removed := q.removeMatching(func(it *pqItem[T, P]) bool {
		return it.ts.Ticks >= from.Ticks && it.ts.Ticks <= to.Ticks
	})
	n := q.heap.Len()
	q.mu.Unlock()
	if removed > 0 {
		pqMetrics.Removed(q.idString(), removed)
		pqMetrics.SetCount(q.idString(), n)
	}
	return nil
}

// Clear removes every item.
func (q *Queue[T, P]) Clear() {
	q.mu.Lock()
	n := len(q.heap)
	q.heap = nil
	q.mu.Unlock()
	pqMetrics.Removed(q.idString(), n)
	pqMetrics.SetCount(q.idString(), 0)
}

// Count returns the number of stored items.
func (q *Queue[T, P]) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Dump renders the heap array (not a priority-sorted view) for debugging.
func (q *Queue[T, P]) Dump() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"heap_index", "priority", "ts", "seq"})
	for i, it := range q.heap {
		tbl.AppendRow(table.Row{i, it.priority, it.ts.String(), it.seq})
	}
	return fmt.Sprintf("Queue %s (%d items)\n%s", q.idString(), len(q.heap), tbl.Render())
}
