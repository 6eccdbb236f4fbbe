// Package intervaltree implements a thread-safe treap keyed by interval
// start, augmented with each subtree's maximum end, supporting overlap
// queries and start-keyed retention in O(log n) expected time.
package intervaltree

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/multierr"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/internal/log"
	"github.com/grafana/temporalcol/internal/metrics"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
	"github.com/grafana/temporalcol/pkg/timenorm"
)

var itMetrics = metrics.NewSet("interval_tree")

// Interval is the stored element type an IntervalTree satisfies
// temporal.Queryable for. The timestamp the uniform contract exposes for an
// interval is always its Start (spec §3).
type Interval[V comparable] struct {
	Start clock.Tick
	End   clock.Tick
	Value V
}

type node[V comparable] struct {
	start, end, maxEnd clock.Tick
	value              V
	priority           uint64 // min-heap: smaller priority sits closer to the root
	left, right        *node[V]
}

func recomputeMaxEnd[V comparable](n *node[V]) {
	n.maxEnd = n.end
	if n.left != nil && n.left.maxEnd > n.maxEnd {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd > n.maxEnd {
		n.maxEnd = n.right.maxEnd
	}
}

// IntervalTree is a thread-safe set of (start, end, value) intervals
// supporting overlap queries. Values must be comparable so exact duplicates
// (identical start, end and value) can be detected and collapsed into a
// no-op insert, per spec §4.6.
type IntervalTree[V comparable] struct {
	mu    sync.RWMutex
	root  *node[V]
	count int
	id    uuid.UUID
}

// New constructs an empty IntervalTree. There are no constructor options.
func New[V comparable]() *IntervalTree[V] {
	return &IntervalTree[V]{id: uuid.New()}
}

func (t *IntervalTree[V]) idString() string { return t.id.String() }

// Insert adds (start, end, value). ErrInvalidInterval if end < start. An
// exact duplicate of an existing interval is a no-op.
func (t *IntervalTree[V]) Insert(start, end clock.Tick, value V) error {
	if end < start {
		return errs.ErrInvalidInterval
	}
	t.mu.Lock()
	inserted := t.insertLocked(start, end, value)
	n := t.count
	t.mu.Unlock()
	if inserted {
		itMetrics.Inserted(t.idString(), 1)
		itMetrics.SetCount(t.idString(), n)
	}
	return nil
}

// InsertRange validates every interval's end >= start before inserting any
// of them (per-element precondition, unlike the single from/to pair every
// other backend validates), collecting every failure via
// go.uber.org/multierr so a caller sees every bad element in one error
// rather than stopping at the first.
func (t *IntervalTree[V]) InsertRange(intervals []Interval[V]) error {
	var errv error
	for i, iv := range intervals {
		if iv.End < iv.Start {
			errv = multierr.Append(errv, fmt.Errorf("interval %d (start=%d end=%d): %w", i, iv.Start, iv.End, errs.ErrInvalidInterval))
		}
	}
	if errv != nil {
		return errv
	}

	t.mu.Lock()
	inserted := 0
	for _, iv := range intervals {
		if t.insertLocked(iv.Start, iv.End, iv.Value) {
			inserted++
		}
	}
	n := t.count
	t.mu.Unlock()
	if inserted > 0 {
		itMetrics.Inserted(t.idString(), inserted)
		itMetrics.SetCount(t.idString(), n)
	}
	return nil
}

func (t *IntervalTree[V]) insertLocked(start, end clock.Tick, value V) bool {
	if findExact(t.root, start, end, value) != nil {
		return false
	}
	n := &node[V]{start: start, end: end, maxEnd: end, priority: rand.Uint64(), value: value}
	t.root = insertNode(t.root, n)
	t.count++
	return true
}

func findExact[V comparable](root *node[V], start, end clock.Tick, value V) *node[V] {
	cur := root
	for cur != nil {
		if cur.start == start && cur.end == end && cur.value == value {
			return cur
		}
		if start == cur.start {
			if n := findExact(cur.left, start, end, value); n != nil {
				return n
			}
		}
		if start < cur.start {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return nil
}

// insertNode inserts leaf n by start (ties routed right, so n sorts after
// every existing interval with the same start in in-order; later rotations
// keep that order but can leave a tied node in either subtree), rotating by
// heap priority on the way back up to restore the min-heap property.
func insertNode[V comparable](root, n *node[V]) *node[V] {
	if root == nil {
		return n
	}
	if n.start < root.start {
		root.left = insertNode(root.left, n)
		if root.left.priority < root.priority {
			root = rotateRight(root)
		}
	} else {
		root.right = insertNode(root.right, n)
		if root.right.priority < root.priority {
			root = rotateLeft(root)
		}
	}
	recomputeMaxEnd(root)
	return root
}

func rotateRight[V comparable](y *node[V]) *node[V] {
	x := y.left
	log.Debug(log.Logger).Log("msg", "interval tree rotate right", "pivot_start", int64(y.start), "new_root_start", int64(x.start))
	y.left = x.right
	x.right = y
	recomputeMaxEnd(y)
	recomputeMaxEnd(x)
	return x
}

func rotateLeft[V comparable](x *node[V]) *node[V] {
	y := x.right
	log.Debug(log.Logger).Log("msg", "interval tree rotate left", "pivot_start", int64(x.start), "new_root_start", int64(y.start))
	x.right = y.left
	y.left = x
	recomputeMaxEnd(x)
	recomputeMaxEnd(y)
	return y
}

// Remove deletes the node matching (start, end, value) exactly. Returns
// false if no such interval exists.
func (t *IntervalTree[V]) Remove(start, end clock.Tick, value V) bool {
	t.mu.Lock()
	var removed bool
	t.root, removed = deleteExact(t.root, start, end, value)
	if removed {
		t.count--
	}
	n := t.count
	t.mu.Unlock()
	if removed {
		itMetrics.Removed(t.idString(), 1)
		itMetrics.SetCount(t.idString(), n)
	}
	return removed
}

func deleteExact[V comparable](root *node[V], start, end clock.Tick, value V) (*node[V], bool) {
	if root == nil {
		return nil, false
	}
	switch {
	case start < root.start:
		var ok bool
		root.left, ok = deleteExact(root.left, start, end, value)
		recomputeMaxEnd(root)
		return root, ok
	case start > root.start:
		var ok bool
		root.right, ok = deleteExact(root.right, start, end, value)
		recomputeMaxEnd(root)
		return root, ok
	default:
		if root.end == end && root.value == value {
			return removeNode(root), true
		}
		var ok bool
		root.left, ok = deleteExact(root.left, start, end, value)
		if !ok {
			root.right, ok = deleteExact(root.right, start, end, value)
		}
		recomputeMaxEnd(root)
		return root, ok
	}
}

// removeNode removes n itself from the tree, replacing a two-child node
// with its inorder successor (the leftmost node of its right subtree), per
// spec §4.6.
func removeNode[V comparable](n *node[V]) *node[V] {
	if n.left == nil {
		return n.right
	}
	if n.right == nil {
		return n.left
	}
	newRight, succ := removeLeftmost(n.right)
	n.start, n.end, n.value = succ.start, succ.end, succ.value
	n.right = newRight
	recomputeMaxEnd(n)
	return n
}

func removeLeftmost[V comparable](n *node[V]) (*node[V], *node[V]) {
	if n.left == nil {
		return n.right, n
	}
	var removed *node[V]
	n.left, removed = removeLeftmost(n.left)
	recomputeMaxEnd(n)
	return n, removed
}

func itemFor[V comparable](n *node[V]) temporal.Item[Interval[V]] {
	return temporal.Item[Interval[V]]{
		Value:     Interval[V]{Start: n.start, End: n.end, Value: n.value},
		Timestamp: clock.NewTimestamp(n.start),
	}
}

// GetInRange returns every interval overlapping [from, to] — start <= to AND
// end >= from — ascending by start. This is the IntervalTree's realization
// of the uniform contract's range query (spec §4.6: overlap, not a literal
// start-in-window test).
func (t *IntervalTree[V]) GetInRange(from, to clock.Timestamp) ([]temporal.Item[Interval[V]], error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []temporal.Item[Interval[V]]
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		if n.left != nil && n.left.maxEnd >= from.Ticks {
			rec(n.left)
		}
		if n.start <= to.Ticks && n.end >= from.Ticks {
			out = append(out, itemFor(n))
		}
		if n.start <= to.Ticks {
			rec(n.right)
		}
	}
	rec(t.root)
	return out, nil
}

// Query is GetInRange projected to values only.
func (t *IntervalTree[V]) Query(from, to clock.Timestamp) ([]V, error) {
	items, err := t.GetInRange(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]V, len(items))
	for i, it := range items {
		out[i] = it.Value.Value
	}
	return out, nil
}

// CountInRange equals len(GetInRange(from, to)).
func (t *IntervalTree[V]) CountInRange(from, to clock.Timestamp) (int, error) {
	if err := timenorm.CheckRange(from, to); err != nil {
		return 0, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		if n.left != nil && n.left.maxEnd >= from.Ticks {
			rec(n.left)
		}
		if n.start <= to.Ticks && n.end >= from.Ticks {
			count++
		}
		if n.start <= to.Ticks {
			rec(n.right)
		}
	}
	rec(t.root)
	return count, nil
}

// CountSince counts intervals whose start >= from (per the uniform
// contract, ts = start for interval entities).
func (t *IntervalTree[V]) CountSince(from clock.Timestamp) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		if n.start >= from.Ticks {
			count++
			rec(n.left)
			rec(n.right)
			return
		}
		rec(n.right)
	}
	rec(t.root)
	return count
}

// GetBefore returns intervals with start < t, ascending by start.
func (t *IntervalTree[V]) GetBefore(ts clock.Timestamp) []temporal.Item[Interval[V]] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []temporal.Item[Interval[V]]
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		if n.start < ts.Ticks {
			rec(n.left)
			out = append(out, itemFor(n))
			rec(n.right)
			return
		}
		rec(n.left)
	}
	rec(t.root)
	return out
}

// GetAfter returns intervals with start > t, ascending by start.
func (t *IntervalTree[V]) GetAfter(ts clock.Timestamp) []temporal.Item[Interval[V]] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []temporal.Item[Interval[V]]
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		if n.start > ts.Ticks {
			rec(n.left)
			out = append(out, itemFor(n))
			rec(n.right)
			return
		}
		rec(n.right)
	}
	rec(t.root)
	return out
}

// GetEarliest returns the leftmost node by start.
func (t *IntervalTree[V]) GetEarliest() (temporal.Item[Interval[V]], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return temporal.Item[Interval[V]]{}, false
	}
	n := t.root
	for n.left != nil {
		n = n.left
	}
	return itemFor(n), true
}

// GetLatest returns the rightmost node by start.
func (t *IntervalTree[V]) GetLatest() (temporal.Item[Interval[V]], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return temporal.Item[Interval[V]]{}, false
	}
	n := t.root
	for n.right != nil {
		n = n.right
	}
	return itemFor(n), true
}

// GetTimeSpan returns latest.start - earliest.start, or zero if fewer than
// 2 intervals are stored.
func (t *IntervalTree[V]) GetTimeSpan() time.Duration {
	earliest, ok := t.GetEarliest()
	if !ok {
		return 0
	}
	latest, _ := t.GetLatest()
	if earliest.Timestamp.Equal(latest.Timestamp) {
		return 0
	}
	return latest.Timestamp.Sub(earliest.Timestamp)
}

// GetNearest returns the interval whose start is closest to t. On an exact
// tie it prefers the LATER interval (this backend's pinned policy, see
// SPEC_FULL.md §14).
func (t *IntervalTree[V]) GetNearest(ts clock.Timestamp) (temporal.Item[Interval[V]], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.root == nil {
		return temporal.Item[Interval[V]]{}, false
	}
	var best *node[V]
	var bestDist clock.Tick
	cur := t.root
	for cur != nil {
		d := cur.start - ts.Ticks
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist || (d == bestDist && cur.start > best.start) {
			best, bestDist = cur, d
		}
		switch {
		case ts.Ticks < cur.start:
			cur = cur.left
		case ts.Ticks > cur.start:
			cur = cur.right
		default:
			cur = nil
		}
	}
	return itemFor(best), true
}

// RemoveOlderThan removes every interval with end < cutoff (strictly),
// dropping a whole subtree without visiting its nodes when its maxEnd is
// below cutoff; every surviving node is still visited.
func (t *IntervalTree[V]) RemoveOlderThan(cutoff clock.Timestamp) {
	t.mu.Lock()
	removed := 0
	t.root = pruneEndBefore(t.root, cutoff.Ticks, &removed)
	t.count -= removed
	n := t.count
	t.mu.Unlock()
	if removed > 0 {
		itMetrics.Removed(t.idString(), removed)
		itMetrics.SetCount(t.idString(), n)
	}
}

func pruneEndBefore[V comparable](n *node[V], cutoff clock.Tick, removed *int) *node[V] {
	if n == nil {
		return nil
	}
	if n.maxEnd < cutoff {
		*removed += countNodes(n)
		return nil
	}
	n.left = pruneEndBefore(n.left, cutoff, removed)
	n.right = pruneEndBefore(n.right, cutoff, removed)
	if n.end < cutoff {
		*removed++
		return removeNode(n)
	}
	recomputeMaxEnd(n)
	return n
}

func countNodes[V comparable](n *node[V]) int {
	if n == nil {
		return 0
	}
	return 1 + countNodes(n.left) + countNodes(n.right)
}

// RemoveRange removes every interval whose start is in [from, to]
// (inclusive), refreshing maxEnd along every path touched.
func (t *IntervalTree[V]) RemoveRange(from, to clock.Timestamp) error {
	if err := timenorm.CheckRange(from, to); err != nil {
		return err
	}
	t.mu.Lock()
	removed := 0
	t.root = pruneStartInRange(t.root, from.Ticks, to.Ticks, &removed)
	t.count -= removed
	n := t.count
	t.mu.Unlock()
	if removed > 0 {
		itMetrics.Removed(t.idString(), removed)
		itMetrics.SetCount(t.idString(), n)
	}
	return nil
}

func pruneStartInRange[V comparable](n *node[V], from, to clock.Tick, removed *int) *node[V] {
	if n == nil {
		return nil
	}
	if n.start < from {
		n.right = pruneStartInRange(n.right, from, to, removed)
		recomputeMaxEnd(n)
		return n
	}
	if n.start > to {
		n.left = pruneStartInRange(n.left, from, to, removed)
		recomputeMaxEnd(n)
		return n
	}
	n.left = pruneStartInRange(n.left, from, to, removed)
	n.right = pruneStartInRange(n.right, from, to, removed)
	*removed++
	return removeNode(n)
}

// Clear drops the root.
func (t *IntervalTree[V]) Clear() {
	t.mu.Lock()
	n := t.count
	t.root = nil
	t.count = 0
	t.mu.Unlock()
	itMetrics.Removed(t.idString(), n)
	itMetrics.SetCount(t.idString(), 0)
}

// Count returns the number of stored intervals.
func (t *IntervalTree[V]) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Dump renders an in-order snapshot of the treap, for debugging — not part
// of the query contract.
func (t *IntervalTree[V]) Dump() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tbl := table.NewWriter()
	tbl.AppendHeader(table.Row{"start", "end", "max_end", "priority"})
	var rec func(n *node[V])
	rec = func(n *node[V]) {
		if n == nil {
			return
		}
		rec(n.left)
		tbl.AppendRow(table.Row{int64(n.start), int64(n.end), int64(n.maxEnd), n.priority})
		rec(n.right)
	}
	rec(t.root)
	return fmt.Sprintf("IntervalTree %s (%d intervals)\n%s", t.idString(), t.count, tbl.Render())
}

// debugNode and debugRoot expose the raw treap for white-box invariant
// tests (BST-on-start, heap-on-priority, maxEnd correctness), replacing
// reflection per spec §9.
type debugNode[V comparable] struct {
	Start, End, MaxEnd clock.Tick
	Priority           uint64
	Left, Right        *debugNode[V]
}

func (t *IntervalTree[V]) debugRoot() *debugNode[V] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var conv func(n *node[V]) *debugNode[V]
	conv = func(n *node[V]) *debugNode[V] {
		if n == nil {
			return nil
		}
		return &debugNode[V]{
			Start: n.start, End: n.end, MaxEnd: n.maxEnd, Priority: n.priority,
			Left: conv(n.left), Right: conv(n.right),
		}
	}
	return conv(t.root)
}
