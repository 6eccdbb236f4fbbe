// Package ordered holds the binary-search helpers shared by every "simple"
// backend in pkg/simplebackends: each of them keeps its items in one
// ts-ascending slice (no segmentation, no tree), so the sort.Search lower/
// upper-bound technique segmentedarray.go uses per segment applies directly
// to the whole backing slice here.
package ordered

import (
	"sort"
	"time"

	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
)

// LowerBound returns the index of the first item with ts >= ticks.
func LowerBound[T any](items []temporal.Item[T], ticks clock.Tick) int {
	return sort.Search(len(items), func(i int) bool { return items[i].Timestamp.Ticks >= ticks })
}

// UpperBound returns the index of the first item with ts > ticks.
func UpperBound[T any](items []temporal.Item[T], ticks clock.Tick) int {
	return sort.Search(len(items), func(i int) bool { return items[i].Timestamp.Ticks > ticks })
}

// InsertSorted inserts item into items (already ts-ascending), after any
// existing items sharing its exact tick, and returns the new slice.
func InsertSorted[T any](items []temporal.Item[T], item temporal.Item[T]) []temporal.Item[T] {
	idx := UpperBound(items, item.Timestamp.Ticks)
	items = append(items, temporal.Item[T]{})
	copy(items[idx+1:], items[idx:])
	items[idx] = item
	return items
}

// GetInRange returns a materialized copy of items with ts in [from, to].
func GetInRange[T any](items []temporal.Item[T], from, to clock.Tick) []temporal.Item[T] {
	lo, hi := LowerBound(items, from), UpperBound(items, to)
	if lo >= hi {
		return nil
	}
	out := make([]temporal.Item[T], hi-lo)
	copy(out, items[lo:hi])
	return out
}

// GetBefore returns a materialized copy of items with ts < t.
func GetBefore[T any](items []temporal.Item[T], t clock.Tick) []temporal.Item[T] {
	hi := LowerBound(items, t)
	if hi == 0 {
		return nil
	}
	out := make([]temporal.Item[T], hi)
	copy(out, items[:hi])
	return out
}

// GetAfter returns a materialized copy of items with ts > t.
func GetAfter[T any](items []temporal.Item[T], t clock.Tick) []temporal.Item[T] {
	lo := UpperBound(items, t)
	if lo >= len(items) {
		return nil
	}
	out := make([]temporal.Item[T], len(items)-lo)
	copy(out, items[lo:])
	return out
}

// CountInRange counts items with ts in [from, to].
func CountInRange[T any](items []temporal.Item[T], from, to clock.Tick) int {
	lo, hi := LowerBound(items, from), UpperBound(items, to)
	if lo >= hi {
		return 0
	}
	return hi - lo
}

// CountSince counts items with ts >= from.
func CountSince[T any](items []temporal.Item[T], from clock.Tick) int {
	return len(items) - LowerBound(items, from)
}

// GetEarliest returns items[0].
func GetEarliest[T any](items []temporal.Item[T]) (temporal.Item[T], bool) {
	if len(items) == 0 {
		return temporal.Item[T]{}, false
	}
	return items[0], true
}

// GetLatest returns the last item.
func GetLatest[T any](items []temporal.Item[T]) (temporal.Item[T], bool) {
	if len(items) == 0 {
		return temporal.Item[T]{}, false
	}
	return items[len(items)-1], true
}

// GetTimeSpan returns latest.ts - earliest.ts, zero if fewer than 2 items.
func GetTimeSpan[T any](items []temporal.Item[T]) time.Duration {
	if len(items) < 2 {
		return 0
	}
	return items[len(items)-1].Timestamp.Sub(items[0].Timestamp)
}

// GetNearest returns the item whose ts is closest to t, binary-searching
// for the insertion point and comparing the two neighbors. preferLater
// decides the exact-tie policy.
func GetNearest[T any](items []temporal.Item[T], t clock.Tick, preferLater bool) (temporal.Item[T], bool) {
	if len(items) == 0 {
		return temporal.Item[T]{}, false
	}
	idx := LowerBound(items, t)
	if idx < len(items) && items[idx].Timestamp.Ticks == t {
		return items[idx], true
	}
	switch {
	case idx == 0:
		return items[0], true
	case idx == len(items):
		return items[len(items)-1], true
	default:
		before, after := items[idx-1], items[idx]
		db, da := t-before.Timestamp.Ticks, after.Timestamp.Ticks-t
		switch {
		case db < da:
			return before, true
		case da < db:
			return after, true
		case preferLater:
			return after, true
		default:
			return before, true
		}
	}
}

// RemoveOlderThan returns the suffix of items with ts >= t, and the count
// dropped.
func RemoveOlderThan[T any](items []temporal.Item[T], t clock.Tick) ([]temporal.Item[T], int) {
	idx := LowerBound(items, t)
	if idx == 0 {
		return items, 0
	}
	out := make([]temporal.Item[T], len(items)-idx)
	copy(out, items[idx:])
	return out, idx
}

// RemoveRange returns items with [from, to] excised, and the count
// dropped.
func RemoveRange[T any](items []temporal.Item[T], from, to clock.Tick) ([]temporal.Item[T], int) {
	lo, hi := LowerBound(items, from), UpperBound(items, to)
	if lo >= hi {
		return items, 0
	}
	out := make([]temporal.Item[T], 0, len(items)-(hi-lo))
	out = append(out, items[:lo]...)
	out = append(out, items[hi:]...)
	return out, hi - lo
}
