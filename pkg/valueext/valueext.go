// Package valueext implements the value-centric projections spec.md §4.8
// layers on top of any backend satisfying temporal.Queryable: materializers
// that strip timestamps down to plain Go collections, and fixed-interval
// bucketing/aggregation.
package valueext

import (
	"sort"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
)

// fullRange pulls every stored item, ascending by ts, out of q.
func fullRange[T any](q temporal.Queryable[T]) ([]temporal.Item[T], error) {
	earliest, ok := q.GetEarliest()
	if !ok {
		return nil, nil
	}
	latest, _ := q.GetLatest()
	return q.GetInRange(earliest.Timestamp, latest.Timestamp)
}

// ToValueList projects every stored item to its value, ascending by ts.
func ToValueList[T any](q temporal.Queryable[T]) ([]T, error) {
	items, err := fullRange(q)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	return out, nil
}

// ToValueArray is ToValueList under the name the wire contract uses for a
// fixed-size projection; in Go both are the same slice.
func ToValueArray[T any](q temporal.Queryable[T]) ([]T, error) { return ToValueList(q) }

// ToValueReadOnlyCollection is ToValueList under the name the wire contract
// uses for a read-only view; callers must not mutate the returned slice.
func ToValueReadOnlyCollection[T any](q temporal.Queryable[T]) ([]T, error) { return ToValueList(q) }

// ToValueHashSet projects to a set of distinct values.
func ToValueHashSet[T comparable](q temporal.Queryable[T]) (map[T]struct{}, error) {
	items, err := fullRange(q)
	if err != nil {
		return nil, err
	}
	out := make(map[T]struct{}, len(items))
	for _, it := range items {
		out[it.Value] = struct{}{}
	}
	return out, nil
}

// ToValueQueue projects to a slice in chronological (FIFO) order: front is
// items[0].
func ToValueQueue[T any](q temporal.Queryable[T]) ([]T, error) { return ToValueList(q) }

// ToValueStack projects to a slice in reverse-chronological (LIFO) order:
// the top of the stack (the latest item) is element 0 of the result.
func ToValueStack[T any](q temporal.Queryable[T]) ([]T, error) {
	items, err := fullRange(q)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it.Value
	}
	return out, nil
}

// ToValueDictionary projects to a map keyed by keyFn(value), last-wins in
// chronological order — a later item with the same key overwrites an
// earlier one.
func ToValueDictionary[T any, K comparable](q temporal.Queryable[T], keyFn func(T) K) (map[K]T, error) {
	items, err := fullRange(q)
	if err != nil {
		return nil, err
	}
	out := make(map[K]T, len(items))
	for _, it := range items {
		out[keyFn(it.Value)] = it.Value
	}
	return out, nil
}

// Bucket is one (bucketStart, aggregated value) pair emitted by BucketBy.
type Bucket[A any] struct {
	Start clock.Timestamp
	Value A
}

// BucketBy floors each item's ts to the nearest interval boundary relative
// to alignment, groups items per bucket, and emits (bucketStart,
// aggregator(items)) ascending by bucketStart. ErrInvalidBucket if
// interval <= 0.
func BucketBy[T any, A any](q temporal.Queryable[T], interval clock.Tick, alignment clock.Timestamp, aggregator func([]T) A) ([]Bucket[A], error) {
	if interval <= 0 {
		return nil, errs.ErrInvalidBucket
	}
	items, err := fullRange(q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	groups := make(map[clock.Tick][]T)
	for _, it := range items {
		offset := it.Timestamp.Ticks - alignment.Ticks
		bucketIdx := offset / interval
		if offset%interval < 0 {
			bucketIdx--
		}
		bucketStart := alignment.Ticks + bucketIdx*interval
		groups[bucketStart] = append(groups[bucketStart], it.Value)
	}

	starts := make([]clock.Tick, 0, len(groups))
	for start := range groups {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]Bucket[A], len(starts))
	for i, start := range starts {
		out[i] = Bucket[A]{Start: clock.NewTimestamp(start), Value: aggregator(groups[start])}
	}
	return out, nil
}
