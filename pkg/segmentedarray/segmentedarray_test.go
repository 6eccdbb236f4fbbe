package segmentedarray

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
)

func mustNew[T any](t *testing.T, capacity int) *SegmentedArray[T] {
	t.Helper()
	sa, err := New[T](Options{SegmentCapacity: capacity, UnspecifiedPolicy: 0})
	require.NoError(t, err)
	return sa
}

func itemAt[T any](v T, ticks clock.Tick) temporal.Item[T] {
	return temporal.NewAt(v, clock.NewTimestamp(ticks))
}

// SA-1: segmentCapacity=2; insert values 10..60 with strictly increasing
// ts; getInRange(ts[1], ts[3]) returns [20,30,40]; countInRange equals 3;
// removeOlderThan(ts[2]) leaves [30,40,50,60].
func TestSegmentedArray_AppendAndQuery_SA1(t *testing.T) {
	sa := mustNew[int](t, 2)
	ts := make([]clock.Timestamp, 6)
	values := []int{10, 20, 30, 40, 50, 60}
	for i, v := range values {
		ticks := clock.Tick((i + 1) * 100)
		ts[i] = clock.NewTimestamp(ticks)
		sa.Add(itemAt(v, ticks))
	}

	got, err := sa.GetInRange(ts[1], ts[3])
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []int{20, 30, 40}, valuesOf(got))

	n, err := sa.CountInRange(ts[1], ts[3])
	require.NoError(t, err)
	require.Equal(t, 3, n)

	sa.RemoveOlderThan(ts[2])
	require.Equal(t, []int{30, 40, 50, 60}, sa.ToArray())
}

// SA-2: segmentCapacity=2; append A,B,C,D, then insert X between B and C;
// snapshot is [A,B,X,C,D]; no segment exceeds capacity 2; segment count
// grows by exactly one.
func TestSegmentedArray_PositionalInsertWithSplit_SA2(t *testing.T) {
	sa := mustNew[string](t, 2)
	sa.Add(itemAt("A", 100))
	sa.Add(itemAt("B", 200))
	sa.Add(itemAt("C", 300))
	sa.Add(itemAt("D", 400))

	before := len(sa.debugSnapshot())

	sa.Add(itemAt("X", 250))

	require.Equal(t, []string{"A", "B", "X", "C", "D"}, sa.ToArray())
	snap := sa.debugSnapshot()
	require.Len(t, snap, before+1)
	for _, seg := range snap {
		require.LessOrEqual(t, seg.Len, 2)
	}
}

func TestSegmentedArray_InvalidRange(t *testing.T) {
	sa := mustNew[int](t, 4)
	sa.Add(itemAt(1, 100))
	_, err := sa.GetInRange(clock.NewTimestamp(200), clock.NewTimestamp(100))
	require.ErrorIs(t, err, errs.ErrInvalidRange)
}

func TestSegmentedArray_ConstructionRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New[int](Options{SegmentCapacity: 0})
	require.Error(t, err)
}

func TestSegmentedArray_GetNearestPrefersEarlierOnTie(t *testing.T) {
	sa := mustNew[int](t, 4)
	sa.Add(itemAt(1, 100))
	sa.Add(itemAt(2, 300))

	got, ok := sa.GetNearest(clock.NewTimestamp(200))
	require.True(t, ok)
	require.Equal(t, 1, got.Value)
}

func TestSegmentedArray_EmptyHasNoEarliestOrLatest(t *testing.T) {
	sa := mustNew[int](t, 4)
	_, ok := sa.GetEarliest()
	require.False(t, ok)
	_, ok = sa.GetLatest()
	require.False(t, ok)
	require.Equal(t, 0, sa.CountSince(clock.NewTimestamp(0)))
}

// Concurrent writers never corrupt the array: N goroutines each doing M
// chronological inserts leaves the array with exactly N*M items, still
// sorted ascending by ts.
func TestSegmentedArray_ConcurrentWritersPreserveCountAndOrder(t *testing.T) {
	const writers, perWriter = 8, 200
	sa := mustNew[int](t, 64)

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < writers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWriter; i++ {
				sa.AddValue(w*perWriter + i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, writers*perWriter, sa.Count())

	all := sa.ToArray()
	require.Len(t, all, writers*perWriter)

	got, err := sa.GetInRange(clock.NewTimestamp(0), clock.NewTimestamp(1<<62))
	require.NoError(t, err)
	require.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
		return got[i].Timestamp.Ticks < got[j].Timestamp.Ticks
	}))
}

func valuesOf[T any](items []temporal.Item[T]) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	return out
}
