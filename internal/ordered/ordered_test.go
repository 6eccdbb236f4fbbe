package ordered

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
)

func items(ticks ...clock.Tick) []temporal.Item[int] {
	out := make([]temporal.Item[int], len(ticks))
	for i, tk := range ticks {
		out[i] = temporal.NewAt(int(tk), clock.NewTimestamp(tk))
	}
	return out
}

func TestLowerUpperBound(t *testing.T) {
	it := items(10, 20, 20, 30)
	require.Equal(t, 0, LowerBound(it, 5))
	require.Equal(t, 1, LowerBound(it, 20))
	require.Equal(t, 3, UpperBound(it, 20))
	require.Equal(t, 4, LowerBound(it, 100))
}

func TestInsertSorted_TiesGoAfterExisting(t *testing.T) {
	it := items(10, 20, 30)
	it = InsertSorted(it, temporal.NewAt(20, clock.NewTimestamp(20)))
	require.Equal(t, []clock.Tick{10, 20, 20, 30}, ticksOf(it))
}

func TestGetInRange(t *testing.T) {
	it := items(10, 20, 30, 40)
	got := GetInRange(it, clock.Tick(15), clock.Tick(35))
	require.Equal(t, []clock.Tick{20, 30}, ticksOf(got))
}

func TestGetInRange_Empty(t *testing.T) {
	it := items(10, 20)
	require.Nil(t, GetInRange(it, clock.Tick(100), clock.Tick(200)))
}

func TestGetBeforeAfter(t *testing.T) {
	it := items(10, 20, 30)
	require.Equal(t, []clock.Tick{10}, ticksOf(GetBefore(it, clock.Tick(20))))
	require.Equal(t, []clock.Tick{30}, ticksOf(GetAfter(it, clock.Tick(20))))
}

func TestCountInRangeAndSince(t *testing.T) {
	it := items(10, 20, 30, 40)
	require.Equal(t, 2, CountInRange(it, clock.Tick(15), clock.Tick(35)))
	require.Equal(t, 3, CountSince(it, clock.Tick(20)))
}

func TestGetEarliestLatestTimeSpan(t *testing.T) {
	it := items(10, 20, 30)
	earliest, ok := GetEarliest(it)
	require.True(t, ok)
	require.Equal(t, 10, earliest.Value)

	latest, ok := GetLatest(it)
	require.True(t, ok)
	require.Equal(t, 30, latest.Value)

	require.Equal(t, clock.Tick(20).Sub(0), GetTimeSpan(it))
}

func TestGetEarliest_Empty(t *testing.T) {
	_, ok := GetEarliest[int](nil)
	require.False(t, ok)
}

func TestGetNearest_ExactMatch(t *testing.T) {
	it := items(10, 20, 30)
	got, ok := GetNearest(it, clock.Tick(20), false)
	require.True(t, ok)
	require.Equal(t, 20, got.Value)
}

func TestGetNearest_TiePolicy(t *testing.T) {
	it := items(10, 30)
	earlier, ok := GetNearest(it, clock.Tick(20), false)
	require.True(t, ok)
	require.Equal(t, 10, earlier.Value)

	later, ok := GetNearest(it, clock.Tick(20), true)
	require.True(t, ok)
	require.Equal(t, 30, later.Value)
}

func TestGetNearest_OutOfBoundsClampsToEnds(t *testing.T) {
	it := items(10, 20, 30)
	below, ok := GetNearest(it, clock.Tick(0), false)
	require.True(t, ok)
	require.Equal(t, 10, below.Value)

	above, ok := GetNearest(it, clock.Tick(100), false)
	require.True(t, ok)
	require.Equal(t, 30, above.Value)
}

func TestRemoveOlderThan(t *testing.T) {
	it := items(10, 20, 30)
	out, removed := RemoveOlderThan(it, clock.Tick(25))
	require.Equal(t, 2, removed)
	require.Equal(t, []clock.Tick{30}, ticksOf(out))
}

func TestRemoveRange(t *testing.T) {
	it := items(10, 20, 30, 40)
	out, removed := RemoveRange(it, clock.Tick(15), clock.Tick(35))
	require.Equal(t, 2, removed)
	require.Equal(t, []clock.Tick{10, 40}, ticksOf(out))
}

func ticksOf(items []temporal.Item[int]) []clock.Tick {
	out := make([]clock.Tick, len(items))
	for i, it := range items {
		out[i] = it.Timestamp.Ticks
	}
	return out
}
