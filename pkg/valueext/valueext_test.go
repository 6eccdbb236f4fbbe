package valueext

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/simplebackends"
)

func TestToValueList(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(1)
	l.Add(2)
	l.Add(3)

	got, err := ToValueList[int](l)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestToValueList_Empty(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	got, err := ToValueList[int](l)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestToValueHashSet(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(1)
	l.Add(1)
	l.Add(2)

	got, err := ToValueHashSet[int](l)
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{1: {}, 2: {}}, got)
}

func TestToValueStack_ReversesChronologicalOrder(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(1)
	l.Add(2)
	l.Add(3)

	got, err := ToValueStack[int](l)
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 1}, got)
}

func TestToValueDictionary_LastWins(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[string]()
	l.Add("a1")
	l.Add("b1")
	l.Add("a2")

	got, err := ToValueDictionary[string, byte](l, func(s string) byte { return s[0] })
	require.NoError(t, err)
	require.Equal(t, "a2", got['a'])
	require.Equal(t, "b1", got['b'])
}

func TestBucketBy_RejectsNonPositiveInterval(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(1)
	_, err := BucketBy[int, int](l, 0, clock.NewTimestamp(0), func(vs []int) int { return len(vs) })
	require.ErrorIs(t, err, errs.ErrInvalidBucket)
}

func TestBucketBy_GroupsByFixedInterval(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(1)
	l.Add(2)
	l.Add(3)

	earliest, _ := l.GetEarliest()
	buckets, err := BucketBy[int, int](l, 1, earliest.Timestamp, func(vs []int) int {
		sum := 0
		for _, v := range vs {
			sum += v
		}
		return sum
	})
	require.NoError(t, err)
	require.NotEmpty(t, buckets)

	total := 0
	for _, b := range buckets {
		total += b.Value
	}
	require.Equal(t, 6, total)
}

func TestBucketBy_HandlesNegativeOffsetFromAlignment(t *testing.T) {
	l := simplebackends.NewTemporalSortedList[int]()
	l.Add(10)

	earliest, _ := l.GetEarliest()
	alignment := clock.NewTimestamp(earliest.Timestamp.Ticks + 50)

	buckets, err := BucketBy[int, int](l, 10, alignment, func(vs []int) int { return len(vs) })
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.LessOrEqual(t, buckets[0].Start.Ticks, earliest.Timestamp.Ticks)
}
