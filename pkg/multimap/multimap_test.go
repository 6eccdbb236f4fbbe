package multimap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/pkg/clock"
	"github.com/grafana/temporalcol/pkg/temporal"
)

// MM-1: add K="A" values 100,300 (monotonic ts); insert a manual item under
// "A" with ts between those; getValuesInRange("A", -inf, +inf) returns
// [100,200,300] strictly increasing.
func TestMultimap_PerKeyRunStaysSorted_MM1(t *testing.T) {
	m := New[string, int]()

	first := m.AddValue("A", 100)
	last := m.AddValue("A", 300)

	mid := clock.NewTimestamp((first.Timestamp.Ticks + last.Timestamp.Ticks) / 2)
	m.Add(temporal.NewAt(KV[string, int]{Key: "A", Value: 200}, mid))

	got, err := m.GetValuesInRange("A", clock.NewTimestamp(math.MinInt64), clock.NewTimestamp(math.MaxInt64))
	require.NoError(t, err)
	require.Equal(t, []int{100, 200, 300}, got)
}

func TestMultimap_RemoveKey(t *testing.T) {
	m := New[string, string]()
	m.AddValue("A", "a1")
	m.AddValue("B", "b1")

	require.True(t, m.RemoveKey("A"))
	require.False(t, m.RemoveKey("A"))
	require.Equal(t, 1, m.Count())
	require.Equal(t, []string{"B"}, m.Keys())
}

func TestMultimap_GlobalGetInRangeMergesAcrossKeys(t *testing.T) {
	m := New[string, int]()
	a1 := m.AddValue("A", 1)
	b1 := m.AddValue("B", 2)
	a2 := m.AddValue("A", 3)

	got, err := m.GetInRange(a1.Timestamp, a2.Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got[0].Timestamp.Ticks <= got[1].Timestamp.Ticks)
	require.True(t, got[1].Timestamp.Ticks <= got[2].Timestamp.Ticks)
	require.Equal(t, b1.Value.Value, got[1].Value.Value)
}

func TestMultimap_RemoveOlderThanDropsEmptyKeys(t *testing.T) {
	m := New[string, int]()
	m.AddValue("A", 1)
	second := m.AddValue("A", 2)

	m.RemoveOlderThan(second.Timestamp)

	require.Equal(t, 1, m.Count())
	require.Equal(t, []string{"A"}, m.Keys())

	m.RemoveOlderThan(clock.NewTimestamp(second.Timestamp.Ticks + 1))
	require.Equal(t, 0, m.Count())
	require.Empty(t, m.Keys())
}

func TestMultimap_GetNearestPrefersEarlierOnTie(t *testing.T) {
	m := New[string, int]()
	a := m.AddValue("A", 1)
	b := m.AddValue("B", 2)

	mid := clock.NewTimestamp((a.Timestamp.Ticks + b.Timestamp.Ticks) / 2)
	got, ok := m.GetNearest(mid)
	require.True(t, ok)
	require.Equal(t, a.Value.Value, got.Value.Value)
}

func TestMultimap_Clear(t *testing.T) {
	m := New[string, int]()
	m.AddValue("A", 1)
	m.AddValue("B", 2)
	m.Clear()
	require.Equal(t, 0, m.Count())
	require.Empty(t, m.Keys())
}
