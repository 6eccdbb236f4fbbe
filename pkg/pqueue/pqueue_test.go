package pqueue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/pkg/clock"
)

// PQ-1 Priority tie-break by ts: enqueue ("item1",5), ("item2",3), ("item3",3)
// with increasing ts; dequeue order is item2, item3, item1.
func TestQueue_PriorityTieBreakByTs_PQ1(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("item1", 5)
	q.Enqueue("item2", 3)
	q.Enqueue("item3", 3)

	var order []string
	for {
		it, ok := q.TryDequeue()
		if !ok {
			break
		}
		order = append(order, it.Value.Value)
	}
	require.Equal(t, []string{"item2", "item3", "item1"}, order)
}

func TestQueue_TryPeekDoesNotRemove(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("only", 1)

	peeked, ok := q.TryPeek()
	require.True(t, ok)
	require.Equal(t, "only", peeked.Value.Value)
	require.Equal(t, 1, q.Count())

	dequeued, ok := q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, "only", dequeued.Value.Value)
	require.Equal(t, 0, q.Count())
}

func TestQueue_EmptyTryDequeue(t *testing.T) {
	q := New[string, int]()
	_, ok := q.TryDequeue()
	require.False(t, ok)
}

func TestQueue_GetInRangeScansByInsertionTs(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("a", 10)
	q.Enqueue("b", 1)
	q.Enqueue("c", 5)

	earliest, ok := q.GetEarliest()
	require.True(t, ok)
	require.Equal(t, "a", earliest.Value.Value)

	latest, ok := q.GetLatest()
	require.True(t, ok)
	require.Equal(t, "c", latest.Value.Value)

	got, err := q.GetInRange(earliest.Timestamp, latest.Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Timestamp.Ticks, got[i].Timestamp.Ticks)
	}
}

func TestQueue_RemoveOlderThan(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("a", 1)
	mid, _ := q.GetLatest()
	q.Enqueue("b", 1)

	q.RemoveOlderThan(clock.NewTimestamp(mid.Timestamp.Ticks + 1))
	require.Equal(t, 1, q.Count())
	remaining, ok := q.TryPeek()
	require.True(t, ok)
	require.Equal(t, "b", remaining.Value.Value)
}

func TestQueue_GetNearestPrefersLaterOnTie(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("early", 1)
	earlyItem, _ := q.GetLatest()
	q.Enqueue("late", 1)
	lateItem, _ := q.GetLatest()

	mid := clock.NewTimestamp((earlyItem.Timestamp.Ticks + lateItem.Timestamp.Ticks + 1) / 2)
	got, ok := q.GetNearest(mid)
	require.True(t, ok)
	require.Equal(t, "late", got.Value.Value)
}

func TestQueue_Clear(t *testing.T) {
	q := New[string, int]()
	q.Enqueue("a", 1)
	q.Enqueue("b", 2)
	q.Clear()
	require.Equal(t, 0, q.Count())
}
