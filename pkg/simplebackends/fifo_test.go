package simplebackends

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/internal/errs"
)

func TestTemporalFIFOQueue_OrderIsFirstInFirstOut(t *testing.T) {
	q := NewTemporalFIFOQueue[string]()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	var order []string
	for {
		v, ok := q.TryDequeue()
		if !ok {
			break
		}
		order = append(order, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTemporalFIFOQueue_DequeueFailsEmptyContainer(t *testing.T) {
	q := NewTemporalFIFOQueue[string]()
	_, err := q.Dequeue()
	require.ErrorIs(t, err, errs.ErrEmptyContainer)
}

func TestTemporalFIFOQueue_Count(t *testing.T) {
	q := NewTemporalFIFOQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	require.Equal(t, 2, q.Count())
	_, ok := q.TryDequeue()
	require.True(t, ok)
	require.Equal(t, 1, q.Count())
}
