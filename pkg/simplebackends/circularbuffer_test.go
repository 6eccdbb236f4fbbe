package simplebackends

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
)

// CB-1 Overwrite: circular buffer capacity 3; add a,b,c,d; snapshot is
// [b,c,d] in insertion order.
func TestCircularBuffer_OverwritesOldestOnOverflow_CB1(t *testing.T) {
	cb, err := NewCircularBuffer[string](3)
	require.NoError(t, err)
	cb.Add("a")
	cb.Add("b")
	cb.Add("c")
	cb.Add("d")

	require.Equal(t, []string{"b", "c", "d"}, cb.Snapshot())
	require.Equal(t, 3, cb.Count())
}

func TestCircularBuffer_ConstructorRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewCircularBuffer[int](0)
	require.ErrorIs(t, err, errs.ErrConstructionInvalid)

	_, err = NewCircularBuffer[int](-1)
	require.ErrorIs(t, err, errs.ErrConstructionInvalid)
}

func TestCircularBuffer_EarliestAndLatestTrackRingAfterOverwrite(t *testing.T) {
	cb, err := NewCircularBuffer[string](2)
	require.NoError(t, err)
	cb.Add("a")
	cb.Add("b")
	cb.Add("c")

	earliest, ok := cb.GetEarliest()
	require.True(t, ok)
	require.Equal(t, "b", earliest.Value)

	latest, ok := cb.GetLatest()
	require.True(t, ok)
	require.Equal(t, "c", latest.Value)
}

func TestCircularBuffer_RemoveOlderThanRebuildsRing(t *testing.T) {
	cb, err := NewCircularBuffer[string](4)
	require.NoError(t, err)
	cb.Add("a")
	mid, _ := cb.GetLatest()
	cb.Add("b")
	cb.Add("c")

	cb.RemoveOlderThan(clock.NewTimestamp(mid.Timestamp.Ticks + 1))
	require.Equal(t, []string{"b", "c"}, cb.Snapshot())
}
