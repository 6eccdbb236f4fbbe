package simplebackends

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
)

func TestSlidingWindowSet_AddDedupes(t *testing.T) {
	w, err := NewSlidingWindowSet[string](time.Hour)
	require.NoError(t, err)
	require.True(t, w.Add("a"))
	require.False(t, w.Add("a"))
	require.Equal(t, 1, w.Count())
}

func TestSlidingWindowSet_ConstructorRejectsNonPositiveWindow(t *testing.T) {
	_, err := NewSlidingWindowSet[string](0)
	require.ErrorIs(t, err, errs.ErrConstructionInvalid)

	_, err = NewSlidingWindowSet[string](-time.Second)
	require.ErrorIs(t, err, errs.ErrConstructionInvalid)
}

func TestSlidingWindowSet_ReadsDoNotImplicitlyExpire(t *testing.T) {
	w, err := NewSlidingWindowSet[string](time.Nanosecond)
	require.NoError(t, err)
	w.Add("a")
	time.Sleep(time.Millisecond)

	require.Equal(t, 1, w.Count())
	_, ok := w.GetLatest()
	require.True(t, ok)
}

func TestSlidingWindowSet_RemoveExpiredDropsOutsideWindow(t *testing.T) {
	w, err := NewSlidingWindowSet[string](100 * time.Millisecond)
	require.NoError(t, err)
	w.Add("old")
	old, _ := w.GetLatest()

	w.Add("new")

	cutoffNow := clock.NewTimestamp(old.Timestamp.Ticks + ticksFromDuration(100*time.Millisecond) + 1)
	w.RemoveExpired(cutoffNow)

	require.Equal(t, 1, w.Count())
	remaining, ok := w.GetEarliest()
	require.True(t, ok)
	require.Equal(t, "new", remaining.Value)
}
