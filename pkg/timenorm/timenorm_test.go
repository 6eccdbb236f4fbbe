package timenorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
)

func TestToUTC_OffsetBearingInputPreserved(t *testing.T) {
	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	got, err := ToUTC(in, AssumeUtc)
	require.NoError(t, err)
	require.Equal(t, clock.TickFromTime(in), got.Ticks)
}

func TestToUTC_LocalUnderRejectFails(t *testing.T) {
	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)
	_, err := ToUTC(in, Reject)
	require.ErrorIs(t, err, errs.ErrUnspecifiedKind)
}

func TestToUTC_LocalUnderAssumeUtcReinterprets(t *testing.T) {
	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)
	got, err := ToUTC(in, AssumeUtc)
	require.NoError(t, err)

	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, clock.TickFromTime(want), got.Ticks)
}

func TestToUTC_LocalUnderAssumeLocalConverts(t *testing.T) {
	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)
	got, err := ToUTC(in, AssumeLocal)
	require.NoError(t, err)
	require.Equal(t, clock.TickFromTime(in), got.Ticks)
}

func TestNormalizeRange_RejectsFromAfterTo(t *testing.T) {
	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := NormalizeRange(later, earlier, AssumeUtc)
	require.ErrorIs(t, err, errs.ErrInvalidRange)
}

func TestNormalizeRange_AcceptsEqualBounds(t *testing.T) {
	x := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	from, to, err := NormalizeRange(x, x, AssumeUtc)
	require.NoError(t, err)
	require.Equal(t, from, to)
}

func TestCheckRange(t *testing.T) {
	require.NoError(t, CheckRange(clock.NewTimestamp(10), clock.NewTimestamp(20)))
	require.NoError(t, CheckRange(clock.NewTimestamp(10), clock.NewTimestamp(10)))
	require.ErrorIs(t, CheckRange(clock.NewTimestamp(20), clock.NewTimestamp(10)), errs.ErrInvalidRange)
}
