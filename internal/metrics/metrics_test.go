package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSet_TracksInsertsRemovesAndGauge(t *testing.T) {
	s := NewSet("metrics_test_subsystem")

	s.Inserted("abc", 3)
	s.Removed("abc", 1)
	s.SetCount("abc", 2)

	require.Equal(t, float64(3), testutil.ToFloat64(s.inserts.WithLabelValues("abc")))
	require.Equal(t, float64(1), testutil.ToFloat64(s.removes.WithLabelValues("abc")))
	require.Equal(t, float64(2), testutil.ToFloat64(s.items.WithLabelValues("abc")))
}

func TestSet_ZeroOrNegativeCountsAreNoOps(t *testing.T) {
	s := NewSet("metrics_test_subsystem_noop")

	s.Inserted("x", 0)
	s.Removed("x", -5)

	require.Equal(t, float64(0), testutil.ToFloat64(s.inserts.WithLabelValues("x")))
	require.Equal(t, float64(0), testutil.ToFloat64(s.removes.WithLabelValues("x")))
}
