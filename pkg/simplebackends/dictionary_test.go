package simplebackends

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemporalDictionary_SetOverwritesAndRestamps(t *testing.T) {
	d := NewTemporalDictionary[string, int]()
	d.Set("k", 1)
	first, _ := d.GetLatest()

	d.Set("k", 2)
	second, _ := d.GetLatest()

	require.Equal(t, 1, d.Count())
	v, ok := d.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.True(t, first.Timestamp.Ticks <= second.Timestamp.Ticks)
}

func TestTemporalDictionary_Delete(t *testing.T) {
	d := NewTemporalDictionary[string, int]()
	d.Set("k", 1)
	require.True(t, d.Delete("k"))
	require.False(t, d.Delete("k"))
	_, ok := d.Get("k")
	require.False(t, ok)
}

func TestTemporalDictionary_GetMissingKey(t *testing.T) {
	d := NewTemporalDictionary[string, int]()
	_, ok := d.Get("missing")
	require.False(t, ok)
}

func TestTemporalDictionary_Clear(t *testing.T) {
	d := NewTemporalDictionary[string, int]()
	d.Set("a", 1)
	d.Set("b", 2)
	d.Clear()
	require.Equal(t, 0, d.Count())
}
