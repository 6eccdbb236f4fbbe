package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleOptions struct {
	Capacity int    `yaml:"capacity"`
	Name     string `yaml:"name"`
}

func TestDecode(t *testing.T) {
	got, err := Decode[sampleOptions]([]byte("capacity: 4\nname: widgets\n"))
	require.NoError(t, err)
	require.Equal(t, sampleOptions{Capacity: 4, Name: "widgets"}, got)
}

func TestDecode_InvalidYAML(t *testing.T) {
	_, err := Decode[sampleOptions]([]byte("capacity: [this is not an int\n"))
	require.Error(t, err)
}
