// Package config provides a thin yaml.v3 decode helper for backend Options
// types (currently only segmentedarray.Options), mirroring friggdb/config.go's plain
// struct-with-yaml-tags convention. There is no flag/env binding and no CLI
// here: per spec §1, CLI wiring is out of scope, and this is only the
// in-scope sliver of "configuration" — turning bytes into an Options value.
package config

import "gopkg.in/yaml.v3"

// Decode unmarshals data into a new T and returns it. A backend package with
// Options exposes a typed wrapper (segmentedarray.DecodeOptions) so callers
// never have to name this generic directly.
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := yaml.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
