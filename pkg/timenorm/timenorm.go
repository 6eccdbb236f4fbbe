// Package timenorm converts ambiguous wall-clock inputs into canonical UTC
// clock.Timestamp values according to a configurable policy, and normalizes
// (from, to) range inputs.
package timenorm

import (
	"time"

	"github.com/grafana/temporalcol/internal/errs"
	"github.com/grafana/temporalcol/pkg/clock"
)

// Policy controls how an offset-less (Kind=Unspecified) wall-clock input is
// interpreted.
type Policy int

const (
	// AssumeUtc stamps offset-less input as if it were already UTC. This is
	// the default policy for every backend in this module.
	AssumeUtc Policy = iota
	// AssumeLocal interprets offset-less input as local time and converts it.
	AssumeLocal
	// Reject fails offset-less input with ErrUnspecifiedKind.
	Reject
)

// hasOffset reports whether t carries explicit zone information distinct
// from the implicit "Local" zone Go assigns to time.Time values built
// without one. Go's time.Time does not retain a tri-state
// UTC/Local/Unspecified "Kind" the way some runtimes do, so this module
// treats the zone's fixed offset as the discriminator: UTC (offset 0,
// location UTC) and any non-Local fixed-offset zone count as "offset
// bearing"; the Local location is treated as "unspecified" since that is
// what a caller gets by default from e.g. time.Date without an explicit
// location.
func hasOffset(t time.Time) bool {
	return t.Location() != time.Local
}

// ToUTC converts x to a canonical UTC Timestamp per policy.
//
//   - offset-bearing input (UTC or a fixed zone other than Local): preserved,
//     converted to UTC.
//   - Local input under policy AssumeLocal (or any unrecognized policy
//     value): converted to UTC through the local zone, since Go's time.Time
//     already carries enough information to convert deterministically.
//   - Local input under policy Reject: fails ErrUnspecifiedKind, since Local
//     is indistinguishable from "unspecified" per the note above.
//   - Local input under policy AssumeUtc: reinterprets the wall-clock fields
//     as if they were UTC instead of converting through the local zone.
func ToUTC(x time.Time, policy Policy) (clock.Timestamp, error) {
	if hasOffset(x) {
		return clock.NewTimestamp(clock.TickFromTime(x)), nil
	}

	switch policy {
	case Reject:
		return clock.Timestamp{}, errs.ErrUnspecifiedKind
	case AssumeUtc:
		reinterpreted := time.Date(x.Year(), x.Month(), x.Day(), x.Hour(), x.Minute(), x.Second(), x.Nanosecond(), time.UTC)
		return clock.NewTimestamp(clock.TickFromTime(reinterpreted)), nil
	case AssumeLocal:
		return clock.NewTimestamp(clock.TickFromTime(x)), nil
	default:
		return clock.NewTimestamp(clock.TickFromTime(x)), nil
	}
}

// Ticks is a convenience wrapper returning the raw tick value.
func Ticks(x time.Time, policy Policy) (clock.Tick, error) {
	ts, err := ToUTC(x, policy)
	if err != nil {
		return 0, err
	}
	return ts.Ticks, nil
}

// NormalizeRange converts (from, to) to UTC and fails ErrInvalidRange if the
// normalized from is after the normalized to.
func NormalizeRange(from, to time.Time, policy Policy) (clock.Timestamp, clock.Timestamp, error) {
	fromUTC, err := ToUTC(from, policy)
	if err != nil {
		return clock.Timestamp{}, clock.Timestamp{}, err
	}
	toUTC, err := ToUTC(to, policy)
	if err != nil {
		return clock.Timestamp{}, clock.Timestamp{}, err
	}
	if fromUTC.Ticks > toUTC.Ticks {
		return clock.Timestamp{}, clock.Timestamp{}, errs.ErrInvalidRange
	}
	return fromUTC, toUTC, nil
}

// CheckRange validates an already-normalized (from, to) pair of timestamps,
// used internally by backends whose public API accepts clock.Timestamp
// directly rather than time.Time.
func CheckRange(from, to clock.Timestamp) error {
	if from.Ticks > to.Ticks {
		return errs.ErrInvalidRange
	}
	return nil
}
