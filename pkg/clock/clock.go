// Package clock provides the process-wide monotonic UTC tick source used by
// every temporalcol backend, plus the Tick and Timestamp types everything
// else in the module is built on.
package clock

import (
	"reflect"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Tick counts 100ns intervals from the fixed epoch below. It is the unit all
// ordering and range comparisons in this module operate on.
type Tick int64

// epoch matches the .NET DateTime tick epoch (0001-01-01T00:00:00 UTC) that
// the system this module's semantics were distilled from uses, giving Tick
// values a stable, documented meaning independent of any particular
// runtime's clock representation.
var epoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

const ticksPerSecond = int64(time.Second / 100)

// TickFromTime converts a UTC time.Time into a Tick. The caller is
// responsible for ensuring t is already UTC; TimeNormalization (package
// timenorm) is the public entry point that guarantees that.
func TickFromTime(t time.Time) Tick {
	secs := t.Unix() - epoch.Unix()
	return Tick(secs*ticksPerSecond + int64(t.Nanosecond())/100)
}

// Time converts a Tick back to a UTC time.Time.
func (t Tick) Time() time.Time {
	secs, rem := int64(t)/ticksPerSecond, int64(t)%ticksPerSecond
	return time.Unix(epoch.Unix()+secs, rem*100).UTC()
}

// Sub returns the duration between two ticks.
func (t Tick) Sub(o Tick) time.Duration {
	return time.Duration(int64(t-o)*100) * time.Nanosecond
}

// Timestamp is a canonical instant: UTC ticks with (always) zero offset.
type Timestamp struct {
	Ticks Tick
}

// NewTimestamp wraps a raw tick count.
func NewTimestamp(ticks Tick) Timestamp { return Timestamp{Ticks: ticks} }

// Before reports whether ts occurs strictly before o.
func (ts Timestamp) Before(o Timestamp) bool { return ts.Ticks < o.Ticks }

// After reports whether ts occurs strictly after o.
func (ts Timestamp) After(o Timestamp) bool { return ts.Ticks > o.Ticks }

// Equal reports tick equality.
func (ts Timestamp) Equal(o Timestamp) bool { return ts.Ticks == o.Ticks }

// Sub returns ts - o as a duration.
func (ts Timestamp) Sub(o Timestamp) time.Duration { return ts.Ticks.Sub(o.Ticks) }

// Time returns the UTC time.Time this timestamp represents.
func (ts Timestamp) Time() time.Time { return ts.Ticks.Time() }

func (ts Timestamp) String() string { return ts.Time().Format(time.RFC3339Nano) }

// domainCounters holds one atomic.Int64 per value-type domain T, keyed by
// T's reflect.Type so that Now[T] and Now[U] never contend on the same
// counter (domain isolation per spec §4.1) even though the counters all
// live in one process-wide registry.
var domainCounters sync.Map // map[reflect.Type]*atomic.Int64

func counterFor(key reflect.Type) *atomic.Int64 {
	if v, ok := domainCounters.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := domainCounters.LoadOrStore(key, atomic.NewInt64(int64(TickFromTime(time.Now()))-1))
	return v.(*atomic.Int64)
}

// Now returns a strictly increasing Timestamp for the value-type domain T.
// Successive calls for the same T, even from concurrent goroutines, never
// return the same or a decreasing tick: the counter is clamped to
// max(last_issued+1, wall_now), so a backward step of the OS clock cannot
// make ticks go backwards either.
func Now[T any]() Timestamp {
	return NowForKey(reflect.TypeFor[T]())
}

// NowForKey is the untyped form of Now, used by generic containers whose
// domain key is computed once (e.g. the stored value type) rather than
// re-derived via reflect on every call.
func NowForKey(key reflect.Type) Timestamp {
	counter := counterFor(key)
	for {
		old := counter.Load()
		wallTicks := int64(TickFromTime(time.Now()))
		next := old + 1
		if wallTicks > next {
			next = wallTicks
		}
		if counter.CAS(old, next) {
			return Timestamp{Ticks: Tick(next)}
		}
	}
}

// DomainKey returns the reflect.Type used to key the monotonic counter for
// value type T, for callers (containers) that want to cache it once instead
// of calling Now[T] and paying a reflect.TypeFor on every insert.
func DomainKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
