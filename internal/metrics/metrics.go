// Package metrics centralizes the promauto-registered counters/gauges every
// backend exposes, following the friggdb/pool convention of a handful of
// package-level prometheus vars rather than one registry per instance.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set is the trio of metrics every temporalcol backend records against its
// own instance id (so a process holding many containers of the same kind
// gets a distinct series per instance).
type Set struct {
	inserts *prometheus.CounterVec
	removes *prometheus.CounterVec
	items   *prometheus.GaugeVec
}

// NewSet registers the metric family for a given backend subsystem, e.g.
// "segmented_array", "multimap", with the prometheus default registry via
// promauto. Every call registers anew; calling it twice with the same
// subsystem panics on the duplicate registration.
func NewSet(subsystem string) *Set {
	return &Set{
		inserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "temporalcol",
			Subsystem: subsystem,
			Name:      "inserts_total",
			Help:      "Total items inserted into this container instance.",
		}, []string{"container_id"}),
		removes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "temporalcol",
			Subsystem: subsystem,
			Name:      "removes_total",
			Help:      "Total items removed from this container instance.",
		}, []string{"container_id"}),
		items: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "temporalcol",
			Subsystem: subsystem,
			Name:      "items",
			Help:      "Current number of items stored in this container instance.",
		}, []string{"container_id"}),
	}
}

// Inserted records n items (n may be >1 for bulk inserts) added by id.
func (s *Set) Inserted(id string, n int) {
	if n <= 0 {
		return
	}
	s.inserts.WithLabelValues(id).Add(float64(n))
}

// Removed records n items removed by id.
func (s *Set) Removed(id string, n int) {
	if n <= 0 {
		return
	}
	s.removes.WithLabelValues(id).Add(float64(n))
}

// SetCount sets the current item gauge for id.
func (s *Set) SetCount(id string, n int) {
	s.items.WithLabelValues(id).Set(float64(n))
}
