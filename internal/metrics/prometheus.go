package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results
const (
	ResultHit          = "hit"
	ResultEmpty        = "empty"
	ResultInsufficient = "insufficient"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Lookup metrics
	LookupsTotal   *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec

	// Ring metrics
	RingVirtualPoints prometheus.Gauge
	RingPhysicalNodes prometheus.Gauge

	// Membership metrics
	MembershipChanges   *prometheus.CounterVec
	MembershipRefreshes *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_lookups_total",
				Help: "Total number of placement lookups",
			},
			[]string{"operation", "result"},
		),

		LookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placement_lookup_duration_seconds",
				Help:    "Duration of placement lookups",
				Buckets: []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005},
			},
			[]string{"operation"},
		),

		RingVirtualPoints: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "placement_ring_virtual_points",
				Help: "Number of distinct positions on the hash ring",
			},
		),

		RingPhysicalNodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "placement_ring_physical_nodes",
				Help: "Number of physical nodes on the hash ring",
			},
		),

		MembershipChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_membership_changes_total",
				Help: "Total number of nodes added to or removed from the ring",
			},
			[]string{"change"},
		),

		MembershipRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placement_membership_refresh_total",
				Help: "Total number of membership refreshes",
			},
			[]string{"status"},
		),
	}
}

// RecordLookup records a lookup and its duration
func (m *Metrics) RecordLookup(operation, result string, duration float64) {
	m.LookupsTotal.WithLabelValues(operation, result).Inc()
	m.LookupDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateRingSize updates the ring gauges
func (m *Metrics) UpdateRingSize(virtualPoints, physicalNodes int) {
	m.RingVirtualPoints.Set(float64(virtualPoints))
	m.RingPhysicalNodes.Set(float64(physicalNodes))
}

// RecordMembershipChange records a node joining ("added") or leaving ("removed") the ring
func (m *Metrics) RecordMembershipChange(change string) {
	m.MembershipChanges.WithLabelValues(change).Inc()
}

// RecordRefresh records a membership refresh outcome
func (m *Metrics) RecordRefresh(status string) {
	m.MembershipRefreshes.WithLabelValues(status).Inc()
}
