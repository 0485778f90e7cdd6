package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AvailabilityMetrics exposes counters/histograms for slot queries and bookings.
type AvailabilityMetrics struct {
	slotRequests     *prometheus.CounterVec
	slotsReturned    prometheus.Histogram
	slotLatency      prometheus.Histogram
	skippedIntervals prometheus.Counter
	bookings         *prometheus.CounterVec
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		slotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "slot_requests_total",
			Help:      "Total available-slot queries by outcome",
		}, []string{"outcome"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		slotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "slot_query_seconds",
			Help:      "Latency of available-slot queries",
			Buckets:   prometheus.DefBuckets,
		}),
		skippedIntervals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "skipped_intervals_total",
			Help:      "Working-hour intervals ignored because they could not be parsed",
		}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotRequests, m.slotsReturned, m.slotLatency, m.skippedIntervals, m.bookings)
	return m
}

func (m *AvailabilityMetrics) ObserveSlotQuery(outcome string, slots int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.slotRequests.WithLabelValues(outcome).Inc()
	m.slotLatency.Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		m.slotsReturned.Observe(float64(slots))
	}
}

func (m *AvailabilityMetrics) ObserveSkippedIntervals(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedIntervals.Add(float64(n))
}

func (m *AvailabilityMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)
