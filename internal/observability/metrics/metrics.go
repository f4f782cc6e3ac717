package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for availability and appointment flows.
type SchedulingMetrics struct {
	slotEdits        *prometheus.CounterVec
	bookings         *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	outboxDeliveries *prometheus.CounterVec
	bookingLatency   prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		slotEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisormatch",
			Subsystem: "availability",
			Name:      "slot_edits_total",
			Help:      "Availability slot adds and removals by outcome",
		}, []string{"action", "result"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisormatch",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Consumer booking requests by outcome",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisormatch",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by from/to/result",
		}, []string{"from", "to", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisormatch",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Notification emails by kind and outcome",
		}, []string{"kind", "result"}),
		outboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "advisormatch",
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox entries delivered by event type and outcome",
		}, []string{"event_type", "result"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advisormatch",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of booking request handling",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotEdits, m.bookings, m.transitions, m.notifications, m.outboxDeliveries, m.bookingLatency)
	return m
}

func (m *SchedulingMetrics) ObserveSlotEdit(action, result string) {
	if m == nil {
		return
	}
	m.slotEdits.WithLabelValues(action, result).Inc()
}

func (m *SchedulingMetrics) ObserveBooking(result string, seconds float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

func (m *SchedulingMetrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, resultLabel(err)).Inc()
}

func (m *SchedulingMetrics) ObserveOutboxDelivery(eventType string, err error) {
	if m == nil {
		return
	}
	m.outboxDeliveries.WithLabelValues(eventType, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
