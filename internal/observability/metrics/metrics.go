package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssistantMetrics exposes counters/histograms for conversation turns and bookings.
type AssistantMetrics struct {
	turnsTotal         *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	bookingsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	directoryRebuilds  *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_assistant",
			Name:      "turns_total",
			Help:      "Conversation turns by the route that answered them",
		}, []string{"route"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_assistant",
			Name:      "booking_rejections_total",
			Help:      "Booking answers rejected and re-prompted, by stage",
		}, []string{"stage"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_assistant",
			Name:      "bookings_total",
			Help:      "Booking flows that ended, by outcome",
		}, []string{"outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_assistant",
			Name:      "notifications_total",
			Help:      "Confirmation emails by delivery status",
		}, []string{"status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic_assistant",
			Name:      "llm_latency_seconds",
			Help:      "Latency of language model completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		directoryRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic_assistant",
			Name:      "directory_rebuilds_total",
			Help:      "Clinic directory rebuilds by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.rejectionsTotal, m.bookingsTotal, m.notificationsTotal, m.llmLatency, m.directoryRebuilds)
	return m
}

func (m *AssistantMetrics) ObserveTurn(route string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(route).Inc()
}

func (m *AssistantMetrics) ObserveRejection(stage string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(stage).Inc()
}

func (m *AssistantMetrics) ObserveBookingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AssistantMetrics) ObserveNotification(delivered bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !delivered {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

func (m *AssistantMetrics) ObserveLLMLatency(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmLatency.WithLabelValues(provider, status).Observe(d.Seconds())
}

func (m *AssistantMetrics) ObserveDirectoryRebuild(result string) {
	if m == nil {
		return
	}
	m.directoryRebuilds.WithLabelValues(result).Inc()
}
