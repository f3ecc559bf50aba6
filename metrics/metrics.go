package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the API exports. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpInflight        prometheus.Gauge

	DesignRequestsCounter *prometheus.CounterVec
	PaymentsCounter       *prometheus.CounterVec
	WebhookEventsCounter  *prometheus.CounterVec
	EmailsCounter         *prometheus.CounterVec
	AIGenerationsCounter  *prometheus.CounterVec
	UploadsCounter        *prometheus.CounterVec
}

// New registers the collectors on a fresh registry using the given name prefix
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HttpInflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_http_inflight_requests",
				Help: "HTTP requests currently being served",
			},
		),

		DesignRequestsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_design_requests_total",
				Help: "Design request lifecycle operations",
			},
			[]string{"operation"},
		),
		PaymentsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_payments_total",
				Help: "Payment attempts by path and outcome",
			},
			[]string{"payment_type", "outcome"},
		),
		WebhookEventsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_stripe_webhook_events_total",
				Help: "Stripe webhook deliveries by event type and handling result",
			},
			[]string{"event_type", "result"},
		),
		EmailsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_emails_total",
				Help: "Confirmation emails by recipient and outcome",
			},
			[]string{"recipient", "outcome"},
		),
		AIGenerationsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_ai_generations_total",
				Help: "AI inspiration calls by outcome",
			},
			[]string{"outcome"},
		),
		UploadsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_design_file_uploads_total",
				Help: "Design file uploads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HttpRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

func (m *Metrics) InflightInc() {
	if m != nil {
		m.HttpInflight.Inc()
	}
}

func (m *Metrics) InflightDec() {
	if m != nil {
		m.HttpInflight.Dec()
	}
}

func (m *Metrics) DesignRequest(operation string) {
	if m != nil {
		m.DesignRequestsCounter.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) Payment(paymentType, outcome string) {
	if m != nil {
		m.PaymentsCounter.WithLabelValues(paymentType, outcome).Inc()
	}
}

func (m *Metrics) WebhookEvent(eventType, result string) {
	if m != nil {
		m.WebhookEventsCounter.WithLabelValues(eventType, result).Inc()
	}
}

func (m *Metrics) Email(recipient, outcome string) {
	if m != nil {
		m.EmailsCounter.WithLabelValues(recipient, outcome).Inc()
	}
}

func (m *Metrics) AIGeneration(outcome string) {
	if m != nil {
		m.AIGenerationsCounter.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Upload(outcome string) {
	if m != nil {
		m.UploadsCounter.WithLabelValues(outcome).Inc()
	}
}
