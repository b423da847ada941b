// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "herdsync"

const (
	LabelEntity    = "entity"
	LabelOperation = "operation"
	LabelTransport = "transport"
	LabelRoute     = "route"
	LabelStatus    = "status"
	LabelReason    = "reason"
)

// Push operations as recorded under LabelOperation.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

var latencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	recordsPushed   *prometheus.CounterVec
	recordsPulled   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	inFlight        prometheus.Gauge
	authFailures    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		recordsPushed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_pushed_total",
			Help:      "Records accepted from push batches.",
		}, []string{LabelEntity, LabelOperation}),
		recordsPulled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_pulled_total",
			Help:      "Records returned by pulls.",
		}, []string{LabelEntity}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency by transport and route.",
			Buckets:   latencyBuckets,
		}, []string{LabelTransport, LabelRoute}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests by transport, route and status.",
		}, []string{LabelTransport, LabelRoute, LabelStatus}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		authFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credentials and tokens.",
		}, []string{LabelReason}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordPushed(entity, op string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsPushed.WithLabelValues(entity, op).Add(float64(n))
}

func (m *Metrics) RecordPulled(entity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsPulled.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(transport, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(transport, route).Observe(d.Seconds())
	m.requestsTotal.WithLabelValues(transport, route, status).Inc()
}

// Begin marks a request in flight and returns the func that ends it.
func (m *Metrics) Begin() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// HTTPStatus formats an HTTP code for LabelStatus.
func HTTPStatus(code int) string {
	return strconv.Itoa(code)
}
