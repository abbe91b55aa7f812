// Package metrics exports Prometheus metrics for routing, workflow runs
// and provider calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/client"
	"github.com/spetersoncode/concierge/orchestrator"
)

const namespace = "concierge"

// Status label values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics records orchestrator and provider activity. It implements
// orchestrator.Observer.
type Metrics struct {
	registry *prometheus.Registry

	routedTotal      *prometheus.CounterVec
	runsActive       prometheus.Gauge
	runDuration      *prometheus.HistogramVec
	runsTotal        *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	providerDuration *prometheus.HistogramVec
	providerTotal    *prometheus.CounterVec
}

var _ orchestrator.Observer = (*Metrics)(nil)

// New creates Metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		routedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routed_total",
				Help:      "Total number of requests routed to a workflow",
			},
			[]string{"workflow", "route"}, // route: classified, ambiguous, override
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_active",
				Help:      "Number of workflow runs in progress",
			},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Histogram of workflow run duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"workflow", "status"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished workflow runs by outcome code",
			},
			[]string{"workflow", "code"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Histogram of workflow step duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"workflow", "step"},
		),
		providerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Duration of provider API calls in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		providerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of provider API calls",
			},
			[]string{"provider", "operation", "status", "category"},
		),
	}

	m.registry.MustRegister(
		m.routedTotal, m.runsActive, m.runDuration, m.runsTotal,
		m.stepDuration, m.providerDuration, m.providerTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Routed counts a routing decision and marks a run as active.
func (m *Metrics) Routed(workflow string, cls orchestrator.Classification, override bool) {
	route := "classified"
	switch {
	case override:
		route = "override"
	case cls.Ambiguous:
		route = "ambiguous"
	}
	m.routedTotal.WithLabelValues(workflow, route).Inc()
	m.runsActive.Inc()
}

// StepCompleted records a step duration.
func (m *Metrics) StepCompleted(workflow, step string, elapsed time.Duration) {
	m.stepDuration.WithLabelValues(workflow, step).Observe(elapsed.Seconds())
}

// Finished records the run outcome.
func (m *Metrics) Finished(workflow, code string, elapsed time.Duration) {
	m.runsActive.Dec()
	status := statusSuccess
	if code != "" {
		status = statusError
	} else {
		code = "ok"
	}
	m.runDuration.WithLabelValues(workflow, status).Observe(elapsed.Seconds())
	m.runsTotal.WithLabelValues(workflow, code).Inc()
}

// ObserveClient records provider calls from a client event channel until
// the channel closes or ctx is done.
func (m *Metrics) ObserveClient(ctx context.Context, events <-chan client.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.recordClientEvent(ev)
		}
	}
}

func (m *Metrics) recordClientEvent(ev client.Event) {
	provider := string(ev.Provider)
	switch ev.Type {
	case client.EventRequestComplete:
		m.providerDuration.WithLabelValues(provider, ev.Operation).Observe(ev.Duration.Seconds())
		m.providerTotal.WithLabelValues(provider, ev.Operation, statusSuccess, "").Inc()
	case client.EventRequestError:
		m.providerDuration.WithLabelValues(provider, ev.Operation).Observe(ev.Duration.Seconds())
		category := "unknown"
		var ce concierge.CategorizedError
		if errors.As(ev.Error, &ce) {
			category = string(ce.Category())
		}
		m.providerTotal.WithLabelValues(provider, ev.Operation, statusError, category).Inc()
	}
}
