// Package metrics exposes Prometheus collectors for backend calls, refresh
// cycles, lifecycle counts and document exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/david/rfp-desk/internal/apperr"
	"github.com/david/rfp-desk/internal/reconcile"
)

const namespace = "rfpdesk"

// Collectors owns one registry so several servers (and tests) never share
// global state.
type Collectors struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	records         *prometheus.GaugeVec
	ledgerDegraded  prometheus.Gauge
	exports         *prometheus.CounterVec
	exportBytes     prometheus.Histogram
	submissions     *prometheus.CounterVec
}

func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Collaborator requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Collaborator request latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Fetch-then-reconcile cycles by outcome.",
		}, []string{"outcome"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "opportunities",
			Help:      "Opportunities in the current snapshot by summary bucket.",
		}, []string{"bucket"}),
		ledgerDegraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_degraded",
			Help:      "1 when the last reconciliation ran against an empty fallback ledger.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "PDF exports by outcome.",
		}, []string{"outcome"}),
		exportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_size_bytes",
			Help:      "Size of rendered PDF documents.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Proposal submissions by outcome.",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.backendRequests,
		c.backendLatency,
		c.refreshes,
		c.records,
		c.ledgerDegraded,
		c.exports,
		c.exportBytes,
		c.submissions,
	)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// outcome labels an error by its kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// ObserveRequest records one collaborator call.
func (c *Collectors) ObserveRequest(endpoint string, err error, elapsed time.Duration) {
	c.backendRequests.WithLabelValues(endpoint, outcome(err)).Inc()
	c.backendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveRefresh records a finished refresh and publishes its counts. A
// failed refresh leaves the gauges at their previous values.
func (c *Collectors) ObserveRefresh(snap *reconcile.Snapshot, err error) {
	c.refreshes.WithLabelValues(outcome(err)).Inc()
	if err != nil || snap == nil {
		return
	}
	s := snap.Summary
	c.records.WithLabelValues("total").Set(float64(s.Total))
	c.records.WithLabelValues("open").Set(float64(s.Open))
	c.records.WithLabelValues("closing_soon").Set(float64(s.ClosingSoon))
	c.records.WithLabelValues("won").Set(float64(s.Won))
	c.records.WithLabelValues("in_progress").Set(float64(s.InProgress))
	c.records.WithLabelValues("submitted").Set(float64(s.Submitted))
	if snap.LedgerDegraded {
		c.ledgerDegraded.Set(1)
	} else {
		c.ledgerDegraded.Set(0)
	}
}

func (c *Collectors) ObserveExport(size int, err error) {
	c.exports.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		c.exportBytes.Observe(float64(size))
	}
}

func (c *Collectors) ObserveSubmission(err error) {
	c.submissions.WithLabelValues(outcome(err)).Inc()
}
