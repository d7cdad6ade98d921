// Package metrics exposes Prometheus collectors for the report service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	instance *Collector
)

// Collector groups every metric the service records.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	reportsTotal   *prometheus.CounterVec
	reportDuration prometheus.Histogram
	reportPlies    prometheus.Histogram

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec

	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter

	activeStreams prometheus.Gauge
}

// Default returns the process-wide collector, registering it on first use.
func Default() *Collector {
	once.Do(func() {
		instance = &Collector{
			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgn_report_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pgn_report_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
			reportsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgn_report_reports_total",
					Help: "Reports generated, by outcome",
				},
				[]string{"status"},
			),
			reportDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pgn_report_report_duration_seconds",
					Help:    "Time to analyse a whole game",
					Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
				},
			),
			reportPlies: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pgn_report_report_positions",
					Help:    "Positions per report request",
					Buckets: prometheus.LinearBuckets(10, 20, 10),
				},
			),
			evaluationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgn_report_evaluations_total",
					Help: "Position evaluations, by backend and outcome",
				},
				[]string{"backend", "status"},
			),
			evaluationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pgn_report_evaluation_duration_seconds",
					Help:    "Single position evaluation latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"backend"},
			),
			cacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgn_report_cache_hits_total",
					Help: "Evaluation cache hits",
				},
			),
			cacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgn_report_cache_misses_total",
					Help: "Evaluation cache misses",
				},
			),
			activeStreams: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pgn_report_active_streams",
					Help: "Open report websocket streams",
				},
			),
		}
	})
	return instance
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func (c *Collector) RecordHTTPRequest(method, route, status string, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordReport(status string, positions int, d time.Duration) {
	c.reportsTotal.WithLabelValues(status).Inc()
	c.reportPlies.Observe(float64(positions))
	if status == "success" {
		c.reportDuration.Observe(d.Seconds())
	}
}

func (c *Collector) RecordEvaluation(backend, status string, d time.Duration) {
	c.evaluationsTotal.WithLabelValues(backend, status).Inc()
	c.evaluationDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (c *Collector) RecordCacheHit()  { c.cacheHitsTotal.Inc() }
func (c *Collector) RecordCacheMiss() { c.cacheMissesTotal.Inc() }

func (c *Collector) StreamOpened() { c.activeStreams.Inc() }
func (c *Collector) StreamClosed() { c.activeStreams.Dec() }
