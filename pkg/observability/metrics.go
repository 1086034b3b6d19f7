package observability

import (
	"net/http"
	"time"

	pkgerrors "humaneval/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service.
// Every method is safe on a nil *Collector, which records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Command metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	StaleSubmissions  prometheus.Counter

	// Sink metrics
	SinkAppends  *prometheus.CounterVec
	SinkDuration *prometheus.HistogramVec

	// Catalog metrics
	CatalogItems   prometheus.Gauge
	CatalogReloads *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Commands by type and outcome code",
			},
			[]string{"command", "outcome"},
		),
		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Command handling latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of rater sessions given a fresh subset",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions whose cursor reached the end",
		}),
		StaleSubmissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_submissions_total",
			Help:      "Ratings rejected because they were not for the current item",
		}),
		SinkAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_appends_total",
				Help:      "Rating appends by sink and outcome",
			},
			[]string{"sink", "status"},
		),
		SinkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sink_append_duration_seconds",
				Help:      "Rating append latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
		CatalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Number of items currently in the pool",
		}),
		CatalogReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Catalog reload attempts by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Commands,
		c.CommandDuration,
		c.SessionsStarted,
		c.SessionsCompleted,
		c.StaleSubmissions,
		c.SinkAppends,
		c.SinkDuration,
		c.CatalogItems,
		c.CatalogReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCommand records one handled command. Failures are labelled with
// their application error code when they carry one.
func (c *Collector) ObserveCommand(command string, err error, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if appErr := pkgerrors.GetAppError(err); appErr != nil && appErr.Code != "" {
			outcome = appErr.Code
		}
	}
	c.Commands.WithLabelValues(command, outcome).Inc()
	c.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// SessionStarted counts a fresh draw
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.SessionsStarted.Inc()
}

// SessionCompleted counts a session reaching its end
func (c *Collector) SessionCompleted() {
	if c == nil {
		return
	}
	c.SessionsCompleted.Inc()
}

// StaleSubmission counts a rejected duplicate or out-of-order rating
func (c *Collector) StaleSubmission() {
	if c == nil {
		return
	}
	c.StaleSubmissions.Inc()
}

// ObserveAppend records one sink append outcome
func (c *Collector) ObserveAppend(sink string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.SinkAppends.WithLabelValues(sink, status).Inc()
	c.SinkDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// CatalogLoaded records a catalog (re)load
func (c *Collector) CatalogLoaded(items int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.CatalogReloads.WithLabelValues("failure").Inc()
		return
	}
	c.CatalogReloads.WithLabelValues("success").Inc()
	c.CatalogItems.Set(float64(items))
}
