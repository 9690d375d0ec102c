package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "herdsman"

// Reload and commit results.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultUnchanged = "unchanged"
)

// Registry holds all application metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	// ReloadsTotal counts configuration reloads by trigger and result.
	ReloadsTotal *prometheus.CounterVec
	// ReloadDuration observes script execution time in seconds.
	ReloadDuration prometheus.Histogram
	// CommitsTotal counts commits onto the server by result.
	CommitsTotal *prometheus.CounterVec
	// SettingsConfigured is the number of settings in the overlay.
	SettingsConfigured prometheus.Gauge
	// LastReloadTimestamp is the Unix time of the last successful reload.
	LastReloadTimestamp prometheus.Gauge
}

// NewRegistry creates the metrics and registers them, together with the
// build info and Go runtime collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "reloads_total",
			Help:      "Configuration reloads by trigger and result",
		}, []string{"trigger", "result"}),

		ReloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "reload_duration_seconds",
			Help:      "Time spent running the configuration script",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),

		CommitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "commits_total",
			Help:      "Configuration commits onto the server by result",
		}, []string{"result"}),

		SettingsConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "settings_configured",
			Help:      "Number of settings present in the configuration overlay",
		}),

		LastReloadTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "config",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix timestamp of the last successful reload",
		}),
	}

	r.reg.MustRegister(
		r.ReloadsTotal,
		r.ReloadDuration,
		r.CommitsTotal,
		r.SettingsConfigured,
		r.LastReloadTimestamp,
		NewCollector(),
		collectors.NewGoCollector(),
	)
	return r
}

// Gatherer returns the underlying registry for scraping or tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Registerer lets other components add their collectors to the registry.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
