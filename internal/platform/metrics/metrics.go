// Package metrics owns the process Prometheus registry and the /metrics handler.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a dedicated Prometheus registry so tests and the server do
// not share global state.
type Registry struct {
	reg       *prometheus.Registry
	buildInfo *prometheus.GaugeVec
	up        prometheus.Gauge
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg: reg,
		buildInfo: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "pixpax_build_info",
			Help: "Build metadata; always 1",
		}, []string{"version", "environment"}),
		up: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pixpax_up",
			Help: "1 while the server accepts requests",
		}),
	}
}

// Registerer is passed to component metric constructors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) SetBuildInfo(version, environment string) {
	r.buildInfo.WithLabelValues(version, environment).Set(1)
}

func (r *Registry) SetUp(up bool) {
	if up {
		r.up.Set(1)
		return
	}
	r.up.Set(0)
}

// WatchDB exports connection pool statistics for db under the given name.
func (r *Registry) WatchDB(db *sql.DB, name string) {
	r.reg.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
