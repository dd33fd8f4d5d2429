package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pixpax/internal/platform/health"
	"pixpax/pkg/platform/middleware/device"
	"pixpax/pkg/platform/middleware/metadata"
	"pixpax/pkg/platform/middleware/request"
	"pixpax/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a feature's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// RouterConfig collects what NewRouter mounts. Nil members are skipped.
type RouterConfig struct {
	Logger         *slog.Logger
	TrustedProxies metadata.TrustedProxies
	RequestMetrics *request.Metrics
	Timeout        time.Duration
	Health         *health.Handler
	Metrics        http.Handler
	Features       []RouteRegistrar
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(cfg.TrustedProxies.Middleware)
	r.Use(device.Device)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.RequestMetrics))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		r.Use(request.ContentTypeJSON)
		for _, f := range cfg.Features {
			f.Register(r)
		}
	})

	return r
}
