// Package health serves /health, /health/live and /health/ready.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"pixpax/pkg/platform/httputil"
)

// Version is stamped by -ldflags at build time.
var Version = "dev"

// CheckFunc returns nil when its dependency is usable.
type CheckFunc func(ctx context.Context) error

// checkTimeout bounds every readiness check.
const checkTimeout = 2 * time.Second

type check struct {
	name string
	fn   CheckFunc
}

type Handler struct {
	environment string
	started     time.Time

	mu     sync.RWMutex
	checks []check
}

func New(environment string) *Handler {
	return &Handler{environment: environment, started: time.Now()}
}

// RegisterCheck adds a readiness check. Registering a name twice replaces
// the earlier check.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.checks {
		if h.checks[i].name == name {
			h.checks[i].fn = fn
			return
		}
	}
	h.checks = append(h.checks, check{name: name, fn: fn})
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.status)
		r.Get("/live", h.live)
		r.Get("/ready", h.ready)
	})
}

type report struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks,omitempty"`
	Version       string            `json:"version,omitempty"`
	Environment   string            `json:"environment,omitempty"`
	UptimeSeconds int64             `json:"uptime_seconds,omitempty"`
	Timestamp     string            `json:"timestamp,omitempty"`
}

func (h *Handler) live(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, report{Status: "alive"})
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	httputil.WriteJSON(w, http.StatusOK, report{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}

// ready runs every check concurrently and answers 503 if any fails.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]check(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]error, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			results[i] = c.fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	rep := report{Status: "ready", Checks: make(map[string]string, len(checks))}
	code := http.StatusOK
	for i, c := range checks {
		if err := results[i]; err != nil {
			rep.Checks[c.name] = "down: " + err.Error()
			rep.Status, code = "not_ready", http.StatusServiceUnavailable
			continue
		}
		rep.Checks[c.name] = "up"
	}
	httputil.WriteJSON(w, code, rep)
}
