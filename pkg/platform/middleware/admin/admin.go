// Package admin guards operator routes with a shared X-Admin-Token.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/httputil"
	"pixpax/pkg/requestcontext"
)

type contextKey int

const (
	keyAuthorized contextKey = iota
	keyActorID
)

// IsAdminRequest reports whether the request passed RequireAdminToken.
func IsAdminRequest(ctx context.Context) bool {
	ok, _ := ctx.Value(keyAuthorized).(bool)
	return ok
}

// GetAdminActorID returns the X-Admin-Actor-ID of an admin request, or "".
func GetAdminActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(keyActorID).(string)
	return actorID
}

// WithAdmin marks ctx as authorized. Used by Optional and tests.
func WithAdmin(ctx context.Context, actorID string) context.Context {
	ctx = context.WithValue(ctx, keyAuthorized, true)
	if actorID != "" {
		ctx = context.WithValue(ctx, keyActorID, actorID)
	}
	return ctx
}

func tokenMatches(r *http.Request, expected string) bool {
	if expected == "" {
		return false
	}
	token := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// RequireAdminToken rejects requests without the expected token. An empty
// expected token disables admin routes entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expectedToken == "" {
				httputil.WriteError(w, dErrors.NewReason(dErrors.CodeForbidden, "admin-disabled", "admin token not configured"))
				return
			}
			if !tokenMatches(r, expectedToken) {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(ctx, r.Header.Get("X-Admin-Actor-ID"))))
		})
	}
}

// Optional marks requests carrying a valid token as admin and lets all
// others through unmarked. Handlers that need admin for some inputs only
// (override issuance) check IsAdminRequest themselves.
func Optional(expectedToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenMatches(r, expectedToken) {
				r = r.WithContext(WithAdmin(r.Context(), r.Header.Get("X-Admin-Actor-ID")))
			}
			next.ServeHTTP(w, r)
		})
	}
}
