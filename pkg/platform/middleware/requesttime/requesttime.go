// Package requesttime pins one "now" per request. Issuance windows, code
// expiry and ledger timestamps read it so a request never straddles two
// clock values.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type key struct{}

// clock is swapped in tests of the middleware itself.
var clock = time.Now

// Middleware stamps the request context with the current UTC time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithTime(r.Context(), clock())))
	})
}

// WithTime pins t on ctx. Services, workers and tests outside the HTTP
// chain use it directly.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, key{}, t.UTC())
}

// From reports the pinned time, if any.
func From(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(key{}).(time.Time)
	return t, ok
}

// Now is the pinned time, or the wall clock in UTC when none is pinned.
func Now(ctx context.Context) time.Time {
	if t, ok := From(ctx); ok {
		return t
	}
	return clock().UTC()
}
