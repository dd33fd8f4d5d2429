// Package httpserver builds the http.Server used by cmd/server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with fixed timeouts. WriteTimeout must exceed the
// router's request timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
}
