package request

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/platform/httputil"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused up front with 413; undeclared bodies are cut off by
// http.MaxBytesReader and surface as 413 from the JSON decoder.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteError(w, dErrors.New(dErrors.CodeTooLarge,
					fmt.Sprintf("request body exceeds %d bytes", maxBytes)))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

const timeoutBody = `{"error":"timeout","error_description":"request timed out"}`

// Timeout bounds handler execution and answers 503 with a JSON body when
// the budget runs out.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}

// ContentTypeJSON refuses bodies on POST, PUT and PATCH that declare a
// media type other than application/json. A missing header is allowed.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				mt, _, err := mime.ParseMediaType(ct)
				if err != nil || mt != "application/json" {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnsupportedMediaType,
						"Content-Type must be application/json"))
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
