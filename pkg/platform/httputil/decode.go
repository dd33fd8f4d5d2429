package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dErrors "pixpax/pkg/domain-errors"
	"pixpax/pkg/requestcontext"
)

// Preparable request bodies are normalized and then validated by Bind.
type Preparable interface {
	Normalize()
	Validate() error
}

// Decode reads exactly one JSON value with unknown fields rejected. On
// failure the error response is already written and ok is false.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (_ *T, ok bool) {
	var v T
	if err := decodeStrict(r.Body, &v); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "rejected request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return &v, true
}

// Bind decodes like Decode and then normalizes and validates the value.
// Validation messages that are not domain errors become CodeValidation.
func Bind[T any, P interface {
	*T
	Preparable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	v, ok := Decode[T](w, r, logger)
	if !ok {
		return nil, false
	}
	p := P(v)
	p.Normalize()
	if err := p.Validate(); err != nil {
		ctx := r.Context()
		logger.InfoContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var domainErr *dErrors.Error
		if !errors.As(err, &domainErr) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return v, true
}

func decodeStrict(body io.Reader, v any) error {
	if body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return dErrors.New(dErrors.CodeTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		default:
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
		}
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must hold a single JSON value")
	}
	return nil
}
