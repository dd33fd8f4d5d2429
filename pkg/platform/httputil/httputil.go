// Package httputil writes JSON responses and decodes JSON requests for the
// pixpax HTTP surface.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "pixpax/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError renders err as {"error", "error_description", "reason"}.
// Errors without a domain code become a bare 500.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	m := lookup(domainErr.Code)
	body := map[string]string{"error": m.name}
	if domainErr.Message != "" {
		body["error_description"] = domainErr.Message
	}
	if domainErr.Reason != "" {
		body["reason"] = domainErr.Reason
	}
	WriteJSON(w, m.status, body)
}

type codeMapping struct {
	status int
	name   string
}

var codeMappings = map[dErrors.Code]codeMapping{
	dErrors.CodeBadRequest:           {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:           {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation:   {http.StatusBadRequest, "validation_error"},
	dErrors.CodePolicyViolation:      {http.StatusBadRequest, "policy_violation"},
	dErrors.CodeNotFound:             {http.StatusNotFound, "not_found"},
	dErrors.CodeConflict:             {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:         {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeForbidden:            {http.StatusForbidden, "forbidden"},
	dErrors.CodeTooLarge:             {http.StatusRequestEntityTooLarge, "payload_too_large"},
	dErrors.CodeUnsupportedMediaType: {http.StatusUnsupportedMediaType, "unsupported_media_type"},
	dErrors.CodeTimeout:              {http.StatusGatewayTimeout, "timeout"},
	dErrors.CodeUnavailable:          {http.StatusServiceUnavailable, "unavailable"},
}

func lookup(code dErrors.Code) codeMapping {
	if m, ok := codeMappings[code]; ok {
		return m
	}
	return codeMapping{http.StatusInternalServerError, "internal_error"}
}

// DomainCodeToHTTPStatus maps a domain code to a response status.
func DomainCodeToHTTPStatus(code dErrors.Code) int { return lookup(code).status }

// DomainCodeToHTTPCode maps a domain code to the "error" field of a response.
func DomainCodeToHTTPCode(code dErrors.Code) string { return lookup(code).name }
