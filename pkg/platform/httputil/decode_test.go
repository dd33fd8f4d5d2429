package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "pixpax/pkg/domain-errors"
)

type packBody struct {
	UserKey string `json:"userKey"`
	Count   int    `json:"count,omitempty"`
}

func (b *packBody) Normalize() { b.UserKey = strings.ToLower(strings.TrimSpace(b.UserKey)) }

func (b *packBody) Validate() error {
	switch {
	case b.UserKey == "":
		return errors.New("userKey is required")
	case b.Count > 50:
		return dErrors.NewReason(dErrors.CodeBadRequest, "invalid-count", "count must be at most 50")
	}
	return nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/v1/pixpax/collections/c/v1/packs", strings.NewReader(body))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		desc   string
	}{
		{"valid", `{"userKey":"alice"}`, http.StatusOK, ""},
		{"empty body", ``, http.StatusBadRequest, "request body is required"},
		{"malformed", `{"userKey":`, http.StatusBadRequest, "invalid request body"},
		{"unknown field", `{"userKey":"a","admin":true}`, http.StatusBadRequest, "invalid request body"},
		{"trailing value", `{"userKey":"a"} {"userKey":"b"}`, http.StatusBadRequest, "request body must hold a single JSON value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			got, ok := Decode[packBody](rec, post(tc.body), quiet)
			if tc.status == http.StatusOK {
				require.True(t, ok)
				assert.Equal(t, "alice", got.UserKey)
				return
			}
			assert.False(t, ok)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.desc, errorBody(t, rec)["error_description"])
		})
	}
}

func TestDecodeBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := post(`{"userKey":"` + strings.Repeat("x", 100) + `"}`)
	req.Body = http.MaxBytesReader(rec, req.Body, 32)

	_, ok := Decode[packBody](rec, req, quiet)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", errorBody(t, rec)["error"])
}

func TestBind(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := Bind[packBody](rec, post(`{"userKey":"  Alice "}`), quiet)
		require.True(t, ok)
		assert.Equal(t, "alice", got.UserKey)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := Bind[packBody](rec, post(`{"userKey":"   "}`), quiet)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := errorBody(t, rec)
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "userKey is required", body["error_description"])
	})

	t.Run("domain error keeps its code and reason", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := Bind[packBody](rec, post(`{"userKey":"a","count":60}`), quiet)
		assert.False(t, ok)
		body := errorBody(t, rec)
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "invalid-count", body["reason"])
	})
}
