package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveness(t *testing.T) {
	rec, body := serve(t, New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("objectstore", func(context.Context) error { return nil })

		rec, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "up", body["checks"].(map[string]any)["objectstore"])
	})

	t.Run("failing check", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("objectstore", func(context.Context) error { return nil })
		h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no brokers") })

		rec, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, "down: no brokers", body["checks"].(map[string]any)["kafka"])
	})

	t.Run("check receives a deadline", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("db", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		rec, _ := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestReregisterReplaces(t *testing.T) {
	h := New("test")
	h.RegisterCheck("kafka", func(context.Context) error { return errors.New("no brokers") })
	h.RegisterCheck("kafka", func(context.Context) error { return nil })

	rec, body := serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["checks"], 1)
}

func TestStatus(t *testing.T) {
	rec, body := serve(t, New("production"), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "production", body["environment"])
}
