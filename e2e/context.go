package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"pixpax/internal/app"
	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/rng"
	"pixpax/internal/pixpax/service"
	"pixpax/internal/platform/config"
	"pixpax/internal/platform/objectstore"
	"pixpax/pkg/testutil"
)

const adminToken = "e2e-admin-token"

// TestContext holds state between test steps. Each scenario runs against
// its own in-process application.
type TestContext struct {
	app     *app.App
	server  *httptest.Server
	gateway *objectstore.Memory
	sink    *events.MemorySink
	catalog testutil.Catalog

	LastResponse     *http.Response
	LastResponseBody []byte

	packID string
	minted map[string]any
	token  string
}

// NewTestContext creates an empty scenario context.
func NewTestContext() *TestContext {
	return &TestContext{}
}

// Start builds the application with the given extra service options.
func (tc *TestContext) Start(opts ...service.Option) error {
	cfg := config.Config{
		Environment:       config.EnvTest,
		AdminToken:        adminToken,
		AllowDevUntracked: true,
		DefaultPackCount:  5,
		CodeTTL:           time.Hour,
		RedeemBaseURL:     "https://pixpax.test",
		Issuer:            config.IssuerConfig{Author: "pixpax-e2e"},
		Kafka:             config.KafkaConfig{Topic: "pixpax.events"},
		Ledger:            config.LedgerConfig{Prefix: "pixpax/ledger", FlushMax: 10, FlushInterval: time.Second, Sync: true},
	}
	tc.gateway = objectstore.NewMemory()
	tc.sink = events.NewMemorySink()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.New(context.Background(), cfg, logger,
		app.WithGateway(tc.gateway),
		app.WithEventSink(tc.sink),
		app.WithServiceOptions(opts...),
	)
	if err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	tc.app = a
	tc.server = httptest.NewServer(a.Handler())
	return nil
}

// StartWithRNG starts the application with a fixed random source.
func (tc *TestContext) StartWithRNG(index int) error {
	return tc.Start(service.WithRNG(rng.Fixed(index)))
}

// Stop releases the scenario's server and application.
func (tc *TestContext) Stop() error {
	if tc.server != nil {
		tc.server.Close()
	}
	if tc.app != nil {
		return tc.app.Close(context.Background())
	}
	return nil
}

// Do sends a JSON request and stores the response.
func (tc *TestContext) Do(method, path string, body any, admin bool) error {
	if tc.server == nil {
		return fmt.Errorf("application not started")
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// ResponseJSON decodes the last response body.
func (tc *TestContext) ResponseJSON() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return data, nil
}

// GetResponseField resolves a dotted path such as "issuance.reused".
func (tc *TestContext) GetResponseField(path string) (any, error) {
	data, err := tc.ResponseJSON()
	if err != nil {
		return nil, err
	}
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", path, part)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", path, tc.LastResponseBody)
		}
	}
	return cur, nil
}

// ExpectStatus fails unless the last response carried code.
func (tc *TestContext) ExpectStatus(code int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}
