package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/platform/config"
	"pixpax/pkg/testutil"
)

const adminToken = "test-admin-token"

type AppSuite struct {
	suite.Suite
	app    *App
	server *httptest.Server
	sink   *events.MemorySink
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func testConfig() config.Config {
	return config.Config{
		Environment:      config.EnvTest,
		AdminToken:       adminToken,
		DefaultPackCount: 3,
		CodeTTL:          time.Hour,
		RedeemBaseURL:    "https://pixpax.test",
		Issuer:           config.IssuerConfig{Author: "pixpax-test"},
		Kafka:            config.KafkaConfig{Topic: "pixpax.events"},
		Ledger:           config.LedgerConfig{Prefix: "pixpax/ledger", FlushMax: 10, FlushInterval: time.Second, Sync: true},
	}
}

func (s *AppSuite) SetupTest() {
	s.sink = events.NewMemorySink()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), logger, WithEventSink(s.sink))
	s.Require().NoError(err)
	s.app = a
	s.server = httptest.NewServer(a.Handler())
}

func (s *AppSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.app.Close(context.Background()))
}

func (s *AppSuite) do(method, path string, body any, admin bool) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, raw
}

func (s *AppSuite) seed() {
	catalog := testutil.NewCatalogBuilder().WithSeries("s1", 4).WithSeries("s2", 2).Build()
	resp, body := s.do(http.MethodPost, "/v1/pixpax/collections", models.SeedRequest{
		Collection: catalog.Collection,
		Index:      catalog.Index,
		Cards:      catalog.Cards,
	}, true)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
}

func (s *AppSuite) TestIssueVerifyAndProve() {
	s.seed()

	resp, body := s.do(http.MethodPost, "/v1/pixpax/collections/c/v1/packs", map[string]any{"userKey": "Alice"}, false)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var pack models.PackResult
	s.Require().NoError(json.Unmarshal(body, &pack))
	s.Len(pack.Cards, 3)
	s.Require().NotNil(pack.Audit)
	s.Require().NotNil(pack.Entry)
	s.Equal(s.app.Issuer.KeyID(), *pack.Entry.Payload.IssuerKeyID)

	resp, body = s.do(http.MethodPost, "/v1/pixpax/collections/c/v1/packs", map[string]any{"userKey": "alice"}, false)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var again models.PackResult
	s.Require().NoError(json.Unmarshal(body, &again))
	s.Equal(pack.PackID, again.PackID)
	s.True(again.Issuance.Reused)

	resp, body = s.do(http.MethodPost, "/v1/pixpax/packs/verify", map[string]any{
		"packId": pack.PackID, "collectionId": "c", "version": "v1",
	}, false)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var result models.VerificationResult
	s.Require().NoError(json.Unmarshal(body, &result))
	s.True(result.OK, result.Reason)

	q := url.Values{"segmentKey": {pack.Audit.SegmentKey}, "packId": {pack.PackID}}
	resp, body = s.do(http.MethodGet, "/v1/pixpax/ledger/proof?"+q.Encode(), nil, false)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var proof map[string]any
	s.Require().NoError(json.Unmarshal(body, &proof))
	s.Equal(true, proof["ok"])

	s.Eventually(func() bool {
		return len(s.sink.OfType(events.CollectionCreated)) == 1 && len(s.sink.OfType(events.PackIssued)) == 1
	}, time.Second, 10*time.Millisecond)
}

func (s *AppSuite) TestMintAndRedeem() {
	s.seed()

	resp, body := s.do(http.MethodPost, "/v1/pixpax/collections/c/v1/codes", map[string]any{"kind": "fixed-card", "cardId": "s2-card1"}, false)
	s.Equal(http.StatusUnauthorized, resp.StatusCode, string(body))

	resp, body = s.do(http.MethodPost, "/v1/pixpax/collections/c/v1/codes", map[string]any{"kind": "fixed-card", "cardId": "s2-card1"}, true)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	var minted models.MintResult
	s.Require().NoError(json.Unmarshal(body, &minted))
	s.Contains(minted.RedeemURL, "https://pixpax.test/r?t=")

	collector := testutil.NewKeyPair(s.T())
	redeem := map[string]any{"token": minted.Token, "collectorPubKey": collector.PublicKeyPEM()}
	resp, body = s.do(http.MethodPost, "/v1/pixpax/redeem", redeem, false)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	var pack models.PackResult
	s.Require().NoError(json.Unmarshal(body, &pack))
	s.Require().Len(pack.Cards, 1)
	s.Equal("s2-card1", pack.Cards[0].CardID)

	resp, body = s.do(http.MethodPost, "/v1/pixpax/redeem", redeem, false)
	s.Require().Equal(http.StatusConflict, resp.StatusCode)
	var conflict models.ClaimedConflict
	s.Require().NoError(json.Unmarshal(body, &conflict))
	s.Equal(pack.PackID, conflict.PackID)
}

func (s *AppSuite) TestOperationalRoutes() {
	resp, body := s.do(http.MethodGet, "/health/ready", nil, false)
	s.Equal(http.StatusOK, resp.StatusCode, string(body))

	s.seed()
	s.do(http.MethodPost, "/v1/pixpax/collections/c/v1/packs", map[string]any{"userKey": "bob"}, false)

	resp, body = s.do(http.MethodGet, "/metrics", nil, false)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), `pixpax_packs_issued_total{mode="weekly"} 1`)
	s.Contains(string(body), "pixpax_http_request_duration_seconds")
}

func (s *AppSuite) TestConfiguredIssuerAlreadyTrusted() {
	cfg := testConfig()
	other := testutil.NewKeyPair(s.T())
	cfg.Issuer.PrivateKeyPEM = other.PrivatePEM
	raw, err := json.Marshal(map[string]string{other.KeyID(): other.PublicKeyPEM()})
	s.Require().NoError(err)
	cfg.Issuer.TrustedKeysJSON = string(raw)

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.Equal(other.KeyID(), a.Issuer.KeyID())
	s.Require().NoError(a.Close(context.Background()))
}
