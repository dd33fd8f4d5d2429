// Package service orchestrates pack issuance, redeem codes and verification
// over the content, claim, code and pack stores.
package service

import (
	"context"
	"log/slog"
	"time"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/issuers"
	"pixpax/internal/pixpax/ledger"
	"pixpax/internal/pixpax/metrics"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/rng"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/token"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/tracer"
)

// ContentStore is the catalog the service draws from and seeds.
type ContentStore interface {
	GetCollection(ctx context.Context, collectionID, version string) (*models.Collection, error)
	GetIndex(ctx context.Context, collectionID, version string) (*models.Index, error)
	GetCard(ctx context.Context, collectionID, version, cardID string) (*models.Card, error)
	PutCollectionIfAbsent(ctx context.Context, c models.Collection) (bool, error)
	PutIndexIfAbsent(ctx context.Context, idx models.Index) (bool, error)
	PutCardIfAbsent(ctx context.Context, c models.Card) (bool, error)
	RetireSeries(ctx context.Context, collectionID, version string, marker models.RetiredSeries) (bool, error)
	RetiredSeries(ctx context.Context, collectionID, version string) ([]string, error)
}

// ClaimStore holds weekly issuance claims.
type ClaimStore interface {
	Get(ctx context.Context, key models.ClaimKey) (*models.IssuanceClaim, error)
	InsertIfAbsent(ctx context.Context, claim models.IssuanceClaim) (bool, *models.IssuanceClaim, error)
}

// CodeStore holds redeem codes.
type CodeStore interface {
	Create(ctx context.Context, code *models.RedeemCode) error
	FindByID(ctx context.Context, codeID string) (*models.RedeemCode, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.RedeemCode, error)
	Claim(ctx context.Context, codeID string, claim models.CodeClaim) (*models.RedeemCode, bool, error)
	Revoke(ctx context.Context, codeID, reason string, at time.Time) (*models.RedeemCode, error)
}

// PackLog records issued packs for later verification by id.
type PackLog interface {
	Append(ctx context.Context, pack models.Pack) error
	Find(ctx context.Context, collectionID, version, packID string) (*models.Pack, error)
}

// AuditSink persists the signed issuance entry of tracked packs.
type AuditSink interface {
	AppendReceipt(ctx context.Context, packID string, body any) (*models.AuditRef, error)
	ProveReceipt(ctx context.Context, segmentKey, packID string) (ledger.ReceiptProof, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Emit(ctx context.Context, e events.Event) error
}

// PackVerifier re-derives and checks a pack.
type PackVerifier interface {
	VerifyPack(ctx context.Context, ref verify.Ref) (models.VerificationResult, error)
}

// TokenVerifier checks v3 redeem tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string, now time.Time) token.Result
}

const (
	defaultCodeTTL    = 30 * 24 * time.Hour
	defaultAuthor     = "pixpax"
	fetchConcurrency  = 8
	untrackedAuthor   = "dev-untracked"
	redeemPath        = "/r"
	collectorKeyScope = "collector:"
)

// Service implements issuance, redemption and verification.
type Service struct {
	content  ContentStore
	claims   ClaimStore
	codes    CodeStore
	packs    PackLog
	issuer   *signing.Signer
	receipts *signing.Signer
	resolver issuers.Resolver
	audit    AuditSink
	events   EventPublisher
	verifier PackVerifier
	tokens   TokenVerifier
	rng      rng.Source

	defaultPackCount      int
	allowDevUntracked     bool
	requireCollectorProof bool
	codeTTL               time.Duration
	redeemBaseURL         string
	author                string

	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Service)

// WithReceiptSigner signs redemption receipts with a dedicated key. The
// issuer key is used when unset.
func WithReceiptSigner(s *signing.Signer) Option {
	return func(svc *Service) {
		svc.receipts = s
	}
}

// WithIssuerResolver resolves issuer keys when checking ledger entries.
func WithIssuerResolver(r issuers.Resolver) Option {
	return func(svc *Service) {
		svc.resolver = r
	}
}

func WithAuditSink(a AuditSink) Option {
	return func(svc *Service) {
		svc.audit = a
	}
}

func WithEvents(p EventPublisher) Option {
	return func(svc *Service) {
		svc.events = p
	}
}

func WithVerifier(v PackVerifier) Option {
	return func(svc *Service) {
		svc.verifier = v
	}
}

func WithTokenVerifier(v TokenVerifier) Option {
	return func(svc *Service) {
		svc.tokens = v
	}
}

// WithRNG replaces the crypto source, typically with an rng.Delegate in tests.
func WithRNG(src rng.Source) Option {
	return func(svc *Service) {
		svc.rng = src
	}
}

func WithDefaultPackCount(n int) Option {
	return func(svc *Service) {
		svc.defaultPackCount = n
	}
}

func WithDevUntracked(allow bool) Option {
	return func(svc *Service) {
		svc.allowDevUntracked = allow
	}
}

func WithCollectorProofRequired(required bool) Option {
	return func(svc *Service) {
		svc.requireCollectorProof = required
	}
}

func WithCodeTTL(ttl time.Duration) Option {
	return func(svc *Service) {
		if ttl > 0 {
			svc.codeTTL = ttl
		}
	}
}

func WithRedeemBaseURL(base string) Option {
	return func(svc *Service) {
		svc.redeemBaseURL = base
	}
}

// WithIssuerAuthor sets the author recorded on signed issuance entries.
func WithIssuerAuthor(author string) Option {
	return func(svc *Service) {
		if author != "" {
			svc.author = author
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) {
		svc.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(svc *Service) {
		svc.tracer = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

func New(content ContentStore, claims ClaimStore, codes CodeStore, packs PackLog, issuer *signing.Signer, opts ...Option) *Service {
	svc := &Service{
		content: content,
		claims:  claims,
		codes:   codes,
		packs:   packs,
		issuer:  issuer,
		codeTTL: defaultCodeTTL,
		author:  defaultAuthor,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.receipts == nil {
		svc.receipts = issuer
	}
	if svc.rng == nil {
		svc.rng = rng.NewCrypto()
	}
	if svc.tracer == nil {
		svc.tracer = tracer.NewNoop()
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.verifier == nil {
		svc.verifier = verify.New(content, verify.WithPackFinder(packs), verify.WithFallbackKey(issuer.PublicKeyPEM()))
	}
	if svc.tokens == nil {
		reg := issuers.NewRegistry()
		_ = reg.AddSigner(issuer, svc.author)
		svc.tokens = token.NewVerifier(reg)
		if svc.resolver == nil {
			svc.resolver = reg
		}
	}
	return svc
}

// IssuerKeyID is the key id stamped on signed packs and tokens.
func (s *Service) IssuerKeyID() string {
	return s.issuer.KeyID()
}
