// Package app assembles the pixpax server from a Config: storage backends,
// signers, the audit ledger, the event pipeline and the HTTP router.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pixpax/internal/pixpax/events"
	"pixpax/internal/pixpax/handler"
	"pixpax/internal/pixpax/issuers"
	"pixpax/internal/pixpax/ledger"
	pixpaxmetrics "pixpax/internal/pixpax/metrics"
	"pixpax/internal/pixpax/service"
	"pixpax/internal/pixpax/signing"
	"pixpax/internal/pixpax/store/claims"
	"pixpax/internal/pixpax/store/codes"
	"pixpax/internal/pixpax/store/content"
	"pixpax/internal/pixpax/store/packs"
	"pixpax/internal/pixpax/token"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/config"
	"pixpax/internal/platform/database"
	"pixpax/internal/platform/health"
	"pixpax/internal/platform/kafka"
	"pixpax/internal/platform/kafka/producer"
	"pixpax/internal/platform/metrics"
	"pixpax/internal/platform/objectstore"
	"pixpax/internal/platform/redis"
	"pixpax/internal/platform/tracer"
	httptransport "pixpax/internal/transport/http"
	"pixpax/migrations"
	"pixpax/pkg/platform/circuit"
	"pixpax/pkg/platform/middleware/metadata"
	"pixpax/pkg/platform/middleware/request"
	"pixpax/pkg/platform/outbox"
	outboxmetrics "pixpax/pkg/platform/outbox/metrics"
	outboxpostgres "pixpax/pkg/platform/outbox/postgres"
	"pixpax/pkg/platform/outbox/worker"
)

const (
	eventBuffer      = 1024
	topicPartitions  = 3
	topicReplication = 1
)

// App owns every long-lived component. Close releases them in reverse
// start order.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	handler http.Handler

	Service  *service.Service
	Issuer   *signing.Signer
	Issuers  *issuers.Registry
	Ledger   *ledger.Ledger
	Registry *metrics.Registry

	closers []func(context.Context) error
}

// Option adjusts assembly, mostly for tests.
type Option func(*options)

type options struct {
	serviceOpts []service.Option
	gateway     objectstore.Gateway
	sinks       []events.Sink
}

// WithServiceOptions appends options after the ones derived from config.
func WithServiceOptions(opts ...service.Option) Option {
	return func(o *options) {
		o.serviceOpts = append(o.serviceOpts, opts...)
	}
}

// WithGateway replaces the object gateway chosen from PIXPAX_DATA_DIR.
func WithGateway(gw objectstore.Gateway) Option {
	return func(o *options) {
		o.gateway = gw
	}
}

// WithEventSink adds a sink next to the configured ones.
func WithEventSink(s events.Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, s)
	}
}

// New builds the application. On error every component opened so far is
// closed before returning.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{cfg: cfg, logger: logger, Registry: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()
	a.Registry.SetBuildInfo(health.Version, cfg.Environment)
	checks := health.New(cfg.Environment)

	gw, err := a.openGateway(o.gateway, checks)
	if err != nil {
		return nil, err
	}
	contentStore := content.New(gw, "")
	packLog := packs.New(gw, "")

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.onClose(func(context.Context) error { return db.Close() })
		if err := migrations.Apply(ctx, db); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		a.Registry.WatchDB(db, "pixpax")
		checks.RegisterCheck("database", db.PingContext)
	}

	claimStore, codeStore, err := a.openRecordStores(ctx, db, checks)
	if err != nil {
		return nil, err
	}

	issuer, receipts, err := a.loadSigners()
	if err != nil {
		return nil, err
	}
	a.Issuer = issuer
	if a.Issuers, err = a.loadIssuerRegistry(issuer); err != nil {
		return nil, err
	}
	if err := a.checkReceiptKeys(receipts); err != nil {
		return nil, err
	}

	a.Ledger = ledger.New(gw, cfg.Ledger.Prefix,
		ledger.WithLogger(logger),
		ledger.WithSync(cfg.Ledger.Sync),
		ledger.WithFlushMax(cfg.Ledger.FlushMax),
		ledger.WithFlushInterval(cfg.Ledger.FlushInterval),
	)
	a.Ledger.Start(ctx)
	a.onClose(a.Ledger.Close)

	publisher, err := a.buildEvents(ctx, db, checks, o.sinks)
	if err != nil {
		return nil, err
	}

	svcMetrics := pixpaxmetrics.New(a.Registry.Registerer())
	verifier := verify.New(contentStore,
		verify.WithPackFinder(packLog),
		verify.WithTrustedKeys(a.Issuers),
		verify.WithFallbackKey(issuer.PublicKeyPEM()),
	)
	svcOpts := []service.Option{
		service.WithIssuerAuthor(cfg.Issuer.Author),
		service.WithIssuerResolver(a.Issuers),
		service.WithTokenVerifier(token.NewVerifier(a.Issuers, token.WithExpLeeway(cfg.TokenExpLeeway))),
		service.WithVerifier(verifier),
		service.WithAuditSink(a.Ledger),
		service.WithEvents(publisher),
		service.WithDefaultPackCount(cfg.DefaultPackCount),
		service.WithDevUntracked(cfg.AllowDevUntracked),
		service.WithCollectorProofRequired(cfg.RequireCollectorProof),
		service.WithCodeTTL(cfg.CodeTTL),
		service.WithRedeemBaseURL(cfg.RedeemBaseURL),
		service.WithMetrics(svcMetrics),
		service.WithTracer(tracer.NewOTel()),
		service.WithLogger(logger),
	}
	if receipts != nil {
		svcOpts = append(svcOpts, service.WithReceiptSigner(receipts))
	}
	a.Service = service.New(contentStore, claimStore, codeStore, packLog, issuer, append(svcOpts, o.serviceOpts...)...)

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("PIXPAX_TRUSTED_PROXIES: %w", err)
	}
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         logger,
		TrustedProxies: proxies,
		RequestMetrics: request.NewMetrics(a.Registry.Registerer()),
		Health:         checks,
		Metrics:        a.Registry.Handler(),
		Features:       []httptransport.RouteRegistrar{handler.New(a.Service, cfg.AdminToken, logger)},
	})
	a.Registry.SetUp(true)

	logger.Info("pixpax assembled",
		"issuer_key_id", issuer.KeyID(),
		"trusted_keys", len(a.Issuers.KeyIDs()),
		"postgres", db != nil,
		"kafka", cfg.Kafka.Brokers != "",
		"ledger_sync", cfg.Ledger.Sync,
	)
	return a, nil
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close stops background work and releases connections.
func (a *App) Close(ctx context.Context) error {
	if a.Registry != nil {
		a.Registry.SetUp(false)
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *App) openGateway(override objectstore.Gateway, checks *health.Handler) (objectstore.Gateway, error) {
	if override != nil {
		return override, nil
	}
	if a.cfg.Storage.DataDir == "" {
		a.logger.Warn("PIXPAX_DATA_DIR not set; content, packs and ledger are kept in memory")
		return objectstore.NewMemory(), nil
	}
	db, err := objectstore.OpenPebble(a.cfg.Storage.DataDir, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return db.Close() })
	checks.RegisterCheck("objectstore", db.Health)
	return db, nil
}

// openRecordStores picks the claim and code backends. Claims prefer redis,
// then postgres; codes need postgres for durable claims across replicas.
func (a *App) openRecordStores(ctx context.Context, db *sql.DB, checks *health.Handler) (service.ClaimStore, service.CodeStore, error) {
	var (
		claimStore service.ClaimStore = claims.NewInMemory()
		codeStore  service.CodeStore  = codes.NewInMemory()
	)
	if db != nil {
		claimStore = claims.NewPostgres(db)
		codeStore = codes.NewPostgres(db)
	}

	rc, err := redis.Open(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc != nil {
		a.onClose(func(context.Context) error { return rc.Close() })
		checks.RegisterCheck("redis", func(ctx context.Context) error { return rc.Ping(ctx).Err() })
		if err := a.Registry.Registerer().Register(redis.NewPoolCollector(rc)); err != nil {
			return nil, nil, fmt.Errorf("register redis pool metrics: %w", err)
		}
		claimStore = claims.NewRedis(rc, a.cfg.Redis.ClaimTTL)
	}
	return claimStore, codeStore, nil
}

func (a *App) loadSigners() (issuer, receipts *signing.Signer, err error) {
	ic := a.cfg.Issuer
	if ic.PrivateKeyPEM != "" {
		if issuer, err = signing.NewSigner(ic.PrivateKeyPEM, ic.KeyID); err != nil {
			return nil, nil, fmt.Errorf("issuer key: %w", err)
		}
	} else {
		key, err := signing.GenerateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("generate issuer key: %w", err)
		}
		if issuer, err = signing.NewSignerFromKey(key, ""); err != nil {
			return nil, nil, err
		}
		a.logger.Warn("ISSUER_PRIVATE_KEY_PEM not set; using an ephemeral issuer key", "issuer_key_id", issuer.KeyID())
	}
	if ic.ReceiptPrivateKeyPEM != "" {
		if receipts, err = signing.NewSigner(ic.ReceiptPrivateKeyPEM, ic.ReceiptKeyID); err != nil {
			return nil, nil, fmt.Errorf("receipt key: %w", err)
		}
	}
	return issuer, receipts, nil
}

func (a *App) loadIssuerRegistry(issuer *signing.Signer) (*issuers.Registry, error) {
	reg := issuers.NewRegistry()
	ic := a.cfg.Issuer
	if ic.IssuersFile != "" {
		if err := reg.LoadYAML(ic.IssuersFile); err != nil {
			return nil, err
		}
	}
	if ic.TrustedKeysJSON != "" {
		if err := reg.ParseTrustedJSON([]byte(ic.TrustedKeysJSON)); err != nil {
			return nil, err
		}
	}
	if existing, _ := reg.Resolve(context.Background(), issuer.KeyID()); existing != nil {
		if existing.Status == issuers.StatusRevoked {
			return nil, fmt.Errorf("issuer key %s is revoked in the registry", issuer.KeyID())
		}
		return reg, nil
	}
	if err := reg.AddSigner(issuer, ic.Author); err != nil {
		return nil, err
	}
	return reg, nil
}

// checkReceiptKeys refuses to start when a receipt key registry is configured
// and does not list the active receipt key.
func (a *App) checkReceiptKeys(receipts *signing.Signer) error {
	path := a.cfg.Issuer.ReceiptKeysFile
	if path == "" || receipts == nil {
		return nil
	}
	reg := issuers.NewRegistry()
	if err := reg.LoadYAML(path); err != nil {
		return fmt.Errorf("receipt keys: %w", err)
	}
	entry, _ := reg.Resolve(context.Background(), receipts.KeyID())
	if entry == nil || entry.Status != issuers.StatusActive {
		return fmt.Errorf("receipt key %s is not active in %s", receipts.KeyID(), path)
	}
	return nil
}

// buildEvents wires the event pipeline. With postgres, events go to the
// outbox and a worker relays them to kafka; with kafka alone they are
// produced directly.
func (a *App) buildEvents(ctx context.Context, db *sql.DB, checks *health.Handler, extra []events.Sink) (*events.Publisher, error) {
	kcfg := kafka.Config{Brokers: a.cfg.Kafka.Brokers, Topic: a.cfg.Kafka.Topic}
	sinks := append(events.FanOut{}, extra...)

	var prod *producer.Producer
	if kcfg.Enabled() {
		admin, err := kafka.NewAdmin(kcfg.Brokers)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { admin.Close(); return nil })
		if err := admin.EnsureTopic(ctx, kcfg.Topic, topicPartitions, topicReplication); err != nil {
			return nil, err
		}
		checks.RegisterCheck("kafka", admin.Check)

		if prod, err = producer.New(kcfg.ProducerConfig(), a.logger); err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return prod.Close() })
	}

	switch {
	case db != nil:
		store := outboxpostgres.New(db)
		sinks = append(sinks, events.NewOutboxSink(store))
		if prod != nil {
			a.startRelay(store, prod, kcfg.Topic)
		}
	case prod != nil:
		sinks = append(sinks, events.NewGuardedSink(
			events.NewKafkaSink(prod, kcfg.Topic),
			events.NewLogSink(a.logger),
			circuit.New("kafka-events", circuit.WithCooldown(30*time.Second)),
			a.logger,
		))
	case len(sinks) == 0:
		sinks = append(sinks, events.NewLogSink(a.logger))
	}

	publisher := events.NewPublisher(sinks,
		events.WithAsyncBuffer(eventBuffer),
		events.WithPublisherLogger(a.logger),
	)
	a.onClose(func(context.Context) error { publisher.Close(); return nil })
	return publisher, nil
}

func (a *App) startRelay(store outbox.Store, prod *producer.Producer, topic string) {
	relay := worker.New(store, prod, worker.Config{
		Topic:     topic,
		Retention: 7 * 24 * time.Hour,
	}, outboxmetrics.New(a.Registry.Registerer()), a.logger)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()
	a.onClose(func(wait context.Context) error {
		stop()
		select {
		case <-done:
			return nil
		case <-wait.Done():
			return wait.Err()
		}
	})
}
