// Package config builds the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "pixpax/pkg/platform/strings"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config is the typed server configuration.
type Config struct {
	Addr        string
	Environment string
	LogLevel    slog.Level

	AdminToken            string
	AllowDevUntracked     bool
	DefaultPackCount      int
	TokenExpLeeway        time.Duration
	CodeTTL               time.Duration
	RequireCollectorProof bool
	RedeemBaseURL         string
	TrustedProxies        []string

	Issuer   IssuerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
}

// IssuerConfig carries the signing keys and the trusted key sources.
type IssuerConfig struct {
	PrivateKeyPEM        string
	KeyID                string
	Author               string
	ReceiptPrivateKeyPEM string
	ReceiptKeyID         string
	IssuersFile          string
	ReceiptKeysFile      string
	TrustedKeysJSON      string
}

// StorageConfig selects the object gateway backend. An empty DataDir keeps
// everything in memory.
type StorageConfig struct {
	DataDir string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ClaimTTL     time.Duration
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type LedgerConfig struct {
	Prefix        string
	FlushMax      int
	FlushInterval time.Duration
	Sync          bool
}

// ErrInvalidConfig wraps every rejected value.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads an optional .env file and then builds the config from the
// process environment. Variables already set win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Addr:        e.str("PIXPAX_ADDR", ":8080"),
		Environment: e.str("PIXPAX_ENV", EnvDevelopment),
		LogLevel:    e.level("LOG_LEVEL", slog.LevelInfo),

		AdminToken:            e.str("PIXPAX_ADMIN_TOKEN", ""),
		AllowDevUntracked:     e.boolean("PIXPAX_ALLOW_DEV_UNTRACKED", false),
		DefaultPackCount:      e.integer("PIXPAX_DEFAULT_PACK_COUNT", 5),
		TokenExpLeeway:        e.duration("PIXPAX_TOKEN_EXP_LEEWAY", 0),
		CodeTTL:               e.duration("PIXPAX_CODE_TTL", 30*24*time.Hour),
		RequireCollectorProof: e.boolean("PIXPAX_REQUIRE_COLLECTOR_PROOF", false),
		RedeemBaseURL:         e.str("PIXPAX_REDEEM_BASE_URL", ""),
		TrustedProxies:        e.list("PIXPAX_TRUSTED_PROXIES"),

		Issuer: IssuerConfig{
			PrivateKeyPEM:        os.Getenv("ISSUER_PRIVATE_KEY_PEM"),
			KeyID:                e.str("ISSUER_KEY_ID", ""),
			Author:               e.str("ISSUER_AUTHOR", "pixpax"),
			ReceiptPrivateKeyPEM: os.Getenv("PIXPAX_RECEIPT_PRIVATE_KEY_PEM"),
			ReceiptKeyID:         e.str("PIXPAX_RECEIPT_KEY_ID", ""),
			IssuersFile:          e.str("PIXPAX_ISSUERS_FILE", ""),
			ReceiptKeysFile:      e.str("PIXPAX_RECEIPT_KEYS_FILE", ""),
			TrustedKeysJSON:      os.Getenv("TRUSTED_ISSUER_PUBLIC_KEYS_JSON"),
		},
		Storage: StorageConfig{
			DataDir: e.str("PIXPAX_DATA_DIR", ""),
		},
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.integer("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			ClaimTTL:     e.duration("PIXPAX_CLAIM_TTL", 0),
		},
		Kafka: KafkaConfig{
			Brokers: e.str("KAFKA_BROKERS", ""),
			Topic:   e.str("PIXPAX_EVENTS_TOPIC", "pixpax.events"),
		},
		Ledger: LedgerConfig{
			Prefix:        e.str("PIXPAX_LEDGER_PREFIX", "pixpax/ledger"),
			FlushMax:      e.integer("PIXPAX_LEDGER_FLUSH_MAX", 100),
			FlushInterval: e.duration("PIXPAX_LEDGER_FLUSH_INTERVAL", 2*time.Second),
			Sync:          e.boolean("PIXPAX_LEDGER_SYNC", true),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	if c.DefaultPackCount < 1 || c.DefaultPackCount > 50 {
		return fmt.Errorf("%w: PIXPAX_DEFAULT_PACK_COUNT must be within [1,50], got %d", ErrInvalidConfig, c.DefaultPackCount)
	}
	if c.IsProduction() {
		if c.AllowDevUntracked {
			return fmt.Errorf("%w: dev-untracked issuance cannot be enabled in production", ErrInvalidConfig)
		}
		if c.Issuer.PrivateKeyPEM == "" {
			return fmt.Errorf("%w: ISSUER_PRIVATE_KEY_PEM is required in production", ErrInvalidConfig)
		}
		if c.AdminToken == "" {
			return fmt.Errorf("%w: PIXPAX_ADMIN_TOKEN is required in production", ErrInvalidConfig)
		}
	}
	if c.Ledger.FlushMax < 1 {
		return fmt.Errorf("%w: PIXPAX_LEDGER_FLUSH_MAX must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

type envReader struct {
	errs []error
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v))
		return def
	}
	return b
}

func (e *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v))
		return def
	}
	return n
}

// duration accepts Go durations ("90s") and bare seconds ("90").
func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, v))
		return def
	}
	return d
}

func (e *envReader) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s=%q is not a log level", ErrInvalidConfig, key, v))
		return def
	}
	return lvl
}

func (e *envReader) list(key string) []string {
	return pstrings.SplitList(os.Getenv(key))
}
