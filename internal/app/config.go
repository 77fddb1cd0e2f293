package app

import (
	"errors"
	"strings"
	"time"

	"github.com/yungbote/clubops-backend/internal/data/aggregates"
	"github.com/yungbote/clubops-backend/internal/data/db"
	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/observability"
	"github.com/yungbote/clubops-backend/internal/platform/envutil"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
	"github.com/yungbote/clubops-backend/internal/services"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration

	DB db.Config
	Tx aggregates.TxOptions

	JWTSecret string
	// AuthDisabled runs every request as an anonymous admin. Local use only.
	AuthDisabled bool
	CORSOrigins  []string

	// Redis is optional; without an address events are dropped.
	Redis events.RedisConfig

	MetricsEnabled         bool
	MetricsCollectInterval time.Duration
	Otel                   observability.OtelConfig

	GrantConcurrency int
	MaxCodeAttempts  int
	// RewardCatalogPath points at the YAML reward rules. Empty means no rules.
	RewardCatalogPath string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:            envutil.String("PORT", "8080", log),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second, log),
		DB: db.Config{
			Driver:       envutil.String("DB_DRIVER", db.DriverPostgres, log),
			DSN:          envutil.String("POSTGRES_DSN", "", log),
			Host:         envutil.String("POSTGRES_HOST", "localhost", log),
			Port:         envutil.String("POSTGRES_PORT", "5432", log),
			User:         envutil.String("POSTGRES_USER", "postgres", log),
			Password:     envutil.String("POSTGRES_PASSWORD", "", log),
			Name:         envutil.String("POSTGRES_NAME", "clubops", log),
			MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20, log),
			Path:         envutil.String("SQLITE_PATH", "clubops.db", log),
		},
		Tx: aggregates.TxOptions{
			LockTimeout:      envutil.Duration("LOCK_TIMEOUT", aggregates.DefaultLockTimeout, log),
			StatementTimeout: envutil.Duration("STATEMENT_TIMEOUT", aggregates.DefaultStatementTimeout, log),
		},
		JWTSecret:    envutil.String("CLUBOPS_JWT_SECRET", "", log),
		AuthDisabled: envutil.Bool("AUTH_DISABLED", false),
		CORSOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		Redis: events.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", "", log),
			Password: envutil.String("REDIS_PASSWORD", "", log),
			DB:       envutil.Int("REDIS_DB", 0, log),
			Stream:   envutil.String("EVENTS_STREAM", "clubops:events", log),
			MaxLen:   int64(envutil.Int("EVENTS_STREAM_MAXLEN", 100000, log)),
		},
		MetricsEnabled:         envutil.Bool("METRICS_ENABLED", true),
		MetricsCollectInterval: envutil.Duration("METRICS_COLLECT_INTERVAL", 10*time.Second, log),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "clubops", log),
			Environment: envutil.String("APP_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLE_PERCENT", 100, log)) / 100,
		},
		GrantConcurrency:  envutil.Int("GRANT_CONCURRENCY", services.DefaultGrantConcurrency, log),
		MaxCodeAttempts:   envutil.Int("CODE_MAX_ATTEMPTS", aggregates.DefaultMaxCodeAttempts, log),
		RewardCatalogPath: envutil.String("CLUBOPS_CONFIG", "", log),
	}
}

var ErrMissingJWTSecret = errors.New("CLUBOPS_JWT_SECRET is required unless AUTH_DISABLED=true")

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" && !c.AuthDisabled {
		return ErrMissingJWTSecret
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
