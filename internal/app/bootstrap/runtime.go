package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/clinicware/clinic-pos/internal/config"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildReportsDB opens the reporting database, preferring the read replica
// DSN when set. Returns nil when no database is configured, which disables
// reporting endpoints.
func BuildReportsDB(cfg *appconfig.Config, logger *logging.Logger) *sql.DB {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	dsn := strings.TrimSpace(cfg.ReportsDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(cfg.DatabaseURL)
	}
	if dsn == "" {
		return nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Warn("reports database unavailable", "error", err)
		return nil
	}
	db.SetMaxOpenConns(4)
	return db
}
