// Package config builds runtime configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "trackmark/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	BatchWorkers  int

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Quality  QualityConfig
}

// PostgresConfig configures the relational store. An empty DSN selects the
// in-memory stores.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the Redis-backed serial ledger. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit trail. Empty brokers fall back to the
// log-only trail.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// QualityConfig carries scoring threshold overrides. Zero values keep the
// engine defaults.
type QualityConfig struct {
	MinModulePx        int
	PassThreshold      float64
	MarginalThreshold  float64
	SharpnessThreshold float64
}

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:          envOr("TRACKMARK_ADDR", ":8080"),
		JWTSigningKey: envOr("TRACKMARK_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("TRACKMARK_JWT_ISSUER", "trackmark"),
		JWTAudience:   envOr("TRACKMARK_JWT_AUDIENCE", "trackmark-admin"),
		Postgres: PostgresConfig{
			DSN:             os.Getenv("TRACKMARK_POSTGRES_DSN"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("TRACKMARK_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: envOr("TRACKMARK_KAFKA_TOPIC", "trackmark.audit"),
		},
	}

	if brokers := os.Getenv("TRACKMARK_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = pstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}

	var err error
	if cfg.BatchWorkers, err = envInt("TRACKMARK_BATCH_WORKERS", 4); err != nil {
		return Server{}, err
	}
	if cfg.Quality.MinModulePx, err = envInt("TRACKMARK_QUALITY_MIN_MODULE_PX", 0); err != nil {
		return Server{}, err
	}
	if cfg.Quality.PassThreshold, err = envFloat("TRACKMARK_QUALITY_PASS_THRESHOLD", 0); err != nil {
		return Server{}, err
	}
	if cfg.Quality.MarginalThreshold, err = envFloat("TRACKMARK_QUALITY_MARGINAL_THRESHOLD", 0); err != nil {
		return Server{}, err
	}
	if cfg.Quality.SharpnessThreshold, err = envFloat("TRACKMARK_QUALITY_SHARPNESS_THRESHOLD", 0); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}
