// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store, which
	// is refused in production.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBIsolation is serializable, repeatable_read or read_committed.
	DBIsolation string `mapstructure:"DB_ISOLATION"`
	// DBConnectAttempts bounds the startup connection retries.
	DBConnectAttempts uint `mapstructure:"DB_CONNECT_ATTEMPTS"`
	// JWTPublicKey is the PEM-encoded public key or path to file used to verify access tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is only needed by tooling that mints tokens (historyctl token).
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTIssuer is the iss claim access tokens must carry.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim access tokens must carry.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the lifetime of minted tokens (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLPEndpoint is the OTLP/gRPC collector; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName identifies this process in traces, metrics and logs.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Audit feed (optional). When Kafka brokers are set, committed audit entries are published.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit entries.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the audit worker to push entries (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// HistoryMaxLimit caps the number of entries an activity query returns.
	HistoryMaxLimit int `mapstructure:"HISTORY_MAX_LIMIT"`
	// SeedFile is the YAML fixture file loaded by cmd/seed.
	SeedFile string `mapstructure:"SEED_FILE"`
}

var defaults = map[string]any{
	"GRPC_ADDR":                   ":8080",
	"DATABASE_URL":                "",
	"DB_ISOLATION":                "serializable",
	"DB_CONNECT_ATTEMPTS":         5,
	"JWT_PUBLIC_KEY":              "",
	"JWT_PRIVATE_KEY":             "",
	"JWT_ISSUER":                  "projectbeheer-auth",
	"JWT_AUDIENCE":                "projectbeheer-api",
	"JWT_ACCESS_TTL":              "15m",
	"APP_ENV":                     "",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "text",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_EXPORTER_OTLP_INSECURE": false,
	"OTEL_SERVICE_NAME":           "projectbeheer-backend",
	"KAFKA_BROKERS":               "",
	"AUDIT_KAFKA_TOPIC":           "projectbeheer-audit",
	"LOKI_URL":                    "",
	"KAFKA_GROUP_ID":              "projectbeheer-audit-worker",
	"HISTORY_MAX_LIMIT":           200,
	"SEED_FILE":                   "seed/dev.yaml",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	switch strings.ToLower(c.DBIsolation) {
	case "serializable", "repeatable_read", "read_committed":
	default:
		return errors.Newf("config: DB_ISOLATION must be serializable, repeatable_read or read_committed, got %q", c.DBIsolation)
	}
	if c.DBConnectAttempts == 0 {
		c.DBConnectAttempts = 1
	}
	if c.HistoryMaxLimit <= 0 {
		return errors.New("config: HISTORY_MAX_LIMIT must be positive")
	}
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when APP_ENV=production")
		}
		if c.JWTPublicKey == "" {
			return errors.New("config: JWT_PUBLIC_KEY is required when APP_ENV=production")
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit feed is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
