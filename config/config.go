// Package config loads binxgraph settings from a YAML file.
//
// Values may reference environment variables as ${NAME}; references to unset
// variables are left untouched so validation reports them. A missing file
// yields Default.
package config

import (
	"crypto/tls"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/zero-day-ai/binxgraph/ingest"
	"github.com/zero-day-ai/binxgraph/queue"
	"github.com/zero-day-ai/binxgraph/registry"
	"github.com/zero-day-ai/binxgraph/store"
)

// Config is the root of the configuration file.
type Config struct {
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Import    ImportConfig    `yaml:"import"`
	Redis     RedisConfig     `yaml:"redis"`
	Etcd      EtcdConfig      `yaml:"etcd"`
	Worker    WorkerConfig    `yaml:"worker"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI                     string        `yaml:"uri" validate:"required"`
	Username                string        `yaml:"username" validate:"required"`
	Password                string        `yaml:"password" validate:"required"`
	Database                string        `yaml:"database"`
	MaxConnectionPoolSize   int           `yaml:"max_connection_pool_size" validate:"min=0"`
	ConnectionTimeout       time.Duration `yaml:"connection_timeout" validate:"gt=0"`
	MaxTransactionRetryTime time.Duration `yaml:"max_transaction_retry_time" validate:"gt=0"`
}

// ImportConfig holds importer settings.
type ImportConfig struct {
	BatchSize int    `yaml:"batch_size" validate:"gt=0"`
	Pattern   string `yaml:"pattern" validate:"required"`

	// Validate checks each document's shape before importing it
	Validate bool `yaml:"validate"`
}

// RedisConfig holds job queue settings.
type RedisConfig struct {
	URL            string        `yaml:"url" validate:"omitempty,url"`
	Queue          string        `yaml:"queue" validate:"required"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	TLS            bool          `yaml:"tls"`
}

// EtcdConfig holds worker registry settings. Registration is off when
// Endpoints is empty.
type EtcdConfig struct {
	Endpoints   []string            `yaml:"endpoints"`
	Namespace   string              `yaml:"namespace"`
	TTL         int                 `yaml:"ttl" validate:"min=0"`
	DialTimeout time.Duration       `yaml:"dial_timeout"`
	TLS         *registry.TLSConfig `yaml:"tls,omitempty"`
}

// WorkerConfig holds import worker settings.
type WorkerConfig struct {
	// HealthAddress, when set, serves the gRPC health service there and
	// advertises it as the worker's registry endpoint
	HealthAddress string `yaml:"health_address" validate:"omitempty,hostname_port"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`

	// CacheSize is the number of query results kept; 0 disables caching
	CacheSize int64         `yaml:"cache_size" validate:"min=0"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" validate:"required"`

	// Tracing writes spans to stderr
	Tracing bool `yaml:"tracing"`

	// Metrics exposes a Prometheus endpoint (on the API server or at
	// MetricsAddress for other commands)
	Metrics        bool   `yaml:"metrics"`
	MetricsAddress string `yaml:"metrics_address"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Store returns the graph database settings.
func (c Neo4jConfig) Store() store.Config {
	return store.Config{
		URI:                     c.URI,
		Username:                c.Username,
		Password:                c.Password,
		Database:                c.Database,
		MaxConnectionPoolSize:   c.MaxConnectionPoolSize,
		ConnectionTimeout:       c.ConnectionTimeout,
		MaxTransactionRetryTime: c.MaxTransactionRetryTime,
	}
}

// Options returns the importer options for these settings.
func (c ImportConfig) Options() []ingest.Option {
	return []ingest.Option{
		ingest.WithBatchSize(c.BatchSize),
		ingest.WithValidation(c.Validate),
	}
}

// Options returns the queue client options for these settings.
func (c RedisConfig) Options(logger *slog.Logger) queue.RedisOptions {
	opts := queue.RedisOptions{
		URL:            c.URL,
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		Logger:         logger,
	}
	if c.TLS {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Enabled reports whether worker registration is configured.
func (c EtcdConfig) Enabled() bool {
	return len(c.Endpoints) > 0
}

// Registry returns the registry connection settings.
func (c EtcdConfig) Registry() registry.Config {
	return registry.Config{
		Endpoints:   c.Endpoints,
		Namespace:   c.Namespace,
		TTL:         c.TTL,
		DialTimeout: c.DialTimeout,
		TLS:         c.TLS,
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w in the configured format.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
