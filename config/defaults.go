package config

import (
	"time"

	"github.com/zero-day-ai/binxgraph/ingest"
	"github.com/zero-day-ai/binxgraph/queue"
	"github.com/zero-day-ai/binxgraph/store"
)

// Default returns the settings used when no file is present.
func Default() *Config {
	db := store.DefaultConfig()
	return &Config{
		Neo4j: Neo4jConfig{
			URI:                     db.URI,
			Username:                db.Username,
			Password:                db.Password,
			MaxConnectionPoolSize:   db.MaxConnectionPoolSize,
			ConnectionTimeout:       db.ConnectionTimeout,
			MaxTransactionRetryTime: db.MaxTransactionRetryTime,
		},
		Import: ImportConfig{
			BatchSize: ingest.DefaultBatchSize,
			Pattern:   ingest.DefaultPattern,
		},
		Redis: RedisConfig{
			URL:            "redis://localhost:6379",
			Queue:          queue.DefaultQueue,
			ConnectTimeout: 5 * time.Second,
			ReadTimeout:    3 * time.Second,
			WriteTimeout:   3 * time.Second,
		},
		Etcd: EtcdConfig{
			Namespace:   "binxgraph",
			TTL:         30,
			DialTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Address:         ":8080",
			CacheSize:       1000,
			CacheTTL:        time.Minute,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "binxgraph",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
