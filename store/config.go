package store

import (
	"fmt"
	"time"
)

// Config contains connection settings for the graph database.
type Config struct {
	// URI is the connection URI. For Neo4j, use:
	//   - "bolt://host:port" for unencrypted connections
	//   - "bolt+s://host:port" for TLS encrypted connections
	//   - "neo4j://" or "neo4j+s://" for routing
	URI string

	Username string
	Password string

	// Database name to connect to. Empty uses the server default.
	Database string

	// MaxConnectionPoolSize limits the number of connections in the pool.
	// Zero or negative values use the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout bounds connection acquisition and retry backoff.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime is the maximum time to retry failed transactions.
	MaxTransactionRetryTime time.Duration
}

// DefaultConfig returns settings for a local development database.
func DefaultConfig() Config {
	return Config{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("%w: URI cannot be empty", ErrInvalidConfig)
	}
	if c.Username == "" {
		return fmt.Errorf("%w: username cannot be empty", ErrInvalidConfig)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalidConfig)
	}
	if c.ConnectionTimeout <= 0 {
		return fmt.Errorf("%w: connection timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxTransactionRetryTime <= 0 {
		return fmt.Errorf("%w: max transaction retry time must be positive", ErrInvalidConfig)
	}
	return nil
}
