package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jClient implements query.GraphClient for Neo4j.
// It provides connection pooling, connect retries and health checks.
type Neo4jClient struct {
	config Config
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4jClient creates a client with the given configuration.
// The client must be connected via Connect before use.
func NewNeo4jClient(config Config, logger *slog.Logger) (*Neo4jClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jClient{config: config, logger: logger}, nil
}

// Connect establishes the driver, retrying with exponential backoff.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.config.Username, c.config.Password, "")

	driverConfig := func(config *neo4j.Config) {
		if c.config.MaxConnectionPoolSize > 0 {
			config.MaxConnectionPoolSize = c.config.MaxConnectionPoolSize
		}
		config.ConnectionAcquisitionTimeout = c.config.ConnectionTimeout
		config.MaxTransactionRetryTime = c.config.MaxTransactionRetryTime
	}

	var lastErr error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.config.URI, auth, driverConfig)
		if err == nil {
			err = driver.VerifyConnectivity(ctx)
			if err == nil {
				c.driver = driver
				c.logger.Debug("connected to graph store", "uri", c.config.URI, "attempt", attempt+1)
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("%w: connection attempt cancelled: %w", ErrConnectionFailed, ctx.Err())
		}

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.config.ConnectionTimeout {
			delay = c.config.ConnectionTimeout
		}
		c.logger.Debug("graph store connect failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: connection attempt cancelled: %w", ErrConnectionFailed, ctx.Err())
		}
	}

	return fmt.Errorf("%w: failed after %d attempts: %w", ErrConnectionFailed, maxRetries, lastErr)
}

// Close releases the driver and its connection pool.
func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	if err != nil {
		return fmt.Errorf("failed to close driver: %w", err)
	}
	return nil
}

// Health verifies connectivity with a short timeout.
func (c *Neo4jClient) Health(ctx context.Context) HealthStatus {
	if c.driver == nil {
		return Unhealthy("driver not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.driver.VerifyConnectivity(healthCtx); err != nil {
		return Unhealthy(fmt.Sprintf("connectivity check failed: %v", err))
	}
	return Healthy("connected to Neo4j")
}

// Query runs cypher in a read transaction and returns all rows.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if c.driver == nil {
		return nil, ErrNotConnected
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return convertRecords(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return result.([]map[string]any), nil
}

// Execute runs cypher in a write transaction.
func (c *Neo4jClient) Execute(ctx context.Context, cypher string, params map[string]any) error {
	if c.driver == nil {
		return ErrNotConnected
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		if counters := summary.Counters(); counters != nil {
			c.logger.Debug("graph write",
				"nodes_created", counters.NodesCreated(),
				"relationships_created", counters.RelationshipsCreated(),
				"properties_set", counters.PropertiesSet())
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// convertRecords flattens driver records into column maps.
func convertRecords(records []*neo4j.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		rows = append(rows, row)
	}
	return rows
}
