package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client defines the interface for interacting with the import queue.
type Client interface {
	// Push adds a job to the end of a queue (LPUSH).
	Push(ctx context.Context, queue string, job ImportJob) error

	// Pop removes and returns a job from the front of a queue (BRPOP).
	// It waits at most timeout and returns nil, nil when nothing arrived.
	Pop(ctx context.Context, queue string, timeout time.Duration) (*ImportJob, error)

	// Len returns the number of queued jobs.
	Len(ctx context.Context, queue string) (int64, error)

	// Publish sends a result to a pub/sub channel.
	Publish(ctx context.Context, channel string, result JobResult) error

	// Subscribe creates a subscription to a pub/sub channel.
	// Returns a channel that receives results until ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan JobResult, error)

	// Heartbeat refreshes the health key of a worker.
	Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error

	// WorkerCount returns the number of running workers.
	WorkerCount(ctx context.Context) (int, error)

	// IncrementWorkerCount increments the running worker count.
	IncrementWorkerCount(ctx context.Context) error

	// DecrementWorkerCount decrements the running worker count.
	DecrementWorkerCount(ctx context.Context) error

	// Close closes the Redis connection.
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// RedisClient implements the Client interface using go-redis/v9.
type RedisClient struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisClient creates a new Redis queue client with the given options.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, logger: opts.Logger}, nil
}

// Push adds a job to the end of a queue.
func (c *RedisClient) Push(ctx context.Context, queue string, job ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal import job: %w", err)
	}
	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}
	return nil
}

// Pop removes and returns a job from the front of a queue.
func (c *RedisClient) Pop(ctx context.Context, queue string, timeout time.Duration) (*ImportJob, error) {
	// BRPOP returns [queue_name, value] or redis.Nil on timeout
	result, err := c.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var job ImportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import job: %w", err)
	}
	return &job, nil
}

// Len returns the number of queued jobs.
func (c *RedisClient) Len(ctx context.Context, queue string) (int64, error) {
	n, err := c.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read length of queue %s: %w", queue, err)
	}
	return n, nil
}

// Publish sends a result to a pub/sub channel.
func (c *RedisClient) Publish(ctx context.Context, channel string, result JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a subscription to a pub/sub channel.
func (c *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan JobResult, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	results := make(chan JobResult)
	go func() {
		defer close(results)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var result JobResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					c.logger.Warn("dropping malformed job result", "channel", channel, "error", err)
					continue
				}
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results, nil
}

// Heartbeat refreshes the health key of a worker.
func (c *RedisClient) Heartbeat(ctx context.Context, workerID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, healthKey(workerID), "ok", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for worker %s: %w", workerID, err)
	}
	return nil
}

// WorkerCount returns the number of running workers.
func (c *RedisClient) WorkerCount(ctx context.Context) (int, error) {
	countStr, err := c.client.Get(ctx, workersKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count: %w", err)
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}
	return count, nil
}

// IncrementWorkerCount increments the running worker count.
func (c *RedisClient) IncrementWorkerCount(ctx context.Context) error {
	if err := c.client.Incr(ctx, workersKey).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count: %w", err)
	}
	return nil
}

// DecrementWorkerCount decrements the running worker count.
func (c *RedisClient) DecrementWorkerCount(ctx context.Context) error {
	if err := c.client.Decr(ctx, workersKey).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// formatKeyName joins key segments with colons.
func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}
