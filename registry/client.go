package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("registry client is closed")

const (
	defaultNamespace   = "binxgraph"
	defaultTTL         = 30
	defaultDialTimeout = 5 * time.Second
)

// Client implements Registry on etcd.
//
// Thread-safety: All methods are safe for concurrent use.
type Client struct {
	client    *clientv3.Client
	namespace string
	ttl       int
	logger    *slog.Logger

	mu         sync.Mutex
	leases     map[string]clientv3.LeaseID // key: instance ID
	cancelFns  map[string]context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	closedChan chan struct{}
}

// NewClient connects to etcd and verifies the connection with a read.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("registry endpoints cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = withDefaults(cfg)

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}
	tlsCfg, err := cfg.TLS.clientTLS()
	if err != nil {
		return nil, err
	}
	clientCfg.TLS = tlsCfg

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if _, err := cli.Get(ctx, "/"+cfg.Namespace+"/health-check"); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &Client{
		client:     cli,
		namespace:  cfg.Namespace,
		ttl:        cfg.TTL,
		logger:     logger,
		leases:     make(map[string]clientv3.LeaseID),
		cancelFns:  make(map[string]context.CancelFunc),
		closedChan: make(chan struct{}),
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return cfg
}

// Register adds info under a fresh lease and starts renewing it every
// TTL/3. Registering the same InstanceID again replaces the entry.
func (c *Client) Register(ctx context.Context, info Instance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}

	lease, err := c.client.Grant(ctx, int64(c.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	key := buildKey(c.namespace, info.Kind, info.Name, info.InstanceID)
	if _, err := c.client.Put(ctx, key, string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register instance: %w", err)
	}

	if old, ok := c.leases[info.InstanceID]; ok && old != lease.ID {
		// the replaced entry is bound to the old lease
		if _, err := c.client.Revoke(ctx, old); err != nil {
			c.logger.Debug("revoke of replaced lease failed", "instance_id", info.InstanceID, "error", err)
		}
	}
	c.leases[info.InstanceID] = lease.ID

	keepaliveCtx, cancel := context.WithCancel(context.Background())
	c.cancelFns[info.InstanceID] = cancel
	c.wg.Add(1)
	go c.keepalive(keepaliveCtx, lease.ID, info.InstanceID)

	c.logger.Info("registered", "kind", info.Kind, "name", info.Name, "instance_id", info.InstanceID)
	return nil
}

// Deregister revokes the instance's lease, deleting its entry.
func (c *Client) Deregister(ctx context.Context, info Instance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if cancelFn, exists := c.cancelFns[info.InstanceID]; exists {
		cancelFn()
		delete(c.cancelFns, info.InstanceID)
	}
	leaseID, exists := c.leases[info.InstanceID]
	if !exists {
		return nil
	}
	if _, err := c.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	delete(c.leases, info.InstanceID)
	return nil
}

// Discover lists the instances of one kind and name.
func (c *Client) Discover(ctx context.Context, kind, name string) ([]Instance, error) {
	return c.list(ctx, kindNamePrefix(c.namespace, kind, name))
}

// DiscoverAll lists every instance of one kind.
func (c *Client) DiscoverAll(ctx context.Context, kind string) ([]Instance, error) {
	return c.list(ctx, kindPrefix(c.namespace, kind))
}

func (c *Client) list(ctx context.Context, prefix string) ([]Instance, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	resp, err := c.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover instances: %w", err)
	}
	return decodeInstances(resp.Kvs, c.logger), nil
}

// Watch emits the current instances of kind and name now and after every
// change.
func (c *Client) Watch(ctx context.Context, kind, name string) (<-chan []Instance, error) {
	instances, err := c.Discover(ctx, kind, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	ch := make(chan []Instance, 1)
	ch <- instances
	watchChan := c.client.Watch(ctx, kindNamePrefix(c.namespace, kind, name), clientv3.WithPrefix())

	go func() {
		defer c.wg.Done()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closedChan:
				return
			case resp, ok := <-watchChan:
				if !ok || resp.Err() != nil {
					return
				}
				current, err := c.Discover(ctx, kind, name)
				if err != nil {
					c.logger.Debug("watch refresh failed", "kind", kind, "name", name, "error", err)
					continue
				}
				select {
				case ch <- current:
				case <-ctx.Done():
					return
				case <-c.closedChan:
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close stops every keepalive and watch and closes the etcd client. Leases
// are left to expire.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, cancel := range c.cancelFns {
		cancel()
	}
	c.cancelFns = make(map[string]context.CancelFunc)
	close(c.closedChan)
	c.mu.Unlock()

	c.wg.Wait()
	return c.client.Close()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// keepalive renews the lease every TTL/3 until cancelled or the lease is
// gone.
func (c *Client) keepalive(ctx context.Context, leaseID clientv3.LeaseID, instanceID string) {
	defer c.wg.Done()

	ticker := time.NewTicker(renewInterval(c.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closedChan:
			return
		case <-ticker.C:
			if _, err := c.client.KeepAliveOnce(ctx, leaseID); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("lease renewal failed, instance no longer registered", "instance_id", instanceID, "error", err)
				c.mu.Lock()
				if c.leases[instanceID] == leaseID {
					delete(c.leases, instanceID)
					delete(c.cancelFns, instanceID)
				}
				c.mu.Unlock()
				return
			}
		}
	}
}

func renewInterval(ttl int) time.Duration {
	d := time.Duration(ttl) * time.Second / 3
	if d <= 0 {
		d = time.Second
	}
	return d
}

func buildKey(namespace, kind, name, instanceID string) string {
	return fmt.Sprintf("/%s/%s/%s/%s", namespace, kind, name, instanceID)
}

func kindPrefix(namespace, kind string) string {
	return fmt.Sprintf("/%s/%s/", namespace, kind)
}

func kindNamePrefix(namespace, kind, name string) string {
	return fmt.Sprintf("/%s/%s/%s/", namespace, kind, name)
}

// decodeInstances parses entries, skipping the ones that are not valid
// instances.
func decodeInstances(kvs []*mvccpb.KeyValue, logger *slog.Logger) []Instance {
	out := make([]Instance, 0, len(kvs))
	for _, kv := range kvs {
		var info Instance
		if err := json.Unmarshal(kv.Value, &info); err != nil {
			logger.Debug("skipping malformed registry entry", "key", string(kv.Key), "error", err)
			continue
		}
		out = append(out, info)
	}
	return out
}
