// Package registry announces running binxgraph processes in etcd.
//
// Import workers and API servers register an Instance on startup, keep it
// alive with a lease, and deregister on shutdown. Operators and producers
// discover which workers serve a queue before enqueueing a batch. A process
// that crashes disappears once its lease expires.
package registry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

// Instance kinds.
const (
	KindWorker = "worker"
	KindAPI    = "api"
)

// Instance describes one running process.
type Instance struct {
	// Kind is KindWorker or KindAPI
	Kind string `json:"kind"`

	// Name groups instances serving the same thing: the queue for workers,
	// the listen address for API servers
	Name string `json:"name"`

	Version string `json:"version"`

	// InstanceID is unique per process (typically a UUID)
	InstanceID string `json:"instance_id"`

	// Endpoint is where the instance can be reached, if anywhere
	Endpoint string `json:"endpoint,omitempty"`

	// Metadata holds free-form attributes such as the graph database URI
	Metadata map[string]string `json:"metadata,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// Registry is the registration and discovery contract.
//
// Implementations must be safe for concurrent use. Entries are bound to a
// lease so they vanish when their owner stops renewing it.
type Registry interface {
	// Register adds or replaces the entry for info.InstanceID and keeps
	// it alive in the background until Deregister or Close.
	Register(ctx context.Context, info Instance) error

	// Deregister removes the entry. Unknown instances are a no-op.
	Deregister(ctx context.Context, info Instance) error

	// Discover lists the instances of one kind and name.
	Discover(ctx context.Context, kind, name string) ([]Instance, error)

	// DiscoverAll lists every instance of one kind.
	DiscoverAll(ctx context.Context, kind string) ([]Instance, error)

	// Watch emits the current instances of kind and name now and after
	// every change, until ctx is done or the registry is closed.
	Watch(ctx context.Context, kind, name string) (<-chan []Instance, error)

	// Close stops keepalives and watches and releases the connection.
	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints, "host:port"
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	// Namespace prefixes every key: /{namespace}/{kind}/{name}/{instance-id}
	// Default: "binxgraph"
	Namespace string `json:"namespace" yaml:"namespace"`

	// TTL is the lease time-to-live in seconds. Default: 30
	TTL int `json:"ttl" yaml:"ttl"`

	// DialTimeout bounds connection establishment. Default: 5s
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`

	TLS *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig holds mutual TLS material for etcd.
type TLSConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// clientTLS builds the etcd client's TLS settings. It returns nil when c is
// nil or disabled; a partial file set is an error.
func (c *TLSConfig) clientTLS() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	for _, f := range []struct{ name, path string }{
		{"cert_file", c.CertFile},
		{"key_file", c.KeyFile},
		{"ca_file", c.CAFile},
	} {
		if f.path == "" {
			return nil, fmt.Errorf("etcd registry tls: %s is required when tls is enabled", f.name)
		}
	}

	pair, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("etcd registry tls: load worker key pair: %w", err)
	}
	caPEM, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("etcd registry tls: read ca_file: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("etcd registry tls: %s holds no PEM certificates", c.CAFile)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		RootCAs:      roots,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
