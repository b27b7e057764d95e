package queue

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name a worker reports under, next to the
// server-wide "" entry.
const HealthService = "binxgraph.queue.Worker"

// Health serves the standard gRPC health service at the endpoint a worker
// advertises in the registry.
//
// A nil *Health is valid and ignores every call.
type Health struct {
	grpcServer   *grpc.Server
	healthServer *health.Server
	listener     net.Listener
}

// ListenHealth listens on addr ("host:port", port 0 picks one).
func ListenHealth(addr string) (*Health, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return NewHealth(lis), nil
}

// NewHealth serves on lis. Both entries start NOT_SERVING.
func NewHealth(lis net.Listener) *Health {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	h := &Health{grpcServer: grpcServer, healthServer: healthServer, listener: lis}
	h.SetServing(false)
	return h
}

// Addr is the listening address, suitable for registry.Instance.Endpoint.
func (h *Health) Addr() string {
	if h == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Serve blocks until Stop. It returns nil after Stop.
func (h *Health) Serve() error {
	if h == nil {
		return nil
	}
	if err := h.grpcServer.Serve(h.listener); err != nil {
		return fmt.Errorf("gRPC health server error: %w", err)
	}
	return nil
}

// SetServing reports the worker as accepting jobs or not.
func (h *Health) SetServing(serving bool) {
	if h == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.healthServer.SetServingStatus("", status)
	h.healthServer.SetServingStatus(HealthService, status)
}

// Stop marks every service NOT_SERVING and closes the server. Open Watch
// streams end with the connection.
func (h *Health) Stop() {
	if h == nil {
		return
	}
	h.healthServer.Shutdown()
	h.grpcServer.Stop()
	_ = h.listener.Close()
}
