package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph"
	"github.com/zero-day-ai/binxgraph/queue"
	"github.com/zero-day-ai/binxgraph/registry"
)

func newWorkerCmd(a *app) *cobra.Command {
	var id, healthAddr string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Import files queued by 'import enqueue'",
		Long: `Runs an import worker: pops jobs from the Redis queue, imports each
file and publishes the result. When etcd endpoints are configured the
worker registers itself so 'binxgraph workers' can list it. With a health
address the worker serves the gRPC health service (grpc.health.v1) there
and registers it as its endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			if healthAddr != "" {
				a.cfg.Worker.HealthAddress = healthAddr
			}
			return a.runWorker(cmd.Context(), id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Worker ID (default: random UUID)")
	cmd.Flags().StringVar(&healthAddr, "health-addr", "", "Serve gRPC health checks on host:port (overrides worker.health_address)")
	return cmd
}

func (a *app) runWorker(ctx context.Context, id string) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer a.closeClient(ctx, client)

	qc, err := a.newQueue()
	if err != nil {
		return err
	}
	defer binxgraph.CloseWithLog(qc, a.logger, "queue client")

	health, err := a.serveHealth()
	if err != nil {
		return err
	}
	defer health.Stop()

	if a.cfg.Etcd.Enabled() {
		info := a.instance(registry.KindWorker, a.cfg.Redis.Queue, id)
		info.Endpoint = health.Addr()
		deregister, err := a.register(ctx, info)
		if err != nil {
			return err
		}
		defer deregister()
	}
	if addr := a.cfg.Telemetry.MetricsAddress; addr != "" && a.tel.MetricsHandler() != nil {
		stop := serveMetrics(addr, a.tel.MetricsHandler(), a)
		defer stop()
	}

	w := &queue.Worker{
		Client:   qc,
		Importer: client.Importer(),
		Queue:    a.cfg.Redis.Queue,
		ID:       id,
		Health:   health,
		Logger:   a.logger,
	}
	a.logger.Info("worker starting", "worker_id", id, "queue", w.Queue)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("worker stopped", "worker_id", id)
	return nil
}

// serveHealth starts the worker's gRPC health server, or returns nil when
// no address is configured.
func (a *app) serveHealth() (*queue.Health, error) {
	addr := a.cfg.Worker.HealthAddress
	if addr == "" {
		return nil, nil
	}
	health, err := queue.ListenHealth(addr)
	if err != nil {
		return nil, fmt.Errorf("health endpoint: %w", err)
	}
	go func() {
		if err := health.Serve(); err != nil {
			a.logger.Warn("health endpoint stopped", "address", addr, "error", err)
		}
	}()
	a.logger.Info("health endpoint listening", "address", health.Addr())
	return health, nil
}

// instance describes this process for the registry.
func (a *app) instance(kind, name, id string) registry.Instance {
	host, _ := os.Hostname()
	return registry.Instance{
		Kind:       kind,
		Name:       name,
		Version:    binxgraph.Version,
		InstanceID: id,
		Metadata: map[string]string{
			"hostname": host,
			"neo4j":    a.cfg.Neo4j.URI,
		},
		StartedAt: time.Now().UTC(),
	}
}

// register announces info in etcd and returns the cleanup.
func (a *app) register(ctx context.Context, info registry.Instance) (func(), error) {
	reg, err := registry.NewClient(a.cfg.Etcd.Registry(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect registry: %w", err)
	}
	if err := reg.Register(ctx, info); err != nil {
		_ = reg.Close()
		return nil, err
	}
	return func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reg.Deregister(dctx, info); err != nil {
			a.logger.Warn("failed to deregister", "kind", info.Kind, "error", err)
		}
		binxgraph.CloseWithLog(reg, a.logger, "registry client")
	}, nil
}

// serveMetrics exposes h on addr/metrics and returns the shutdown.
func serveMetrics(addr string, h http.Handler, a *app) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics endpoint stopped", "address", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func newWorkersCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List registered import workers and API servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Etcd.Enabled() {
				return fmt.Errorf("%w: etcd.endpoints is not configured", errConfig)
			}
			reg, err := registry.NewClient(a.cfg.Etcd.Registry(), a.logger)
			if err != nil {
				return fmt.Errorf("connect registry: %w", err)
			}
			defer binxgraph.CloseWithLog(reg, a.logger, "registry client")

			var all []registry.Instance
			for _, k := range []string{registry.KindWorker, registry.KindAPI} {
				if kind != "" && kind != k {
					continue
				}
				found, err := reg.DiscoverAll(cmd.Context(), k)
				if err != nil {
					return err
				}
				all = append(all, found...)
			}
			return a.emit(all, func(w io.Writer) { printInstances(w, all) })
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only list this kind (worker|api)")
	return cmd
}

func printInstances(w io.Writer, instances []registry.Instance) {
	if len(instances) == 0 {
		fmt.Fprintln(w, "No instances registered")
		return
	}
	rows := make([][]string, 0, len(instances))
	for _, in := range instances {
		rows = append(rows, []string{
			in.Kind, in.Name, in.InstanceID, in.Version, in.Metadata["hostname"], in.Endpoint, in.StartedAt.Format(time.RFC3339),
		})
	}
	table(w, "KIND\tNAME\tINSTANCE\tVERSION\tHOST\tENDPOINT\tSTARTED", rows)
}
