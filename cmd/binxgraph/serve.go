package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph"
	"github.com/zero-day-ai/binxgraph/api"
	"github.com/zero-day-ai/binxgraph/registry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer a.closeClient(ctx, client)

			opts := []api.Option{
				api.WithHealth(client),
				api.WithStats(client.Stats()),
				api.WithLogger(a.logger),
				api.WithVersion(binxgraph.Version),
				api.WithReadTimeout(a.cfg.Server.ReadTimeout),
			}
			if a.cfg.Server.CacheSize > 0 {
				cache, err := api.NewCache(a.cfg.Server.CacheSize, a.cfg.Server.CacheTTL)
				if err != nil {
					return err
				}
				defer cache.Close()
				opts = append(opts, api.WithCache(cache))
			}
			if h := a.tel.MetricsHandler(); h != nil {
				opts = append(opts, api.WithMetrics(h))
			}
			srv := api.NewServer(client.Analyzer(), opts...)

			if a.cfg.Etcd.Enabled() {
				info := a.instance(registry.KindAPI, a.cfg.Telemetry.ServiceName, uuid.NewString())
				info.Endpoint = addr
				deregister, err := a.register(ctx, info)
				if err != nil {
					return err
				}
				defer deregister()
			}

			return srv.ListenAndServe(ctx, addr, a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.address)")
	return cmd
}
