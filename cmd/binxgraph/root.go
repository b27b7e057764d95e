package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph"
	"github.com/zero-day-ai/binxgraph/config"
	"github.com/zero-day-ai/binxgraph/queue"
	"github.com/zero-day-ai/binxgraph/telemetry"
)

var errConfig = errors.New("configuration error")

type globalFlags struct {
	configFile string
	verbose    bool
	output     string
	neo4jURI   string
	batchSize  int
}

// app carries what every command needs; it is built once per execution.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
	tel    *telemetry.Providers
	stdout io.Writer
	stderr io.Writer

	// connect opens the graph store; tests replace it.
	connect func(ctx context.Context, opts ...binxgraph.Option) (*binxgraph.Client, error)

	// newQueue opens the job queue; tests replace it.
	newQueue func() (queue.Client, error)
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	a.connect = func(ctx context.Context, opts ...binxgraph.Option) (*binxgraph.Client, error) {
		return binxgraph.Open(ctx, a.cfg.Neo4j.Store(), opts...)
	}
	a.newQueue = func() (queue.Client, error) {
		return queue.NewRedisClient(a.cfg.Redis.Options(a.logger))
	}
	return a
}

// Execute runs the CLI with SIGINT and SIGTERM cancelling ctx.
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(newApp(os.Stdout, os.Stderr))
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "binxgraph",
		Short: "Binary analysis knowledge graph",
		Long: `binxgraph imports the JSON exports of binary analysis tools into a
Neo4j graph of binaries, functions, strings, imports and call edges, and
answers cross-reference questions about them.`,
		Version:            binxgraph.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configFile, "config", "c", "binxgraph.yaml", "Path to config file (missing file means defaults)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&a.flags.output, "output", "o", "text", "Output format (text|json)")
	pf.StringVar(&a.flags.neo4jURI, "neo4j-uri", "", "Override neo4j.uri")
	pf.IntVar(&a.flags.batchSize, "batch-size", 0, "Override import.batch_size")

	root.AddCommand(
		newImportCmd(a),
		newWorkerCmd(a),
		newWorkersCmd(a),
		newQueryCmd(a),
		newDatabaseCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.flags.output != "text" && a.flags.output != "json" {
		return fmt.Errorf("%w: --output must be text or json", errConfig)
	}

	cfg, err := config.LoadWithDefaults(a.flags.configFile)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if a.flags.neo4jURI != "" {
		cfg.Neo4j.URI = a.flags.neo4jURI
	}
	if a.flags.batchSize > 0 {
		cfg.Import.BatchSize = a.flags.batchSize
	}
	if a.flags.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger = cfg.Log.Logger(a.stderr)

	tel, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: binxgraph.Version,
		Tracing:        cfg.Telemetry.Tracing,
		TraceWriter:    a.stderr,
		Metrics:        cfg.Telemetry.Metrics,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	a.tel = tel
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.tel == nil {
		return nil
	}
	if err := a.tel.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
	return nil
}

// client opens the store with the configured import and telemetry
// settings. The caller closes it with a.closeClient.
func (a *app) client(ctx context.Context) (*binxgraph.Client, error) {
	return a.connect(ctx,
		binxgraph.WithLogger(a.logger),
		binxgraph.WithTracer(a.tel.Tracer("binxgraph")),
		binxgraph.WithMeter(a.tel.Meter("binxgraph")),
		binxgraph.WithImportOptions(a.cfg.Import.Options()...),
	)
}

func (a *app) closeClient(ctx context.Context, c *binxgraph.Client) {
	if err := c.Close(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn("failed to close graph store", "error", err)
	}
}

func (a *app) jsonOutput() bool {
	return a.flags.output == "json"
}
