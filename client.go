package binxgraph

import (
	"context"
	"io"
	"log/slog"

	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/graph/query"
	"github.com/zero-day-ai/binxgraph/ingest"
	"github.com/zero-day-ai/binxgraph/store"
)

// Version is the binxgraph release.
const Version = "0.4.0"

// Client bundles the importer, the analyzer and the store maintenance
// tools over one graph store handle.
type Client struct {
	graph    query.GraphClient
	closer   func(context.Context) error
	logger   *slog.Logger
	importer *ingest.Importer
	analyzer *analysis.Analyzer
	schema   *store.Schema
	stats    *store.Stats
	exporter *store.Exporter
}

// New creates a Client over an existing graph client. The caller keeps
// ownership of gc; Close does not close it.
func New(gc query.GraphClient, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	importOpts := append([]ingest.Option{
		ingest.WithLogger(cfg.logger),
		ingest.WithTracer(cfg.tracer),
		ingest.WithMeter(cfg.meter),
		ingest.WithBatchSize(cfg.batchSize),
		ingest.WithValidation(cfg.validate),
	}, cfg.ingestOpts...)
	importer, err := ingest.NewImporter(store.NewWriter(gc), importOpts...)
	if err != nil {
		return nil, wrap("New", err)
	}

	return &Client{
		graph:    gc,
		logger:   cfg.logger,
		importer: importer,
		analyzer: analysis.NewAnalyzer(gc,
			analysis.WithLogger(cfg.logger),
			analysis.WithTracer(cfg.tracer),
			analysis.WithFulltextIndex(cfg.fulltext)),
		schema:   store.NewSchema(gc, cfg.logger),
		stats:    store.NewStats(gc),
		exporter: store.NewExporter(gc),
	}, nil
}

// Open connects to Neo4j and creates a Client that owns the connection.
func Open(ctx context.Context, cfg store.Config, opts ...Option) (*Client, error) {
	c := defaultClientConfig()
	for _, opt := range opts {
		opt(&c)
	}

	neo, err := store.NewNeo4jClient(cfg, c.logger)
	if err != nil {
		return nil, wrap("Open", err)
	}
	if err := neo.Connect(ctx); err != nil {
		return nil, (&Error{Op: "Open", Kind: KindStorage, Err: err}).WithContext(map[string]any{"uri": cfg.URI})
	}

	client, err := New(neo, opts...)
	if err != nil {
		_ = neo.Close(ctx)
		return nil, err
	}
	client.closer = neo.Close
	return client, nil
}

// Close releases the connection opened by Open.
func (c *Client) Close(ctx context.Context) error {
	if c.closer == nil {
		return nil
	}
	err := c.closer(ctx)
	c.closer = nil
	return wrap("Close", err)
}

// Health reports store connectivity when the graph client supports it.
func (c *Client) Health(ctx context.Context) store.HealthStatus {
	if h, ok := c.graph.(interface {
		Health(context.Context) store.HealthStatus
	}); ok {
		return h.Health(ctx)
	}
	return store.Healthy("graph client does not report health")
}

// Graph returns the underlying graph client.
func (c *Client) Graph() query.GraphClient { return c.graph }

// Importer returns the shared importer.
func (c *Client) Importer() *ingest.Importer { return c.importer }

// Analyzer returns the shared analyzer.
func (c *Client) Analyzer() *analysis.Analyzer { return c.analyzer }

// Stats returns the statistics reader.
func (c *Client) Stats() *store.Stats { return c.stats }

// ImportFile imports one analysis document.
func (c *Client) ImportFile(ctx context.Context, path string) (ingest.Result, error) {
	res, err := c.importer.ImportFile(ctx, path)
	if err != nil {
		return res, (&Error{Op: "Client.ImportFile", Kind: classify(err), Err: err}).WithContext(map[string]any{"path": path})
	}
	return res, nil
}

// ImportJSON imports a document held in memory.
func (c *Client) ImportJSON(ctx context.Context, data []byte) (ingest.Result, error) {
	res, err := c.importer.ImportJSON(ctx, data)
	return res, wrap("Client.ImportJSON", err)
}

// ImportReader imports a document read from r.
func (c *Client) ImportReader(ctx context.Context, r io.Reader) (ingest.Result, error) {
	res, err := c.importer.ImportReader(ctx, r)
	return res, wrap("Client.ImportReader", err)
}

// ImportDirectory imports the files of dir matching pattern.
func (c *Client) ImportDirectory(ctx context.Context, dir, pattern string) (ingest.DirectoryResult, error) {
	res, err := c.importer.ImportDirectory(ctx, dir, pattern)
	if err != nil {
		return res, (&Error{Op: "Client.ImportDirectory", Kind: classify(err), Err: err}).WithContext(map[string]any{"dir": dir})
	}
	return res, nil
}

// InitSchema creates the constraints and indexes.
func (c *Client) InitSchema(ctx context.Context) store.SchemaReport {
	return c.schema.Init(ctx)
}

// Clear deletes every node and relationship.
func (c *Client) Clear(ctx context.Context) error {
	return wrap("Client.Clear", c.schema.Clear(ctx))
}

// GraphStatistics counts entities across the store.
func (c *Client) GraphStatistics(ctx context.Context) (store.GraphStatistics, error) {
	st, err := c.stats.Graph(ctx)
	return st, wrap("Client.GraphStatistics", err)
}

// DatabaseStatistics counts nodes, relationships and labels.
func (c *Client) DatabaseStatistics(ctx context.Context) (store.DatabaseStatistics, error) {
	st, err := c.stats.Database(ctx)
	return st, wrap("Client.DatabaseStatistics", err)
}

// Export writes every node and relationship to w as JSON.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	return wrap("Client.Export", c.exporter.WriteJSON(ctx, w))
}
