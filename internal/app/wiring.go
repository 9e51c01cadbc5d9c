package app

import (
	"log/slog"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tradesdesk/tradesdesk/internal/documents"
	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/internal/render"
	"github.com/tradesdesk/tradesdesk/internal/storage"
	"github.com/tradesdesk/tradesdesk/report"
)

// NewObjectStore opens the configured document store.
func (c *Config) NewObjectStore() (storage.ObjectStore, error) {
	if c.StorageBackend == "s3" {
		return storage.NewS3(c.S3Bucket, c.S3Region)
	}
	return storage.NewFS(c.StorageDir), nil
}

// NewRenderer builds the configured sink. The Gotenberg client is only
// created when the sink needs it.
func (c *Config) NewRenderer() (render.Sink, error) {
	var client render.PDFClient
	if c.RenderSink == "gotenberg" {
		client = report.NewClient(c.GotenbergURL, report.WithTimeout(c.AppRequestTimeout))
	}
	return render.New(c.RenderSink, client)
}

// NewNode returns the snowflake node minting document ids.
func (c *Config) NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(c.NodeID)
}

// Tracing maps configuration onto the tracer provider settings.
func (c *Config) Tracing(service, version string) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:        c.OTelEnabled,
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.AppEnv,
		Endpoint:       c.OTelEndpoint,
		SamplingRatio:  c.OTelSamplingRatio,
	}
}

// NewDocumentService assembles the publishing service shared by the API and the worker.
// A nil redis client disables the preview cache.
func (c *Config) NewDocumentService(pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) (*documents.Service, error) {
	gen, err := c.NewGenerator()
	if err != nil {
		return nil, err
	}
	sink, err := c.NewRenderer()
	if err != nil {
		return nil, err
	}
	store, err := c.NewObjectStore()
	if err != nil {
		return nil, err
	}
	node, err := c.NewNode()
	if err != nil {
		return nil, err
	}
	var cache *documents.PlanCache
	if redisClient != nil {
		cache = documents.NewPlanCache(redisClient, c.PlanCacheTTL)
	}
	return documents.NewService(documents.ServiceConfig{
		Generator: gen,
		Renderer:  sink,
		Store:     store,
		Records:   documents.NewRepository(pool),
		Cache:     cache,
		Node:      node,
		Metrics:   metrics,
		Logger:    logger,
	})
}
