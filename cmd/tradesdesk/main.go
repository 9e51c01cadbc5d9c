package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	commands "github.com/tradesdesk/tradesdesk/cmd/tradesdesk/cli"
	"github.com/tradesdesk/tradesdesk/internal/app"
	"github.com/tradesdesk/tradesdesk/internal/documents"
	documentshttp "github.com/tradesdesk/tradesdesk/internal/documents/http"
	"github.com/tradesdesk/tradesdesk/internal/observability"
	"github.com/tradesdesk/tradesdesk/internal/platform/cache"
	"github.com/tradesdesk/tradesdesk/internal/platform/db"
	"github.com/tradesdesk/tradesdesk/jobs"
	"github.com/tradesdesk/tradesdesk/report"
)

var version = "dev"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := newApp().Run(os.Args); err != nil {
		slog.Default().Error("tradesdesk", slog.Any("error", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	inOut := []cli.Flag{
		&cli.StringFlag{Name: "in", Usage: "JSON request file", Required: true},
		&cli.StringFlag{Name: "out", Usage: "output file", Required: true},
	}
	return &cli.App{
		Name:    "tradesdesk",
		Usage:   "quote and invoice generation for tradespeople",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply pending database migrations", Action: migrate},
			{
				Name:  "render",
				Usage: "render a request file to a document without any infrastructure",
				Flags: append(inOut, &cli.StringFlag{Name: "sink", Usage: "gofpdf or gotenberg", Value: "gofpdf"}),
				Action: func(c *cli.Context) error {
					cfg, err := app.LoadConfig()
					if err != nil {
						return err
					}
					cfg.RenderSink = c.String("sink")
					gen, err := cfg.NewGenerator()
					if err != nil {
						return err
					}
					sink, err := cfg.NewRenderer()
					if err != nil {
						return err
					}
					return commands.RenderFile(c.Context, commands.LocalOptions{
						In: c.String("in"), Out: c.String("out"),
						Generator: gen, Sink: sink, DueDays: cfg.DefaultDueDays, Stdout: c.App.Writer,
					})
				},
			},
			{
				Name:  "breakdown",
				Usage: "write the xlsx cost breakdown of a request file",
				Flags: inOut,
				Action: func(c *cli.Context) error {
					cfg, err := app.LoadConfig()
					if err != nil {
						return err
					}
					gen, err := cfg.NewGenerator()
					if err != nil {
						return err
					}
					return commands.BreakdownFile(c.Context, commands.LocalOptions{
						In: c.String("in"), Out: c.String("out"),
						Generator: gen, DueDays: cfg.DefaultDueDays, Stdout: c.App.Writer,
					})
				},
			},
			{
				Name:  "jobs",
				Usage: "inspect and feed the document queue",
				Subcommands: []*cli.Command{
					{Name: "inspect", Usage: "print default queue statistics", Action: jobsInspect},
					{
						Name:  "enqueue",
						Usage: "queue a request file for background publishing",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "in", Required: true},
							&cli.StringFlag{Name: "owner", Required: true},
							&cli.StringFlag{Name: "job", Required: true},
						},
						Action: jobsEnqueue,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "manage the preview cache",
				Subcommands: []*cli.Command{
					{Name: "bump", Usage: "invalidate every cached preview", Action: cacheBump},
				},
			},
		},
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	tracer, shutdownTracing, err := observability.NewTracerProvider(ctx, cfg.Tracing("tradesdesk-api", version), logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer flush(logger, shutdownTracing)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := db.Migrate(ctx, pool, documents.Migrations, documents.MigrationsDir)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", slog.Any("versions", applied))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	service, err := cfg.NewDocumentService(pool, redisClient, metrics, logger)
	if err != nil {
		return fmt.Errorf("init document service: %w", err)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer queue.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	reportHandler := report.NewHandler(nil, logger)
	if cfg.RenderSink == "gotenberg" {
		reportHandler = report.NewHandler(report.NewClient(cfg.GotenbergURL), logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Tracer:  tracer,
		DocumentsHandler: documentshttp.NewHandler(documentshttp.Config{
			Service:        service,
			Enqueuer:       queue,
			Logger:         logger,
			DefaultDueDays: cfg.DefaultDueDays,
		}),
		ReportHandler: reportHandler,
		JobHandler:    jobs.NewHandler(inspector, logger),
		Ready: map[string]app.Checker{
			"postgres": pool.Ping,
			"redis":    cache.Checker(redisClient),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("sink", cfg.RenderSink))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	pool, err := db.New(c.Context, cfg.PGDSN, 2)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := db.Migrate(c.Context, pool, documents.Migrations, documents.MigrationsDir)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(c.App.Writer, "schema up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Fprintf(c.App.Writer, "applied %s\n", v)
	}
	return nil
}

func jobsInspect(c *cli.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	ops, err := commands.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer ops.Close()
	stats, err := ops.InspectQueue(c.Context)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func jobsEnqueue(c *cli.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	ops, err := commands.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer ops.Close()
	info, err := ops.EnqueueFile(c.Context, c.String("in"), c.String("owner"), c.String("job"), cfg.DefaultDueDays)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "queued %s on %s\n", info.ID, info.Queue)
	return nil
}

func cacheBump(c *cli.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	client, err := cache.New(c.Context, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer client.Close()
	ver, err := documents.NewPlanCache(client, cfg.PlanCacheTTL).Bump(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "preview cache version %d\n", ver)
	return nil
}

func flush(logger *slog.Logger, shutdown observability.Shutdown) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown", slog.Any("error", err))
	}
}
