package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/muletrace/internal/config"
	"github.com/vanshika/muletrace/internal/graphdb"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/publish"
	"github.com/vanshika/muletrace/internal/repository"
	"github.com/vanshika/muletrace/internal/server"
	"github.com/vanshika/muletrace/internal/service"
)

func main() {
	os.Exit(run())
}

// run wires and serves the API. Deferred client shutdowns run before main
// exits with the returned code.
func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := logging.New(cfg.Logging)

	analysis := service.NewAnalysisService(logger.With("component", "analysis"), service.Options{
		Detection:         cfg.Detection.Thresholds(),
		SuppressLegitHubs: cfg.Detection.SuppressLegitHubs,
	})
	opts := server.HandlerOptions{UploadMaxBytes: cfg.HTTP.UploadMaxBytes}
	health := server.DependencyHealth{Deps: map[string]server.Pinger{}}

	// The graph database is optional: uploads work without it.
	if cfg.Graph.URI != "" {
		graphClient, err := buildGraphClient(ctx, logger, cfg)
		if err != nil {
			logger.Error("failed to create graph client", "error", err)
			return 1
		}
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		repo := repository.New(graphClient)
		opts.Source = repo
		health.Deps["graph"] = repo
	}

	if cfg.Kafka.Enabled() {
		publisher, err := publish.NewKafkaPublisher(cfg.Kafka.Brokers(), cfg.Kafka.Topic, cfg.Kafka.ClientID)
		if err != nil {
			logger.Error("failed to create kafka publisher", "error", err)
			return 1
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("closing kafka publisher failed", "error", err)
			}
		}()
		opts.Publisher = publisher
		logger.Info("publishing reports to kafka", "topic", cfg.Kafka.Topic)
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, analysis, opts),
		AllowedOrigins:   config.SplitCSV(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: false,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.New(logger, cfg.HTTP, router).Run(runCtx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		return 1
	}
	logger.Info("server stopped")
	return 0
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graphdb.Client, error) {
	client, err := graphdb.NewNeo4jClient(ctx, graphdb.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
		FetchSize:      cfg.Graph.FetchSize,
		QueryTimeout:   cfg.Graph.QueryTimeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
