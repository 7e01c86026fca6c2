package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vanshika/muletrace/internal/config"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/graphdb"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/publish"
	"github.com/vanshika/muletrace/internal/repository"
	"github.com/vanshika/muletrace/internal/service"
)

var errNoInput = errors.New("no input: pass CSV files or -graph")

func main() {
	os.Exit(run())
}

// run holds the whole command so deferred cleanup completes before main
// exits with the returned code.
func run() int {
	var (
		fromGraph = flag.Bool("graph", false, "analyze transactions stored in the graph database (GRAPH_URI)")
		from      = flag.String("from", "", "graph mode: RFC 3339 lower bound on transaction time")
		to        = flag.String("to", "", "graph mode: RFC 3339 upper bound on transaction time")
		limit     = flag.Int("limit", 0, "graph mode: maximum transactions to load (0 = all)")
		outputDir = flag.String("output-dir", "", "write one <name>.report.json per batch; stdout when empty and a single batch")
		workers   = flag.Int("workers", 4, "number of batches analyzed concurrently")
		publishOn = flag.Bool("publish", false, "publish reports to Kafka (KAFKA_BROKERS)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.Logging).With("component", "analyze")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var jobs []service.Job
	switch {
	case *fromGraph:
		job, err := loadGraphJob(ctx, logger, cfg, *from, *to, *limit)
		if err != nil {
			logger.Error("failed to load stored transactions", "error", err)
			return 1
		}
		jobs = append(jobs, job)
	case flag.NArg() > 0:
		jobs, err = loadCSVJobs(flag.Args())
		if err != nil {
			logger.Error("failed to read input", "error", err)
			return 1
		}
	default:
		fmt.Fprintln(os.Stderr, errNoInput)
		flag.Usage()
		return 2
	}

	if len(jobs) > 1 && *outputDir == "" {
		logger.Error("multiple batches require -output-dir", "batches", len(jobs))
		return 2
	}

	var publisher *publish.KafkaPublisher
	if *publishOn {
		publisher, err = publish.NewKafkaPublisher(cfg.Kafka.Brokers(), cfg.Kafka.Topic, cfg.Kafka.ClientID)
		if err != nil {
			logger.Error("failed to create kafka publisher", "error", err)
			return 1
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("closing kafka publisher failed", "error", err)
			}
		}()
	}

	analysis := service.NewAnalysisService(logger, service.Options{
		Detection:         cfg.Detection.Thresholds(),
		SuppressLegitHubs: cfg.Detection.SuppressLegitHubs,
	})
	analyzer := service.NewBulkAnalyzer(analysis, *workers)

	start := time.Now()
	outcomes, runErr := analyzer.AnalyzeAll(ctx, jobs)

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil || outcome.Name == "" {
			failed++
			continue
		}
		if err := writeReport(*outputDir, outcome); err != nil {
			logger.Error("failed to write report", "batch", outcome.Name, "error", err)
			failed++
			continue
		}
		if publisher != nil {
			if err := publisher.Publish(ctx, outcome.Report); err != nil {
				logger.Warn("failed to publish report", "batch", outcome.Name, "error", err)
			}
		}
	}

	if runErr != nil || failed > 0 {
		logger.Error("analysis finished with errors", "error", runErr, "failed", failed, "batches", len(jobs))
		return 1
	}
	logger.Info("analysis finished", "batches", len(jobs), "duration", time.Since(start).String())
	return 0
}

func loadCSVJobs(paths []string) ([]service.Job, error) {
	names := jobNames(paths)
	jobs := make([]service.Job, 0, len(paths))
	for i, path := range paths {
		rows, err := readCSVFile(path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, service.Job{Name: names[i], Rows: rows})
	}
	return jobs, nil
}

// jobNames derives a report name from each file's base name. Repeated base
// names get a numeric suffix so their reports do not overwrite each other.
func jobNames(paths []string) []string {
	names := make([]string, len(paths))
	taken := make(map[string]struct{}, len(paths))
	for i, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := base
		for n := 2; ; n++ {
			if _, dup := taken[name]; !dup {
				break
			}
			name = fmt.Sprintf("%s-%d", base, n)
		}
		taken[name] = struct{}{}
		names[i] = name
	}
	return names
}

func readCSVFile(path string) ([]ingest.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := ingest.ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func loadGraphJob(ctx context.Context, logger *slog.Logger, cfg config.Config, from, to string, limit int) (service.Job, error) {
	filter := repository.ExportFilter{Limit: limit}
	if from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return service.Job{}, fmt.Errorf("invalid -from: %w", err)
		}
		filter.From = &ts
	}
	if to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return service.Job{}, fmt.Errorf("invalid -to: %w", err)
		}
		filter.To = &ts
	}

	if cfg.Graph.URI == "" {
		return service.Job{}, graphdb.ErrMissingURI
	}
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
		return service.Job{}, err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	rows, err := repository.New(client).ExportRows(ctx, filter)
	if err != nil {
		return service.Job{}, err
	}
	logger.Info("loaded stored transactions", "rows", len(rows), "uri", cfg.Graph.URI)
	return service.Job{Name: "graph", Rows: rows}, nil
}

func writeReport(dir string, outcome service.Outcome) error {
	if dir == "" {
		return encodeReport(os.Stdout, outcome.Report)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, outcome.Name+".report.json")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := encodeReport(file, outcome.Report); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func encodeReport(w io.Writer, report domain.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
