package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vanshika/muletrace/internal/detect"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/scoring"
	"github.com/vanshika/muletrace/internal/txgraph"
)

// Options configures an AnalysisService.
type Options struct {
	Detection         detect.Config
	SuppressLegitHubs bool
	// Detectors overrides the standard detector set when non-empty.
	Detectors []detect.Detector
}

// AnalysisService runs the detection pipeline over one batch at a time. It
// holds no per-batch state and may be shared between goroutines.
type AnalysisService struct {
	logger        *slog.Logger
	normalizer    *ingest.Normalizer
	detectors     []detect.Detector
	suppressLegit bool
	nowFn         func() time.Time
	idFn          func() string
}

// NewAnalysisService constructs an AnalysisService.
func NewAnalysisService(logger *slog.Logger, opts Options) *AnalysisService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	detectors := opts.Detectors
	if len(detectors) == 0 {
		detectors = detect.All(opts.Detection, logger.With("component", "detect"))
	}
	return &AnalysisService{
		logger:        logger,
		normalizer:    ingest.NewNormalizer(logger.With("component", "ingest")),
		detectors:     detectors,
		suppressLegit: opts.SuppressLegitHubs,
		nowFn:         time.Now,
		idFn:          func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *AnalysisService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Analyze normalizes raw rows and produces a report. Malformed rows are
// skipped and counted; if none remain the error wraps ErrEmptyGraph.
func (s *AnalysisService) Analyze(ctx context.Context, rows []ingest.RawRow) (domain.Report, error) {
	start := s.nowFn()
	batch := s.normalizer.Normalize(rows)
	return s.analyze(ctx, batch, start)
}

// AnalyzeBatch produces a report from an already normalized batch.
func (s *AnalysisService) AnalyzeBatch(ctx context.Context, batch ingest.Batch) (domain.Report, error) {
	return s.analyze(ctx, batch, s.nowFn())
}

func (s *AnalysisService) analyze(ctx context.Context, batch ingest.Batch, start time.Time) (domain.Report, error) {
	graph, err := txgraph.Build(batch.Records)
	if err != nil {
		return domain.Report{}, fmt.Errorf("build graph (%d rows skipped): %w", batch.Skipped(), err)
	}

	findings, err := s.runDetectors(ctx, graph)
	if err != nil {
		return domain.Report{}, err
	}
	if s.suppressLegit {
		findings = scoring.SuppressLegitHubs(graph, findings)
	}

	accounts := scoring.Aggregate(findings)
	rings := scoring.ExtractRings(findings, accounts)

	finished := s.nowFn()
	report := assembleReport(reportInput{
		analysisID: s.idFn(),
		started:    start,
		finished:   finished,
		graph:      graph,
		batch:      batch,
		findings:   findings,
		accounts:   accounts,
		rings:      rings,
	})

	s.logger.Info("analysis complete",
		"analysis_id", report.Summary.AnalysisID,
		"accounts", report.Summary.TotalAccountsAnalyzed,
		"transactions", report.Summary.TotalTransactions,
		"skipped_rows", report.Summary.SkippedRows,
		"flagged", report.Summary.SuspiciousAccountsFlagged,
		"rings", report.Summary.FraudRingsDetected,
		"duration_ms", finished.Sub(start).Milliseconds(),
	)
	return report, nil
}

// runDetectors executes every detector concurrently against the same graph.
// Findings are concatenated in detector order so the result is deterministic.
func (s *AnalysisService) runDetectors(ctx context.Context, graph *txgraph.Graph) ([]domain.Finding, error) {
	results := make([][]domain.Finding, len(s.detectors))
	group, gctx := errgroup.WithContext(ctx)

	for i, d := range s.detectors {
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &DetectorError{Detector: d.Name(), Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			started := time.Now()
			findings, err := d.Detect(gctx, graph)
			if err != nil {
				return &DetectorError{Detector: d.Name(), Err: err}
			}
			results[i] = findings
			s.logger.Debug("detector finished", "detector", d.Name(), "findings", len(findings), "duration", time.Since(started))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.logger.Error("analysis aborted", "error", err)
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	findings := make([]domain.Finding, 0, total)
	for _, r := range results {
		findings = append(findings, r...)
	}
	return findings, nil
}
