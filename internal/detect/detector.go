// Package detect implements the money-muling pattern detectors. Every
// detector reads a shared *txgraph.Graph and returns its own findings;
// none of them mutate the graph.
package detect

import (
	"context"
	"log/slog"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

// Detector inspects a graph for one family of patterns.
type Detector interface {
	Name() string
	Detect(ctx context.Context, g *txgraph.Graph) ([]domain.Finding, error)
}

// All returns the standard detector set in a fixed order.
func All(cfg Config, logger *slog.Logger) []Detector {
	return []Detector{
		NewCycleDetector(cfg, logger),
		NewSmurfingDetector(cfg),
		NewShellDetector(cfg),
		NewVelocityDetector(cfg),
	}
}
