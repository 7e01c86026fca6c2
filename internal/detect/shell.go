package detect

import (
	"context"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

// ShellDetector flags low-activity pass-through accounts: accounts that both
// receive and send, with a total degree of at most ShellMaxDegree.
type ShellDetector struct {
	cfg Config
}

// NewShellDetector constructs a ShellDetector.
func NewShellDetector(cfg Config) *ShellDetector {
	return &ShellDetector{cfg: cfg.normalized()}
}

func (d *ShellDetector) Name() string { return "shell" }

func (d *ShellDetector) Detect(ctx context.Context, g *txgraph.Graph) ([]domain.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var findings []domain.Finding
	for _, acc := range g.Accounts() {
		if acc.InDegree > 0 && acc.OutDegree > 0 && acc.TotalDegree() <= d.cfg.ShellMaxDegree {
			findings = append(findings, domain.NewFinding(acc.ID, domain.PatternShell, nil))
		}
	}
	return findings, nil
}
