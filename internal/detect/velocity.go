package detect

import (
	"context"
	"time"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

// VelocityDetector flags accounts with at least VelocityThreshold
// transactions, incoming and outgoing combined, inside one Window.
type VelocityDetector struct {
	cfg Config
}

// NewVelocityDetector constructs a VelocityDetector.
func NewVelocityDetector(cfg Config) *VelocityDetector {
	return &VelocityDetector{cfg: cfg.normalized()}
}

func (d *VelocityDetector) Name() string { return "velocity" }

func (d *VelocityDetector) Detect(ctx context.Context, g *txgraph.Graph) ([]domain.Finding, error) {
	var findings []domain.Finding
	for _, acc := range g.Accounts() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(acc.Timestamps) < d.cfg.VelocityThreshold {
			continue
		}
		if d.burst(acc.Timestamps) {
			findings = append(findings, domain.NewFinding(acc.ID, domain.PatternHighVelocity, nil))
		}
	}
	return findings, nil
}

func (d *VelocityDetector) burst(times []time.Time) bool {
	found := false
	slideWindow(len(times),
		func(i int) time.Time { return times[i] },
		d.cfg.Window,
		func(int) {},
		func(int) {},
		func(l, r int) {
			if r-l+1 >= d.cfg.VelocityThreshold {
				found = true
			}
		},
	)
	return found
}
