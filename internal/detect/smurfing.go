package detect

import (
	"context"
	"sort"
	"time"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

// SmurfingDetector flags fan-in and fan-out hubs: accounts that receive from,
// or send to, at least FanThreshold distinct counterparties within Window.
type SmurfingDetector struct {
	cfg Config
}

// NewSmurfingDetector constructs a SmurfingDetector.
func NewSmurfingDetector(cfg Config) *SmurfingDetector {
	return &SmurfingDetector{cfg: cfg.normalized()}
}

func (d *SmurfingDetector) Name() string { return "smurfing" }

// Detect emits at most one fan_in and one fan_out finding per account. The
// finding's group is the hub plus every counterparty seen in any qualifying
// window.
func (d *SmurfingDetector) Detect(ctx context.Context, g *txgraph.Graph) ([]domain.Finding, error) {
	var findings []domain.Finding
	for i, acc := range g.Accounts() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if acc.DistinctSenders >= d.cfg.FanThreshold {
			if cluster := d.cluster(acc.ID, g.Incoming(i)); cluster != nil {
				findings = append(findings, domain.NewFinding(acc.ID, domain.PatternFanIn, withHub(acc.ID, cluster)))
			}
		}
		if acc.DistinctReceivers >= d.cfg.FanThreshold {
			if cluster := d.cluster(acc.ID, g.Outgoing(i)); cluster != nil {
				findings = append(findings, domain.NewFinding(acc.ID, domain.PatternFanOut, withHub(acc.ID, cluster)))
			}
		}
	}
	return findings, nil
}

// cluster returns the union of counterparties over every window holding at
// least FanThreshold distinct counterparties, or nil when no window qualifies.
func (d *SmurfingDetector) cluster(hub string, records []domain.TransactionRecord) map[string]struct{} {
	counts := make(map[string]int)
	var members map[string]struct{}

	slideWindow(len(records),
		func(i int) time.Time { return records[i].Timestamp },
		d.cfg.Window,
		func(i int) { counts[records[i].Counterparty(hub)]++ },
		func(i int) {
			p := records[i].Counterparty(hub)
			if counts[p] <= 1 {
				delete(counts, p)
			} else {
				counts[p]--
			}
		},
		func(_, _ int) {
			if len(counts) < d.cfg.FanThreshold {
				return
			}
			if members == nil {
				members = make(map[string]struct{}, len(counts))
			}
			for p := range counts {
				members[p] = struct{}{}
			}
		},
	)
	return members
}

func withHub(hub string, cluster map[string]struct{}) []string {
	group := make([]string, 0, len(cluster)+1)
	group = append(group, hub)
	for id := range cluster {
		group = append(group, id)
	}
	sort.Strings(group)
	return group
}
