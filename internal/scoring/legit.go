package scoring

import (
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

const (
	legitMinDegree     = 20
	legitDominantShare = 0.9
)

// SuppressLegitHubs drops fan_in, fan_out and high_velocity findings for
// accounts that look like merchants or payroll senders: more than 20
// transactions, over 90% of them in one direction. Cycle and shell findings
// are kept.
func SuppressLegitHubs(g *txgraph.Graph, findings []domain.Finding) []domain.Finding {
	kept := findings[:0:0]
	for _, f := range findings {
		if suppressible(f.Label) && isLegitHub(g, f.Account) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func suppressible(label domain.PatternLabel) bool {
	switch label {
	case domain.PatternFanIn, domain.PatternFanOut, domain.PatternHighVelocity:
		return true
	default:
		return false
	}
}

func isLegitHub(g *txgraph.Graph, id string) bool {
	i, ok := g.Lookup(id)
	if !ok {
		return false
	}
	acc := g.Account(i)
	total := acc.TotalDegree()
	if total <= legitMinDegree {
		return false
	}
	in := float64(acc.InDegree) / float64(total)
	out := float64(acc.OutDegree) / float64(total)
	return in > legitDominantShare || out > legitDominantShare
}
