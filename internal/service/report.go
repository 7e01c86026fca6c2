package service

import (
	"math"
	"time"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/txgraph"
)

type reportInput struct {
	analysisID string
	started    time.Time
	finished   time.Time
	graph      *txgraph.Graph
	batch      ingest.Batch
	findings   []domain.Finding
	accounts   []domain.SuspiciousAccount
	rings      []domain.FraudRing
}

func assembleReport(in reportInput) domain.Report {
	if in.accounts == nil {
		in.accounts = []domain.SuspiciousAccount{}
	}
	if in.rings == nil {
		in.rings = []domain.FraudRing{}
	}

	return domain.Report{
		Summary: domain.Summary{
			AnalysisID:                in.analysisID,
			GeneratedAt:               in.finished.UTC(),
			TotalAccountsAnalyzed:     in.graph.Len(),
			TotalTransactions:         in.graph.TransactionCount(),
			SkippedRows:               in.batch.Skipped(),
			SuspiciousAccountsFlagged: len(in.accounts),
			FraudRingsDetected:        len(in.rings),
			ProcessingTimeSeconds:     roundSeconds(in.finished.Sub(in.started)),
		},
		SuspiciousAccounts: in.accounts,
		FraudRings:         in.rings,
		GraphVisualization: buildVisualization(in.graph, in.findings, in.accounts, in.rings),
	}
}

// buildVisualization tags nodes with flagged and ring status separately: an
// unflagged counterparty of a smurfing hub still carries the ring id.
func buildVisualization(g *txgraph.Graph, findings []domain.Finding, accounts []domain.SuspiciousAccount, rings []domain.FraudRing) domain.GraphVisualization {
	flagged := make(map[string]int, len(accounts))
	for _, acc := range accounts {
		flagged[acc.AccountID] = acc.SuspicionScore
	}
	ringOf := make(map[string]string)
	for _, ring := range rings {
		for _, member := range ring.MemberAccounts {
			ringOf[member] = ring.RingID
		}
	}

	nodes := make([]domain.VisNode, 0, g.Len())
	for _, acc := range g.Accounts() {
		node := domain.VisNode{ID: acc.ID}
		if score, ok := flagged[acc.ID]; ok {
			node.Flagged = true
			node.Score = score
		}
		if id, ok := ringOf[acc.ID]; ok {
			node.RingID = &id
		}
		nodes = append(nodes, node)
	}

	onCycle := cycleEdges(findings)
	edges := make([]domain.VisEdge, 0, len(g.Edges()))
	for _, e := range g.Edges() {
		_, inCycle := onCycle[[2]string{e.From, e.To}]
		edges = append(edges, domain.VisEdge{
			From:    e.From,
			To:      e.To,
			Weight:  e.Weight(),
			Amount:  e.Volume().String(),
			InCycle: inCycle,
		})
	}
	return domain.GraphVisualization{Nodes: nodes, Edges: edges}
}

// cycleEdges collects the directed pairs that lie on a detected cycle. Cycle
// groups are ordered along the cycle, closing back to the first member.
func cycleEdges(findings []domain.Finding) map[[2]string]struct{} {
	edges := make(map[[2]string]struct{})
	for _, f := range findings {
		if f.Label != domain.PatternCycle {
			continue
		}
		n := len(f.Group)
		for i := 0; i < n; i++ {
			edges[[2]string{f.Group[i], f.Group[(i+1)%n]}] = struct{}{}
		}
	}
	return edges
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
