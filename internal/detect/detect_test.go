package detect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// batch accumulates transfers with generated ids.
type batch struct {
	records []domain.TransactionRecord
}

func (b *batch) add(from, to string, offset time.Duration) *batch {
	b.records = append(b.records, domain.TransactionRecord{
		ID:        fmt.Sprintf("T%04d", len(b.records)+1),
		Sender:    from,
		Receiver:  to,
		Amount:    decimal.NewFromInt(100),
		Timestamp: t0.Add(offset),
	})
	return b
}

// chain adds ids[0]->ids[1]->...->ids[n-1], one hour apart.
func (b *batch) chain(ids ...string) *batch {
	for i := 0; i+1 < len(ids); i++ {
		b.add(ids[i], ids[i+1], time.Duration(len(b.records))*time.Hour)
	}
	return b
}

func (b *batch) graph(t *testing.T) *txgraph.Graph {
	t.Helper()
	g, err := txgraph.Build(b.records)
	require.NoError(t, err)
	return g
}

func labelsByAccount(findings []domain.Finding) map[string][]domain.PatternLabel {
	out := make(map[string][]domain.PatternLabel)
	for _, f := range findings {
		out[f.Account] = append(out[f.Account], f.Label)
	}
	return out
}

func runDetector(t *testing.T, d Detector, g *txgraph.Graph) []domain.Finding {
	t.Helper()
	findings, err := d.Detect(context.Background(), g)
	require.NoError(t, err)
	return findings
}
