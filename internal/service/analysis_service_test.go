package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/muletrace/internal/detect"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/logging"
	"github.com/vanshika/muletrace/internal/txgraph"
)

func row(id, from, to, amount, ts string) ingest.RawRow {
	return ingest.RawRow{TransactionID: id, SenderID: from, ReceiverID: to, Amount: amount, Timestamp: ts}
}

// muleBatch holds a triangle, a fan-in hub fed by ten senders and one
// malformed row.
func muleBatch() []ingest.RawRow {
	rows := []ingest.RawRow{
		row("C1", "ACC_A", "ACC_B", "1000", "2024-01-01T00:00:00Z"),
		row("C2", "ACC_B", "ACC_C", "950", "2024-01-01T02:00:00Z"),
		row("C3", "ACC_C", "ACC_A", "900", "2024-01-01T04:00:00Z"),
		row("BAD", "ACC_A", "ACC_A", "5", "2024-01-01T05:00:00Z"),
	}
	for i := 0; i < 10; i++ {
		rows = append(rows, row(fmt.Sprintf("F%02d", i), fmt.Sprintf("SMURF_%02d", i), "HUB", "9500", fmt.Sprintf("2024-01-02T%02d:00:00Z", i)))
	}
	return rows
}

func newTestService(opts Options) *AnalysisService {
	svc := NewAnalysisService(logging.Discard(), opts)
	svc.idFn = func() string { return "analysis-1" }
	tick := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time {
		tick = tick.Add(1234 * time.Millisecond)
		return tick
	})
	return svc
}

func TestAnalyze_EndToEnd(t *testing.T) {
	report, err := newTestService(Options{}).Analyze(context.Background(), muleBatch())
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, "analysis-1", s.AnalysisID)
	assert.Equal(t, 14, s.TotalAccountsAnalyzed)
	assert.Equal(t, 13, s.TotalTransactions)
	assert.Equal(t, 1, s.SkippedRows)
	assert.Equal(t, 1.23, s.ProcessingTimeSeconds)
	assert.Equal(t, len(report.SuspiciousAccounts), s.SuspiciousAccountsFlagged)
	assert.Equal(t, 2, s.FraudRingsDetected)

	top := report.SuspiciousAccounts[0]
	assert.Equal(t, "ACC_A", top.AccountID)
	assert.Equal(t, 60, top.SuspicionScore, "cycle 40 + shell 20")
	assert.Equal(t, []domain.PatternLabel{domain.PatternCycle, domain.PatternShell}, top.DetectedPatterns)

	var hub domain.SuspiciousAccount
	for _, acc := range report.SuspiciousAccounts {
		if acc.AccountID == "HUB" {
			hub = acc
		}
	}
	assert.Equal(t, []domain.PatternLabel{domain.PatternFanIn, domain.PatternHighVelocity}, hub.DetectedPatterns)
	require.NotNil(t, hub.RingID)
	assert.Equal(t, "RING_002", *hub.RingID)

	require.Len(t, report.FraudRings, 2)
	ring := report.FraudRings[0]
	assert.Equal(t, "RING_001", ring.RingID)
	assert.Equal(t, domain.PatternCycle, ring.PatternType)
	assert.Equal(t, []string{"ACC_A", "ACC_B", "ACC_C"}, ring.MemberAccounts)
	assert.Equal(t, 60, ring.RiskScore)

	smurfRing := report.FraudRings[1]
	assert.Equal(t, domain.PatternFanIn, smurfRing.PatternType)
	require.Len(t, smurfRing.MemberAccounts, 11, "hub plus its ten senders")
	assert.Equal(t, "HUB", smurfRing.MemberAccounts[0])
	assert.Equal(t, "SMURF_09", smurfRing.MemberAccounts[10])
	assert.Equal(t, 35, smurfRing.RiskScore, "only the hub carries a score")
}

func TestAnalyze_SmurfingOnlyBatchFormsOneRing(t *testing.T) {
	var rows []ingest.RawRow
	for i := 0; i < 10; i++ {
		rows = append(rows, row(fmt.Sprintf("F%02d", i), fmt.Sprintf("SMURF_%02d", i), "HUB", "9500", fmt.Sprintf("2024-01-02T%02d:00:00Z", i)))
	}

	report, err := newTestService(Options{}).Analyze(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, report.FraudRings, 1)
	ring := report.FraudRings[0]
	assert.Equal(t, "RING_001", ring.RingID)
	assert.Equal(t, domain.PatternFanIn, ring.PatternType)
	assert.Len(t, ring.MemberAccounts, 11)

	require.Len(t, report.SuspiciousAccounts, 1)
	require.NotNil(t, report.SuspiciousAccounts[0].RingID)
	assert.Equal(t, "RING_001", *report.SuspiciousAccounts[0].RingID)

	for _, n := range report.GraphVisualization.Nodes {
		require.NotNil(t, n.RingID, n.ID)
		assert.Equal(t, "RING_001", *n.RingID)
		assert.Equal(t, n.ID == "HUB", n.Flagged, n.ID)
	}
}

func TestAnalyze_Visualization(t *testing.T) {
	report, err := newTestService(Options{}).Analyze(context.Background(), muleBatch())
	require.NoError(t, err)

	vis := report.GraphVisualization
	require.Len(t, vis.Nodes, 14)
	assert.Equal(t, "ACC_A", vis.Nodes[0].ID)
	require.NotNil(t, vis.Nodes[0].RingID)
	assert.Equal(t, "RING_001", *vis.Nodes[0].RingID)
	assert.True(t, vis.Nodes[0].Flagged)

	for _, n := range vis.Nodes {
		if n.ID == "SMURF_00" {
			assert.False(t, n.Flagged)
			assert.Zero(t, n.Score)
			require.NotNil(t, n.RingID, "ring membership is tagged independently of flagging")
			assert.Equal(t, "RING_002", *n.RingID)
		}
	}

	require.Len(t, vis.Edges, 13)
	for _, e := range vis.Edges {
		onCycle := e.From == "ACC_A" && e.To == "ACC_B" || e.From == "ACC_B" && e.To == "ACC_C" || e.From == "ACC_C" && e.To == "ACC_A"
		assert.Equal(t, onCycle, e.InCycle, "%s>%s", e.From, e.To)
		assert.Equal(t, 1, e.Weight)
	}
	assert.Equal(t, "1000", vis.Edges[0].Amount)
}

func TestAnalyze_ReportJSONKeys(t *testing.T) {
	report, err := newTestService(Options{}).Analyze(context.Background(), muleBatch())
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &top))
	assert.Len(t, top, 4)
	for _, key := range []string{"summary", "suspicious_accounts", "fraud_rings", "graph_visualization"} {
		assert.Contains(t, top, key)
	}
	assert.Contains(t, string(top["suspicious_accounts"]), `"ring_id":"RING_002"`)

	// A burst without group metadata is flagged but never joins a ring.
	var burst []ingest.RawRow
	for i := 0; i < 5; i++ {
		burst = append(burst, row(fmt.Sprintf("V%d", i), "FAST", fmt.Sprintf("DEST_%d", i), "100", fmt.Sprintf("2024-01-01T%02d:00:00Z", i)))
	}
	report, err = newTestService(Options{}).Analyze(context.Background(), burst)
	require.NoError(t, err)
	raw, err = json.Marshal(report.SuspiciousAccounts)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ring_id":null`)
}

func TestAnalyze_Deterministic(t *testing.T) {
	rows := muleBatch()
	first, err := newTestService(Options{}).Analyze(context.Background(), rows)
	require.NoError(t, err)
	second, err := newTestService(Options{}).Analyze(context.Background(), rows)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.True(t, bytes.Equal(a, b))
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	svc := newTestService(Options{})

	_, err := svc.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyGraph)

	_, err = svc.Analyze(context.Background(), []ingest.RawRow{row("T", "A", "A", "1", "2024-01-01")})
	assert.ErrorIs(t, err, ErrEmptyGraph)
	assert.Contains(t, err.Error(), "1 rows skipped")
}

func TestAnalyze_NoFindings(t *testing.T) {
	report, err := newTestService(Options{}).Analyze(context.Background(), []ingest.RawRow{
		row("T1", "A", "B", "10", "2024-01-01"),
		row("T2", "C", "D", "10", "2024-01-01"),
	})
	require.NoError(t, err)
	assert.NotNil(t, report.SuspiciousAccounts)
	assert.Empty(t, report.SuspiciousAccounts)
	assert.NotNil(t, report.FraudRings)
	assert.Zero(t, report.Summary.SuspiciousAccountsFlagged)
}

func TestAnalyze_SuppressLegitHubs(t *testing.T) {
	var rows []ingest.RawRow
	for i := 0; i < 25; i++ {
		rows = append(rows, row(fmt.Sprintf("P%02d", i), "PAYROLL", fmt.Sprintf("EMP_%02d", i), "3000", "2024-01-31T09:00:00Z"))
	}

	plain, err := newTestService(Options{}).Analyze(context.Background(), rows)
	require.NoError(t, err)
	require.NotEmpty(t, plain.SuspiciousAccounts)
	assert.Equal(t, "PAYROLL", plain.SuspiciousAccounts[0].AccountID)

	filtered, err := newTestService(Options{SuppressLegitHubs: true}).Analyze(context.Background(), rows)
	require.NoError(t, err)
	assert.Empty(t, filtered.SuspiciousAccounts)
}

type stubDetector struct {
	name     string
	findings []domain.Finding
	err      error
	panics   bool
}

func (s stubDetector) Name() string { return s.name }

func (s stubDetector) Detect(ctx context.Context, _ *txgraph.Graph) ([]domain.Finding, error) {
	if s.panics {
		panic("index out of range")
	}
	return s.findings, s.err
}

func TestAnalyze_DetectorFailures(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name     string
		detector stubDetector
		contains string
	}{
		{"error", stubDetector{name: "flaky", err: boom}, "boom"},
		{"panic", stubDetector{name: "buggy", panics: true}, "panic: index out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(Options{Detectors: []detect.Detector{
				stubDetector{name: "ok", findings: []domain.Finding{domain.NewFinding("ACC_A", domain.PatternShell, nil)}},
				tc.detector,
			}})

			_, err := svc.Analyze(context.Background(), muleBatch())

			var detErr *DetectorError
			require.ErrorAs(t, err, &detErr)
			assert.Equal(t, tc.detector.name, detErr.Detector)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestAnalyze_CustomDetectorsConcatenateInOrder(t *testing.T) {
	svc := newTestService(Options{Detectors: []detect.Detector{
		stubDetector{name: "first", findings: []domain.Finding{domain.NewFinding("ACC_B", domain.PatternShell, nil)}},
		stubDetector{name: "second", findings: []domain.Finding{domain.NewFinding("ACC_A", domain.PatternHighVelocity, nil)}},
	}})

	report, err := svc.Analyze(context.Background(), muleBatch())
	require.NoError(t, err)
	require.Len(t, report.SuspiciousAccounts, 2)
	assert.Equal(t, "ACC_B", report.SuspiciousAccounts[0].AccountID)
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(Options{}).Analyze(ctx, muleBatch())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeBatch_UsesPreNormalizedRecords(t *testing.T) {
	batch := ingest.NewNormalizer(nil).Normalize(muleBatch())

	report, err := newTestService(Options{}).AnalyzeBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.SkippedRows)
	assert.Equal(t, 13, report.Summary.TotalTransactions)
}

func TestRoundSeconds(t *testing.T) {
	assert.Equal(t, 0.0, roundSeconds(4*time.Millisecond))
	assert.Equal(t, 0.01, roundSeconds(5*time.Millisecond))
	assert.Equal(t, 2.5, roundSeconds(2500*time.Millisecond))
}
