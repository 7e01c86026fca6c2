package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

func cycleFindings(members ...string) []domain.Finding {
	findings := make([]domain.Finding, 0, len(members))
	for _, m := range members {
		findings = append(findings, domain.NewFinding(m, domain.PatternCycle, members))
	}
	return findings
}

func scoreOf(t *testing.T, accounts []domain.SuspiciousAccount, id string) domain.SuspiciousAccount {
	t.Helper()
	for _, acc := range accounts {
		if acc.AccountID == id {
			return acc
		}
	}
	t.Fatalf("account %s not flagged", id)
	return domain.SuspiciousAccount{}
}

func TestAggregate_OncePerLabelAndCap(t *testing.T) {
	findings := append(cycleFindings("A", "B", "C"), cycleFindings("A", "D", "E")...)
	findings = append(findings,
		domain.NewFinding("A", domain.PatternFanIn, []string{"A", "X"}),
		domain.NewFinding("A", domain.PatternFanOut, []string{"A", "Y"}),
		domain.NewFinding("A", domain.PatternShell, nil),
		domain.NewFinding("B", domain.PatternHighVelocity, nil),
		domain.NewFinding("B", domain.PatternShell, nil),
	)

	accounts := Aggregate(findings)

	a := scoreOf(t, accounts, "A")
	assert.Equal(t, 100, a.SuspicionScore, "40+25+25+20 is capped")
	assert.Equal(t, []domain.PatternLabel{domain.PatternCycle, domain.PatternFanIn, domain.PatternFanOut, domain.PatternShell}, a.DetectedPatterns)

	b := scoreOf(t, accounts, "B")
	assert.Equal(t, 70, b.SuspicionScore)
	assert.Equal(t, []domain.PatternLabel{domain.PatternCycle, domain.PatternShell, domain.PatternHighVelocity}, b.DetectedPatterns)

	c := scoreOf(t, accounts, "C")
	assert.Equal(t, 40, c.SuspicionScore, "a second cycle through A does not raise C")
}

func TestAggregate_Ordering(t *testing.T) {
	findings := []domain.Finding{
		domain.NewFinding("Z", domain.PatternShell, nil),
		domain.NewFinding("M", domain.PatternHighVelocity, nil),
		domain.NewFinding("B", domain.PatternShell, nil),
		domain.NewFinding("Q", domain.PatternCycle, nil),
	}

	accounts := Aggregate(findings)

	ids := make([]string, len(accounts))
	for i, acc := range accounts {
		ids[i] = acc.AccountID
		assert.Nil(t, acc.RingID)
	}
	assert.Equal(t, []string{"Q", "B", "Z", "M"}, ids)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestExtractRings_SingleCycle(t *testing.T) {
	findings := cycleFindings("A", "B", "C")
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)

	require.Len(t, rings, 1)
	ring := rings[0]
	assert.Equal(t, "RING_001", ring.RingID)
	assert.Equal(t, domain.PatternCycle, ring.PatternType)
	assert.Equal(t, []string{"A", "B", "C"}, ring.MemberAccounts)
	assert.Equal(t, 40, ring.RiskScore)
	for _, acc := range accounts {
		require.NotNil(t, acc.RingID)
		assert.Equal(t, "RING_001", *acc.RingID)
	}
}

func TestExtractRings_OverlappingCyclesMergeToUnion(t *testing.T) {
	findings := append(cycleFindings("A", "B", "C"), cycleFindings("C", "D", "E")...)
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)

	require.Len(t, rings, 1)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, rings[0].MemberAccounts)
}

func TestExtractRings_SmurfingClusterIncludesUnflaggedCounterparties(t *testing.T) {
	spokes := []string{"HUB"}
	for i := 0; i < 10; i++ {
		spokes = append(spokes, fmt.Sprintf("S%02d", i))
	}
	findings := []domain.Finding{
		domain.NewFinding("HUB", domain.PatternFanIn, spokes),
		domain.NewFinding("S03", domain.PatternShell, nil),
		domain.NewFinding("LONE", domain.PatternFanOut, []string{"LONE", "R1", "R2"}),
		domain.NewFinding("SOLO", domain.PatternHighVelocity, nil),
	}
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)

	require.Len(t, rings, 2)
	assert.Equal(t, "RING_001", rings[0].RingID)
	assert.Equal(t, spokes, rings[0].MemberAccounts)
	assert.Equal(t, domain.PatternFanIn, rings[0].PatternType)
	assert.Equal(t, 23, rings[0].RiskScore, "mean of the flagged members 25 and 20 rounds up")

	assert.Equal(t, []string{"LONE", "R1", "R2"}, rings[1].MemberAccounts)
	assert.Equal(t, 25, rings[1].RiskScore)

	assert.Equal(t, "RING_001", *scoreOf(t, accounts, "S03").RingID)
	assert.Equal(t, "RING_002", *scoreOf(t, accounts, "LONE").RingID)
	assert.Nil(t, scoreOf(t, accounts, "SOLO").RingID, "findings without a group never form rings")
}

func TestExtractRings_SingleMemberGroupIsNotARing(t *testing.T) {
	findings := []domain.Finding{domain.NewFinding("HUB", domain.PatternFanIn, []string{"HUB"})}
	accounts := Aggregate(findings)

	assert.Empty(t, ExtractRings(findings, accounts))
	assert.Nil(t, accounts[0].RingID)
}

func TestExtractRings_IdsFollowSmallestMember(t *testing.T) {
	findings := append(cycleFindings("X", "Y", "Z"), cycleFindings("B", "C", "D")...)
	findings = append(findings, cycleFindings("M", "N", "O")...)
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)

	require.Len(t, rings, 3)
	assert.Equal(t, "RING_001", rings[0].RingID)
	assert.Equal(t, "B", rings[0].MemberAccounts[0])
	assert.Equal(t, "M", rings[1].MemberAccounts[0])
	assert.Equal(t, "RING_003", rings[2].RingID)
	assert.Equal(t, "RING_003", *scoreOf(t, accounts, "Y").RingID)
}

func TestExtractRings_DominantPatternTieBreak(t *testing.T) {
	// One cycle finding and one fan_out finding per side: the cycle label
	// wins the tie by canonical order.
	findings := []domain.Finding{
		domain.NewFinding("A", domain.PatternFanOut, []string{"A", "B"}),
		domain.NewFinding("B", domain.PatternCycle, []string{"B", "A", "Q"}),
	}
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)
	require.Len(t, rings, 1)
	assert.Equal(t, domain.PatternCycle, rings[0].PatternType)
}

func TestExtractRings_RiskCapped(t *testing.T) {
	findings := cycleFindings("A", "B", "C")
	for _, id := range []string{"A", "B", "C"} {
		findings = append(findings,
			domain.NewFinding(id, domain.PatternFanIn, nil),
			domain.NewFinding(id, domain.PatternFanOut, nil),
			domain.NewFinding(id, domain.PatternShell, nil),
		)
	}
	accounts := Aggregate(findings)

	rings := ExtractRings(findings, accounts)
	require.Len(t, rings, 1)
	assert.Equal(t, 100, rings[0].RiskScore)
}

func TestSuppressLegitHubs(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var records []domain.TransactionRecord
	for i := 0; i < 25; i++ {
		records = append(records, domain.TransactionRecord{
			ID:        fmt.Sprintf("T%02d", i),
			Sender:    fmt.Sprintf("C%02d", i),
			Receiver:  "SHOP",
			Amount:    decimal.NewFromInt(10),
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
		})
	}
	records = append(records, domain.TransactionRecord{
		ID: "OUT", Sender: "SHOP", Receiver: "BANK", Amount: decimal.NewFromInt(200), Timestamp: t0.Add(time.Hour),
	})
	g, err := txgraph.Build(records)
	require.NoError(t, err)

	findings := []domain.Finding{
		domain.NewFinding("SHOP", domain.PatternFanIn, []string{"SHOP", "C01"}),
		domain.NewFinding("SHOP", domain.PatternHighVelocity, nil),
		domain.NewFinding("SHOP", domain.PatternCycle, []string{"SHOP", "C01", "C02"}),
		domain.NewFinding("C01", domain.PatternHighVelocity, nil),
	}

	kept := SuppressLegitHubs(g, findings)

	labels := make([]string, 0, len(kept))
	for _, f := range kept {
		labels = append(labels, f.Account+":"+string(f.Label))
	}
	assert.Equal(t, []string{"SHOP:cycle", "C01:high_velocity"}, labels)
	assert.Len(t, findings, 4, "input slice is not modified")
	assert.Equal(t, domain.PatternFanIn, findings[0].Label)
}
