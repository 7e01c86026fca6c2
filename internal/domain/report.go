package domain

import "time"

// SuspiciousAccount is an account with at least one finding.
type SuspiciousAccount struct {
	AccountID        string         `json:"account_id"`
	SuspicionScore   int            `json:"suspicion_score"`
	DetectedPatterns []PatternLabel `json:"detected_patterns"`
	RingID           *string        `json:"ring_id"`
}

// FraudRing groups flagged accounts implicated in the same cycle or smurfing cluster.
type FraudRing struct {
	RingID         string       `json:"ring_id"`
	PatternType    PatternLabel `json:"pattern_type"`
	MemberAccounts []string     `json:"member_accounts"`
	RiskScore      int          `json:"risk_score"`
}

// Summary carries batch-level statistics.
type Summary struct {
	AnalysisID                string    `json:"analysis_id"`
	GeneratedAt               time.Time `json:"generated_at"`
	TotalAccountsAnalyzed     int       `json:"total_accounts_analyzed"`
	TotalTransactions         int       `json:"total_transactions"`
	SkippedRows               int       `json:"skipped_rows"`
	SuspiciousAccountsFlagged int       `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int       `json:"fraud_rings_detected"`
	ProcessingTimeSeconds     float64   `json:"processing_time_seconds"`
}

// VisNode is an account in the visualization payload.
type VisNode struct {
	ID      string  `json:"id"`
	Flagged bool    `json:"flagged"`
	Score   int     `json:"score"`
	RingID  *string `json:"ring_id,omitempty"`
}

// VisEdge aggregates all transactions between an ordered account pair.
type VisEdge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Weight  int    `json:"weight"`
	Amount  string `json:"amount"`
	InCycle bool   `json:"in_cycle"`
}

// GraphVisualization is consumed by the force-directed renderer.
type GraphVisualization struct {
	Nodes []VisNode `json:"nodes"`
	Edges []VisEdge `json:"edges"`
}

// Report is the single output value of an analysis run.
type Report struct {
	Summary            Summary             `json:"summary"`
	SuspiciousAccounts []SuspiciousAccount `json:"suspicious_accounts"`
	FraudRings         []FraudRing         `json:"fraud_rings"`
	GraphVisualization GraphVisualization  `json:"graph_visualization"`
}
