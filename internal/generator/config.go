package generator

import "time"

// Config drives the synthetic batch generator.
type Config struct {
	NumAccounts     int
	NumTransactions int
	// Planted mule structures.
	Cycles      int
	FanIns      int
	FanOuts     int
	ShellChains int
	// Start anchors the batch; Span is how far background traffic spreads.
	Start time.Time
	Span  time.Duration
	Seed  int64
}

// DefaultConfig returns a mid-sized batch with a few of each pattern.
func DefaultConfig() Config {
	return Config{
		NumAccounts:     2000,
		NumTransactions: 8000,
		Cycles:          3,
		FanIns:          2,
		FanOuts:         2,
		ShellChains:     2,
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Span:            90 * 24 * time.Hour,
		Seed:            42,
	}
}
