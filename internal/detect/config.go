package detect

import "time"

// Config holds the thresholds shared by the detectors.
type Config struct {
	// Window is the width of the rolling window used by smurfing and velocity
	// checks. Both ends are inclusive.
	Window time.Duration
	// FanThreshold is the number of distinct counterparties that makes a hub.
	FanThreshold int
	// VelocityThreshold is the number of transactions inside Window that
	// counts as a burst.
	VelocityThreshold int
	// MinCycleLength and MaxCycleLength bound cycle length in edges.
	MinCycleLength int
	MaxCycleLength int
	// ShellMaxDegree is the largest total degree a pass-through account may have.
	ShellMaxDegree int
	// MaxCycles stops the cycle search after this many cycles. Zero means no limit.
	MaxCycles int
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		Window:            72 * time.Hour,
		FanThreshold:      10,
		VelocityThreshold: 5,
		MinCycleLength:    3,
		MaxCycleLength:    5,
		ShellMaxDegree:    3,
	}
}

// normalized fills zero values from DefaultConfig.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.FanThreshold <= 0 {
		c.FanThreshold = def.FanThreshold
	}
	if c.VelocityThreshold <= 0 {
		c.VelocityThreshold = def.VelocityThreshold
	}
	if c.MinCycleLength <= 0 {
		c.MinCycleLength = def.MinCycleLength
	}
	if c.MaxCycleLength <= 0 {
		c.MaxCycleLength = def.MaxCycleLength
	}
	if c.MaxCycleLength < c.MinCycleLength {
		c.MaxCycleLength = c.MinCycleLength
	}
	if c.ShellMaxDegree <= 0 {
		c.ShellMaxDegree = def.ShellMaxDegree
	}
	if c.MaxCycles < 0 {
		c.MaxCycles = 0
	}
	return c
}
