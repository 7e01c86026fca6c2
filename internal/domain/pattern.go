package domain

// PatternLabel names a suspicious behaviour detected for an account.
type PatternLabel string

const (
	PatternCycle        PatternLabel = "cycle"
	PatternFanIn        PatternLabel = "fan_in"
	PatternFanOut       PatternLabel = "fan_out"
	PatternShell        PatternLabel = "shell"
	PatternHighVelocity PatternLabel = "high_velocity"
)

// MaxScore caps account and ring scores.
const MaxScore = 100

var patternContributions = map[PatternLabel]int{
	PatternCycle:        40,
	PatternFanIn:        25,
	PatternFanOut:       25,
	PatternShell:        20,
	PatternHighVelocity: 10,
}

// PatternOrder is the canonical ordering used wherever labels are listed.
var PatternOrder = []PatternLabel{
	PatternCycle,
	PatternFanIn,
	PatternFanOut,
	PatternShell,
	PatternHighVelocity,
}

// Contribution returns the fixed score a label adds to an account.
func (p PatternLabel) Contribution() int {
	return patternContributions[p]
}

// Rank returns the label's position in PatternOrder, or len(PatternOrder) if unknown.
func (p PatternLabel) Rank() int {
	for i, label := range PatternOrder {
		if label == p {
			return i
		}
	}
	return len(PatternOrder)
}

// FormsGroups reports whether findings with this label carry ring candidates.
func (p PatternLabel) FormsGroups() bool {
	switch p {
	case PatternCycle, PatternFanIn, PatternFanOut:
		return true
	default:
		return false
	}
}
