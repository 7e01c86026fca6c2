package domain

// Finding is a single detector hit for one account.
type Finding struct {
	Account string
	Label   PatternLabel
	Score   int
	// Group lists the accounts implicated together with Account, including it.
	// Empty for patterns that do not define rings.
	Group []string
}

// NewFinding builds a finding carrying the label's fixed contribution.
func NewFinding(account string, label PatternLabel, group []string) Finding {
	return Finding{
		Account: account,
		Label:   label,
		Score:   label.Contribution(),
		Group:   group,
	}
}
