// Package scoring turns detector findings into scored accounts and rings.
package scoring

import (
	"sort"

	"github.com/vanshika/muletrace/internal/domain"
)

// Aggregate builds one SuspiciousAccount per account with findings. Each
// pattern label contributes once regardless of how many findings carry it,
// and the total is capped at domain.MaxScore. The result is ordered by score
// descending, then account id ascending.
func Aggregate(findings []domain.Finding) []domain.SuspiciousAccount {
	labels := make(map[string]map[domain.PatternLabel]struct{})
	for _, f := range findings {
		set, ok := labels[f.Account]
		if !ok {
			set = make(map[domain.PatternLabel]struct{}, len(domain.PatternOrder))
			labels[f.Account] = set
		}
		set[f.Label] = struct{}{}
	}

	accounts := make([]domain.SuspiciousAccount, 0, len(labels))
	for id, set := range labels {
		patterns := make([]domain.PatternLabel, 0, len(set))
		score := 0
		for label := range set {
			patterns = append(patterns, label)
			score += label.Contribution()
		}
		sort.Slice(patterns, func(i, j int) bool {
			return patterns[i].Rank() < patterns[j].Rank()
		})
		accounts = append(accounts, domain.SuspiciousAccount{
			AccountID:        id,
			SuspicionScore:   min(score, domain.MaxScore),
			DetectedPatterns: patterns,
		})
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].SuspicionScore != accounts[j].SuspicionScore {
			return accounts[i].SuspicionScore > accounts[j].SuspicionScore
		}
		return accounts[i].AccountID < accounts[j].AccountID
	})
	return accounts
}
