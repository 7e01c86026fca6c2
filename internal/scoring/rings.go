package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanshika/muletrace/internal/domain"
)

// ExtractRings merges the groups carried by cycle and smurfing findings into
// fraud rings. Every group member takes part, including counterparties with
// no finding of their own. Groups sharing an account are merged; components
// of at least two members become rings. RingID is set on every ring member
// present in accounts.
//
// Risk is the rounded mean score of the ring's flagged members. Unflagged
// counterparties carry no score and do not dilute it.
func ExtractRings(findings []domain.Finding, accounts []domain.SuspiciousAccount) []domain.FraudRing {
	var ids []string
	arena := make(map[string]int)
	intern := func(id string) int {
		idx, ok := arena[id]
		if !ok {
			idx = len(ids)
			arena[id] = idx
			ids = append(ids, id)
		}
		return idx
	}

	var groups [][]int
	for _, f := range findings {
		if !f.Label.FormsGroups() || len(f.Group) == 0 {
			continue
		}
		group := make([]int, len(f.Group))
		for i, member := range f.Group {
			group[i] = intern(member)
		}
		groups = append(groups, group)
	}

	set := newDisjointSet(len(ids))
	for _, group := range groups {
		for _, idx := range group[1:] {
			set.union(group[0], idx)
		}
	}

	components := make(map[int][]int)
	for i := range ids {
		root := set.find(i)
		components[root] = append(components[root], i)
	}

	var rings [][]int
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(a, b int) bool { return ids[members[a]] < ids[members[b]] })
		rings = append(rings, members)
	}
	sort.Slice(rings, func(a, b int) bool { return ids[rings[a][0]] < ids[rings[b][0]] })

	flagged := make(map[string]int, len(accounts))
	for i, acc := range accounts {
		flagged[acc.AccountID] = i
	}

	labelCounts := make(map[string]map[domain.PatternLabel]int)
	for _, f := range findings {
		if !f.Label.FormsGroups() {
			continue
		}
		if labelCounts[f.Account] == nil {
			labelCounts[f.Account] = make(map[domain.PatternLabel]int)
		}
		labelCounts[f.Account][f.Label]++
	}

	out := make([]domain.FraudRing, 0, len(rings))
	for n, members := range rings {
		ringID := fmt.Sprintf("RING_%03d", n+1)
		counts := make(map[domain.PatternLabel]int)
		memberIDs := make([]string, len(members))
		total, scored := 0, 0
		for i, idx := range members {
			id := ids[idx]
			memberIDs[i] = id
			for label, c := range labelCounts[id] {
				counts[label] += c
			}
			if pos, ok := flagged[id]; ok {
				total += accounts[pos].SuspicionScore
				scored++
				rid := ringID
				accounts[pos].RingID = &rid
			}
		}
		risk := 0
		if scored > 0 {
			risk = int(math.Round(float64(total) / float64(scored)))
		}
		out = append(out, domain.FraudRing{
			RingID:         ringID,
			PatternType:    dominantPattern(counts),
			MemberAccounts: memberIDs,
			RiskScore:      min(risk, domain.MaxScore),
		})
	}
	return out
}

func dominantPattern(counts map[domain.PatternLabel]int) domain.PatternLabel {
	var best domain.PatternLabel
	bestCount := -1
	for _, label := range domain.PatternOrder {
		if c, ok := counts[label]; ok && c > bestCount {
			best, bestCount = label, c
		}
	}
	return best
}

// disjointSet is a union-find over dense indices with path halving and
// union by size.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
		ds.size[i] = 1
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	if ds.size[ra] < ds.size[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	ds.size[ra] += ds.size[rb]
}
