package txgraph

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/vanshika/muletrace/internal/domain"
)

// Builder accumulates records and freezes them into a Graph. Builders are not
// safe for concurrent use; the Graph they produce is.
type Builder struct {
	records []domain.TransactionRecord
}

// NewBuilder returns a Builder with room for capacity records.
func NewBuilder(capacity int) *Builder {
	return &Builder{records: make([]domain.TransactionRecord, 0, capacity)}
}

// Add appends records to the pending batch.
func (b *Builder) Add(records ...domain.TransactionRecord) {
	b.records = append(b.records, records...)
}

// Build constructs the graph snapshot. The result does not depend on the
// order records were added in.
func (b *Builder) Build() (*Graph, error) {
	if len(b.records) == 0 {
		return nil, ErrEmptyGraph
	}

	ids := make([]string, 0, len(b.records))
	seen := make(map[string]struct{}, len(b.records))
	for _, rec := range b.records {
		for _, id := range [2]string{rec.Sender, rec.Receiver} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	n := len(ids)
	g := &Graph{
		accounts:     make([]Account, n),
		index:        make(map[string]int, n),
		edgeAt:       make(map[[2]int]int),
		successors:   make([][]int, n),
		predecessors: make([][]int, n),
		incoming:     make([][]domain.TransactionRecord, n),
		outgoing:     make([][]domain.TransactionRecord, n),
		transactions: len(b.records),
	}
	for i, id := range ids {
		g.index[id] = i
		g.accounts[i] = Account{ID: id, Index: i}
	}

	byPair := make(map[[2]int][]domain.TransactionRecord)
	for _, rec := range b.records {
		from, to := g.index[rec.Sender], g.index[rec.Receiver]
		key := [2]int{from, to}
		byPair[key] = append(byPair[key], rec)
		g.outgoing[from] = append(g.outgoing[from], rec)
		g.incoming[to] = append(g.incoming[to], rec)
	}

	pairs := make([][2]int, 0, len(byPair))
	for key := range byPair {
		pairs = append(pairs, key)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	g.edges = make([]Edge, 0, len(pairs))
	for _, key := range pairs {
		recs := byPair[key]
		sortRecords(recs)
		g.edgeAt[key] = len(g.edges)
		g.edges = append(g.edges, Edge{
			From:    ids[key[0]],
			To:      ids[key[1]],
			Records: recs,
		})
		g.successors[key[0]] = append(g.successors[key[0]], key[1])
		g.predecessors[key[1]] = append(g.predecessors[key[1]], key[0])
	}

	for i := range g.accounts {
		sortRecords(g.incoming[i])
		sortRecords(g.outgoing[i])
		sort.Ints(g.predecessors[i])

		acc := &g.accounts[i]
		acc.InDegree = len(g.incoming[i])
		acc.OutDegree = len(g.outgoing[i])
		acc.DistinctSenders = len(g.predecessors[i])
		acc.DistinctReceivers = len(g.successors[i])
		acc.Timestamps = mergeTimestamps(g.incoming[i], g.outgoing[i])
	}

	return g, nil
}

// Build is a shorthand for folding records through a fresh Builder.
func Build(records []domain.TransactionRecord) (*Graph, error) {
	b := NewBuilder(len(records))
	b.Add(records...)
	return b.Build()
}

func sortRecords(recs []domain.TransactionRecord) {
	slices.SortFunc(recs, func(a, b domain.TransactionRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func mergeTimestamps(a, b []domain.TransactionRecord) []time.Time {
	out := make([]time.Time, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !b[j].Timestamp.Before(a[i].Timestamp) {
			out = append(out, a[i].Timestamp)
			i++
		} else {
			out = append(out, b[j].Timestamp)
			j++
		}
	}
	for ; i < len(a); i++ {
		out = append(out, a[i].Timestamp)
	}
	for ; j < len(b); j++ {
		out = append(out, b[j].Timestamp)
	}
	return out
}
