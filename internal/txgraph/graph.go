// Package txgraph folds transaction records into an immutable directed graph
// of accounts. Multiple transfers between the same ordered pair share one edge.
package txgraph

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
)

// ErrEmptyGraph is returned when a graph is built from zero records.
var ErrEmptyGraph = errors.New("transaction graph is empty")

// Account is a node of the graph. Degrees count transactions, not edges.
type Account struct {
	ID                string
	Index             int
	InDegree          int
	OutDegree         int
	DistinctSenders   int
	DistinctReceivers int
	// Timestamps holds every incoming and outgoing transaction time, ascending.
	Timestamps []time.Time
}

// TotalDegree is InDegree + OutDegree.
func (a Account) TotalDegree() int {
	return a.InDegree + a.OutDegree
}

// Edge carries all transfers from one account to another, ordered by time.
type Edge struct {
	From    string
	To      string
	Records []domain.TransactionRecord
}

// Weight is the number of transactions on the edge.
func (e Edge) Weight() int {
	return len(e.Records)
}

// Volume sums the transferred amounts.
func (e Edge) Volume() decimal.Decimal {
	total := decimal.Zero
	for _, rec := range e.Records {
		total = total.Add(rec.Amount)
	}
	return total
}

// Graph is a read-only snapshot. Accounts are indexed densely in ascending id
// order and all accessors are safe for concurrent use.
type Graph struct {
	accounts []Account
	index    map[string]int
	edges    []Edge
	edgeAt   map[[2]int]int

	successors   [][]int
	predecessors [][]int
	incoming     [][]domain.TransactionRecord
	outgoing     [][]domain.TransactionRecord

	transactions int
}

// Len returns the number of accounts.
func (g *Graph) Len() int {
	return len(g.accounts)
}

// TransactionCount returns the number of records folded into the graph.
func (g *Graph) TransactionCount() int {
	return g.transactions
}

// Accounts returns all accounts ordered by id. Callers must not modify the slice.
func (g *Graph) Accounts() []Account {
	return g.accounts
}

// Account returns the account at dense index i.
func (g *Graph) Account(i int) Account {
	return g.accounts[i]
}

// Lookup resolves an account id to its dense index.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Successors lists the indices of accounts that i sent funds to, ascending.
func (g *Graph) Successors(i int) []int {
	return g.successors[i]
}

// Predecessors lists the indices of accounts that sent funds to i, ascending.
func (g *Graph) Predecessors(i int) []int {
	return g.predecessors[i]
}

// Incoming returns the transactions received by account i, ordered by time.
func (g *Graph) Incoming(i int) []domain.TransactionRecord {
	return g.incoming[i]
}

// Outgoing returns the transactions sent by account i, ordered by time.
func (g *Graph) Outgoing(i int) []domain.TransactionRecord {
	return g.outgoing[i]
}

// Edges returns every edge ordered by (from, to).
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Edge returns the edge between two account indices, if present.
func (g *Graph) Edge(from, to int) (Edge, bool) {
	at, ok := g.edgeAt[[2]int{from, to}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[at], true
}

// HasEdge reports whether from sent at least one transaction to to.
func (g *Graph) HasEdge(from, to string) bool {
	fi, ok := g.index[from]
	if !ok {
		return false
	}
	ti, ok := g.index[to]
	if !ok {
		return false
	}
	_, ok = g.edgeAt[[2]int{fi, ti}]
	return ok
}
