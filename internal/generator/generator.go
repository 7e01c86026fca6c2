package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
)

// Planted lists the accounts deliberately wired into mule patterns.
type Planted struct {
	Cycles     [][]string `json:"cycles"`
	FanInHubs  []string   `json:"fan_in_hubs"`
	FanOutHubs []string   `json:"fan_out_hubs"`
	Shells     []string   `json:"shells"`
}

// Dataset contains the generated transactions and the ground truth.
type Dataset struct {
	Transactions []domain.TransactionRecord `json:"transactions"`
	Planted      Planted                    `json:"planted"`
}

// Generator produces synthetic transaction batches with planted patterns.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	txs  []domain.TransactionRecord
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumAccounts <= 1 {
		cfg.NumAccounts = def.NumAccounts
	}
	if cfg.NumTransactions < 0 {
		cfg.NumTransactions = 0
	}
	if cfg.Start.IsZero() {
		cfg.Start = def.Start
	}
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate synthesises one batch. Transaction ids follow timestamp order.
// It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	g.txs = make([]domain.TransactionRecord, 0, g.cfg.NumTransactions+64)
	var planted Planted

	for i := 0; i < g.cfg.NumTransactions; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		sender := g.rand.Intn(g.cfg.NumAccounts)
		receiver := g.rand.Intn(g.cfg.NumAccounts - 1)
		if receiver >= sender {
			receiver++
		}
		offset := time.Duration(g.rand.Int63n(int64(g.cfg.Span)))
		g.emit(accountID(sender), accountID(receiver), g.randomAmount(50, 5000), g.cfg.Start.Add(offset))
	}

	for i := 0; i < g.cfg.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		planted.Cycles = append(planted.Cycles, g.plantCycle(i))
	}
	for i := 0; i < g.cfg.FanIns; i++ {
		planted.FanInHubs = append(planted.FanInHubs, g.plantFan(i, true))
	}
	for i := 0; i < g.cfg.FanOuts; i++ {
		planted.FanOutHubs = append(planted.FanOutHubs, g.plantFan(i, false))
	}
	for i := 0; i < g.cfg.ShellChains; i++ {
		planted.Shells = append(planted.Shells, g.plantShellChain(i)...)
	}

	sort.SliceStable(g.txs, func(i, j int) bool {
		return g.txs[i].Timestamp.Before(g.txs[j].Timestamp)
	})
	for i := range g.txs {
		g.txs[i].ID = fmt.Sprintf("TXN-%07d", i+1)
	}

	return Dataset{Transactions: g.txs, Planted: planted}, nil
}

// plantCycle routes one amount around 3 to 5 accounts, shaving a small fee
// at every hop.
func (g *Generator) plantCycle(n int) []string {
	length := 3 + g.rand.Intn(3)
	members := make([]string, length)
	for i := range members {
		members[i] = fmt.Sprintf("CYC-%02d-%d", n+1, i+1)
	}

	at := g.anchor()
	amount := g.randomAmount(8000, 20000)
	fee := decimal.NewFromFloat(0.97)
	for i := range members {
		g.emit(members[i], members[(i+1)%length], amount, at)
		amount = amount.Mul(fee).Round(2)
		at = at.Add(time.Duration(2+g.rand.Intn(10)) * time.Hour)
	}
	return members
}

// plantFan creates a hub with 10 to 14 distinct counterparties inside 48h.
func (g *Generator) plantFan(n int, inbound bool) string {
	prefix := "FOUT"
	if inbound {
		prefix = "FIN"
	}
	hub := fmt.Sprintf("%s-%02d-HUB", prefix, n+1)
	spokes := 10 + g.rand.Intn(5)

	at := g.anchor()
	for i := 0; i < spokes; i++ {
		spoke := fmt.Sprintf("%s-%02d-%02d", prefix, n+1, i+1)
		ts := at.Add(time.Duration(g.rand.Int63n(int64(48 * time.Hour))))
		amount := g.randomAmount(900, 9900)
		if inbound {
			g.emit(spoke, hub, amount, ts)
		} else {
			g.emit(hub, spoke, amount, ts)
		}
	}
	return hub
}

// plantShellChain layers funds through three pass-through accounts, each
// touched exactly once in and once out, spaced days apart.
func (g *Generator) plantShellChain(n int) []string {
	chain := []string{fmt.Sprintf("LAY-%02d-SRC", n+1)}
	shells := make([]string, 3)
	for i := range shells {
		shells[i] = fmt.Sprintf("LAY-%02d-S%d", n+1, i+1)
		chain = append(chain, shells[i])
	}
	chain = append(chain, fmt.Sprintf("LAY-%02d-DST", n+1))

	at := g.anchor()
	amount := g.randomAmount(5000, 15000)
	for i := 0; i+1 < len(chain); i++ {
		g.emit(chain[i], chain[i+1], amount, at)
		amount = amount.Sub(g.randomAmount(10, 90))
		at = at.Add(time.Duration(24+g.rand.Intn(48)) * time.Hour)
	}
	return shells
}

func (g *Generator) anchor() time.Time {
	// Leave room at the end of the span for multi-day chains.
	window := g.cfg.Span - 7*24*time.Hour
	if window <= 0 {
		return g.cfg.Start
	}
	return g.cfg.Start.Add(time.Duration(g.rand.Int63n(int64(window)))).Truncate(time.Second)
}

func (g *Generator) emit(sender, receiver string, amount decimal.Decimal, at time.Time) {
	g.txs = append(g.txs, domain.TransactionRecord{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: at.UTC().Truncate(time.Second),
	})
}

// randomAmount returns a two-decimal amount in [lo, hi).
func (g *Generator) randomAmount(lo, hi int) decimal.Decimal {
	cents := int64(lo*100) + g.rand.Int63n(int64((hi-lo)*100))
	return decimal.New(cents, -2)
}

func accountID(i int) string {
	return fmt.Sprintf("ACC-%05d", i+1)
}
