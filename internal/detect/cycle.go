package detect

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/txgraph"
)

const ctxPollInterval = 4096

// CycleDetector finds simple directed cycles whose length lies within
// [MinCycleLength, MaxCycleLength].
type CycleDetector struct {
	cfg    Config
	logger *slog.Logger
}

// NewCycleDetector constructs a CycleDetector.
func NewCycleDetector(cfg Config, logger *slog.Logger) *CycleDetector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CycleDetector{cfg: cfg.normalized(), logger: logger}
}

func (d *CycleDetector) Name() string { return "cycle" }

// Detect emits one cycle finding per member of every canonical cycle.
func (d *CycleDetector) Detect(ctx context.Context, g *txgraph.Graph) ([]domain.Finding, error) {
	cycles, err := d.Cycles(ctx, g)
	if err != nil {
		return nil, err
	}
	var findings []domain.Finding
	for _, cycle := range cycles {
		for _, member := range cycle {
			findings = append(findings, domain.NewFinding(member, domain.PatternCycle, cycle))
		}
	}
	return findings, nil
}

// Cycles returns every canonical cycle, each rotated so that its smallest
// account id comes first, in lexicographic order.
func (d *CycleDetector) Cycles(ctx context.Context, g *txgraph.Graph) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	alive := prune(g)
	s := &cycleSearch{
		g:       g,
		cfg:     d.cfg,
		ctx:     ctx,
		alive:   alive,
		onPath:  make([]bool, g.Len()),
		path:    make([]int, 0, d.cfg.MaxCycleLength),
		seen:    make(map[string]struct{}),
		limited: d.cfg.MaxCycles > 0,
	}

	for start := 0; start < g.Len(); start++ {
		if !alive[start] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.start = start
		s.path = append(s.path[:0], start)
		s.onPath[start] = true
		s.extend(start)
		s.onPath[start] = false
		if s.err != nil {
			return nil, s.err
		}
		if s.full() {
			d.logger.Warn("cycle search truncated", "max_cycles", d.cfg.MaxCycles)
			break
		}
	}
	return s.cycles, nil
}

type cycleSearch struct {
	g       *txgraph.Graph
	cfg     Config
	ctx     context.Context
	alive   []bool
	onPath  []bool
	path    []int
	start   int
	seen    map[string]struct{}
	cycles  [][]string
	limited bool
	steps   int
	err     error
}

func (s *cycleSearch) full() bool {
	return s.limited && len(s.cycles) >= s.cfg.MaxCycles
}

// extend walks successors of node. Only nodes with a larger index than the
// start are visited, so each cycle is discovered from its smallest member.
func (s *cycleSearch) extend(node int) {
	for _, next := range s.g.Successors(node) {
		if s.err != nil || s.full() {
			return
		}
		s.steps++
		if s.steps%ctxPollInterval == 0 {
			if err := s.ctx.Err(); err != nil {
				s.err = err
				return
			}
		}

		if next == s.start {
			if n := len(s.path); n >= s.cfg.MinCycleLength && n <= s.cfg.MaxCycleLength {
				s.record()
			}
			continue
		}
		if next < s.start || !s.alive[next] || s.onPath[next] || len(s.path) >= s.cfg.MaxCycleLength {
			continue
		}
		s.onPath[next] = true
		s.path = append(s.path, next)
		s.extend(next)
		s.path = s.path[:len(s.path)-1]
		s.onPath[next] = false
	}
}

func (s *cycleSearch) record() {
	ids := make([]string, len(s.path))
	for i, idx := range s.path {
		ids[i] = s.g.Account(idx).ID
	}
	canonical := Canonicalize(ids)
	key := strings.Join(canonical, "\x00")
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.cycles = append(s.cycles, canonical)
}

// Canonicalize rotates a cycle so that its lexicographically smallest member
// is first. Direction is preserved.
func Canonicalize(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	minAt := 0
	for i, id := range cycle {
		if id < cycle[minAt] {
			minAt = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minAt:]...)
	out = append(out, cycle[:minAt]...)
	return out
}

// prune repeatedly removes accounts with no live predecessor or no live
// successor. Such accounts cannot lie on a directed cycle.
func prune(g *txgraph.Graph) []bool {
	n := g.Len()
	alive := make([]bool, n)
	inLive := make([]int, n)
	outLive := make([]int, n)
	queue := make([]int, 0, n)

	for i := 0; i < n; i++ {
		alive[i] = true
		inLive[i] = len(g.Predecessors(i))
		outLive[i] = len(g.Successors(i))
		if inLive[i] == 0 || outLive[i] == 0 {
			alive[i] = false
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(node) {
			if !alive[next] {
				continue
			}
			inLive[next]--
			if inLive[next] == 0 {
				alive[next] = false
				queue = append(queue, next)
			}
		}
		for _, prev := range g.Predecessors(node) {
			if !alive[prev] {
				continue
			}
			outLive[prev]--
			if outLive[prev] == 0 {
				alive[prev] = false
				queue = append(queue, prev)
			}
		}
	}
	return alive
}
