package datalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	metrics "github.com/hashicorp/go-metrics"

	"github.com/gitrdm/rhokando/internal/parallel"
)

var (
	// ErrUnknownRelation is returned for a relation name no schema declares.
	ErrUnknownRelation = errors.New("datalog: unknown relation")
	// ErrArity is returned when a tuple or atom has the wrong number of columns.
	ErrArity = errors.New("datalog: arity mismatch")
	// ErrInvalidSchema is returned for malformed or duplicate schemas.
	ErrInvalidSchema = errors.New("datalog: invalid schema")
	// ErrUnsafe is returned for rules that read a variable nothing binds.
	ErrUnsafe = errors.New("datalog: unsafe rule")
	// ErrUnstratified is returned when a rule negates a relation of its own
	// recursive component.
	ErrUnstratified = errors.New("datalog: negation is not stratified")
	// ErrBudgetExceeded is returned when a run derives more facts than
	// Config.MaxFacts allows.
	ErrBudgetExceeded = errors.New("datalog: fact budget exceeded")
	// ErrRoundLimit is returned when a component needs more rounds than
	// Config.MaxRounds allows.
	ErrRoundLimit = errors.New("datalog: round limit exceeded")
	// ErrIndexInvariant is returned by Relation.Check, and by Run in
	// paranoid mode, when a row is missing from an index.
	ErrIndexInvariant = errors.New("datalog: index invariant violated")
	// ErrAlreadyRun is returned when a program is modified or run after Run.
	ErrAlreadyRun = errors.New("datalog: program has already run")
)

// Config holds the evaluation limits and hooks of a program.
type Config struct {
	// MaxFacts bounds the total number of facts across all relations,
	// seeds included (0 = unlimited). A round stops deriving as soon as it
	// would exceed the budget, so memory stays proportional to MaxFacts.
	MaxFacts int

	// MaxRounds bounds the rounds of each recursive component (0 = unlimited).
	MaxRounds int

	// Parallelism is the number of workers evaluating the variants of one
	// round. Values below 2 evaluate sequentially. Results do not depend on it.
	Parallelism int

	// Logger receives debug lines per component and round. Defaults to a
	// null logger.
	Logger hclog.Logger

	// Paranoid checks every index of every relation after each component.
	Paranoid bool

	// OnRound, if set, is called after every merge of a recursive component.
	OnRound func(RoundInfo)
}

// DefaultConfig returns the default evaluation configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxFacts:    1_000_000,
		MaxRounds:   10_000,
		Parallelism: 1,
		Logger:      hclog.NewNullLogger(),
	}
}

// RoundInfo describes one completed round.
type RoundInfo struct {
	SCC     int
	Round   int
	Derived int
	Sizes   map[string]int
}

// SCCStats records the evaluation of one component.
type SCCStats struct {
	Relations []string
	Recursive bool
	Rounds    int
	Derived   int
	Duration  time.Duration
}

// Stats summarises a run.
type Stats struct {
	SCCs      []SCCStats
	Relations map[string]int
	Facts     int
	Duration  time.Duration
}

type runState int

const (
	stateInit runState = iota
	stateRunning
	stateDone
	stateFailed
)

// Program is the mutable state of one evaluation run over a Plan. It owns
// its relations exclusively and is not safe for concurrent use.
type Program struct {
	plan  *Plan
	cfg   Config
	log   hclog.Logger
	rels  []*Relation
	facts int
	state runState
	stats Stats
}

// NewProgram creates empty relations for plan. A nil config means
// DefaultConfig.
func NewProgram(plan *Plan, cfg *Config) *Program {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}
	p := &Program{
		plan: plan,
		cfg:  c,
		log:  c.Logger.Named("datalog"),
		rels: make([]*Relation, len(plan.schemas)),
	}
	for i, s := range plan.schemas {
		p.rels[i] = NewRelation(s)
	}
	p.stats.SCCs = make([]SCCStats, len(plan.sccs))
	for i, s := range plan.SCCs() {
		p.stats.SCCs[i] = SCCStats{Relations: s.Relations, Recursive: s.Recursive}
	}
	return p
}

// Insert adds a base fact before Run.
func (p *Program) Insert(rel string, vals ...Value) (bool, error) {
	if p.state != stateInit {
		return false, ErrAlreadyRun
	}
	i, ok := p.plan.relIndex[rel]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownRelation, rel)
	}
	if want := p.plan.schemas[i].Arity; len(vals) != want {
		return false, fmt.Errorf("%w: %s expects %d values, got %d", ErrArity, rel, want, len(vals))
	}
	if !p.rels[i].Insert(Tuple(vals)) {
		return false, nil
	}
	p.facts++
	return true, nil
}

// Relation returns the named relation, or nil if the plan has none.
func (p *Program) Relation(name string) *Relation {
	i, ok := p.plan.relIndex[name]
	if !ok {
		return nil
	}
	return p.rels[i]
}

// Stats returns the statistics gathered so far.
func (p *Program) Stats() Stats {
	s := p.stats
	s.SCCs = append([]SCCStats(nil), p.stats.SCCs...)
	s.Facts = p.facts
	s.Relations = make(map[string]int, len(p.rels))
	for _, r := range p.rels {
		s.Relations[r.Name()] = r.Len()
	}
	return s
}

// Run evaluates every component in dependency order until each reaches its
// fixpoint. ctx is checked between rounds; a round in progress always
// completes. A program runs at most once.
func (p *Program) Run(ctx context.Context) error {
	if p.state != stateInit {
		return ErrAlreadyRun
	}
	p.state = stateRunning
	start := time.Now()
	defer metrics.MeasureSince([]string{"datalog", "run"}, start)

	var pool *parallel.WorkerPool
	if p.cfg.Parallelism > 1 {
		pool = parallel.NewWorkerPool(p.cfg.Parallelism)
		defer pool.Shutdown()
	}

	for i, scc := range p.plan.sccs {
		if err := ctx.Err(); err != nil {
			p.state = stateFailed
			return fmt.Errorf("datalog: evaluation cancelled before component %d: %w", i, err)
		}
		if err := p.evalSCC(ctx, i, scc, pool); err != nil {
			p.state = stateFailed
			return err
		}
	}

	p.state = stateDone
	p.stats.Duration = time.Since(start)
	p.log.Info("evaluation complete", "facts", p.facts, "components", len(p.plan.sccs),
		"duration", p.stats.Duration)
	return nil
}

func (p *Program) evalSCC(ctx context.Context, i int, scc *sccPlan, pool *parallel.WorkerPool) error {
	start := time.Now()
	st := &p.stats.SCCs[i]
	label := []metrics.Label{{Name: "scc", Value: fmt.Sprint(i)}}
	defer metrics.MeasureSinceWithLabels([]string{"datalog", "scc"}, start, label)

	before := make([]int, len(scc.rels))
	for k, r := range scc.rels {
		before[k] = p.rels[r].Len()
	}
	p.log.Debug("evaluating component", "scc", i, "relations", st.Relations, "recursive", scc.recursive)

	if !scc.recursive {
		var vs []variant
		for _, r := range scc.rules {
			vs = append(vs, variantsFor(r, false, 0)...)
		}
		if err := p.evalVariants(ctx, vs, pool); err != nil {
			return err
		}
		for _, r := range scc.rels {
			p.rels[r].Settle()
		}
	} else {
		for _, r := range scc.rels {
			p.rels[r].DeltaAll()
		}
		for round := 0; ; round++ {
			if p.cfg.MaxRounds > 0 && round >= p.cfg.MaxRounds {
				return fmt.Errorf("%w: component %d %v did not converge in %d rounds",
					ErrRoundLimit, i, st.Relations, p.cfg.MaxRounds)
			}
			if round > 0 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("datalog: evaluation cancelled in component %d round %d: %w", i, round, err)
				}
			}

			var vs []variant
			for _, r := range scc.rules {
				for _, v := range variantsFor(r, true, round) {
					if v.delta >= 0 && p.rels[r.body[v.delta].rel].Size(ViewDelta) == 0 {
						continue
					}
					vs = append(vs, v)
				}
			}
			if err := p.evalVariants(ctx, vs, pool); err != nil {
				return err
			}

			derived := 0
			sizes := make(map[string]int, len(scc.rels))
			for _, r := range scc.rels {
				derived += p.rels[r].MergeRound()
				sizes[p.rels[r].Name()] = p.rels[r].Len()
			}
			st.Rounds++
			metrics.IncrCounterWithLabels([]string{"datalog", "rounds"}, 1, label)
			p.log.Debug("round complete", "scc", i, "round", round, "derived", derived, "variants", len(vs))
			if p.cfg.OnRound != nil {
				p.cfg.OnRound(RoundInfo{SCC: i, Round: round, Derived: derived, Sizes: sizes})
			}
			if derived == 0 {
				break
			}
		}
		for _, r := range scc.rels {
			p.rels[r].Settle()
		}
	}

	for k, r := range scc.rels {
		added := p.rels[r].Len() - before[k]
		st.Derived += added
		if added > 0 {
			metrics.IncrCounterWithLabels([]string{"datalog", "facts"}, float32(added),
				[]metrics.Label{{Name: "relation", Value: p.rels[r].Name()}})
		}
		if p.cfg.Paranoid {
			if err := p.rels[r].Check(); err != nil {
				return err
			}
		}
	}
	st.Duration = time.Since(start)
	return nil
}

// evalVariants runs one round's variants against frozen views and inserts
// what they derive in variant order, so parallel and sequential evaluation
// produce the same relations row for row. Each variant buffers only tuples
// its head relation does not hold yet, once each, and stops when the round
// has derived more distinct tuples than the fact budget has left.
func (p *Program) evalVariants(ctx context.Context, vs []variant, pool *parallel.WorkerPool) error {
	plans := make([][]step, len(vs))
	for k, v := range vs {
		plans[k] = planVariant(v, p.rels)
	}
	bufs := make([]tupleSet, len(vs))
	complete := make([]bool, len(vs))

	run := func(k int, b *budget) {
		head := p.rels[vs[k].rule.head.rel]
		complete[k] = newExecutor(vs[k].rule, plans[k], func(t Tuple) bool {
			if head.Contains(t) || !bufs[k].add(t) {
				return true
			}
			return b.reserve()
		}).run()
	}

	if pool != nil && len(vs) > 1 {
		shared := newBudget(p.cfg.MaxFacts, p.facts)
		tasks := make([]func() error, len(vs))
		for k := range vs {
			tasks[k] = func() error {
				run(k, shared)
				return nil
			}
		}
		if err := pool.RunAll(ctx, tasks...); err != nil {
			return fmt.Errorf("datalog: parallel round: %w", err)
		}
	}

	// Variants that did not run, or ran out of the shared budget, are
	// evaluated here in order against what their predecessors left.
	for k, v := range vs {
		if err := p.insertDerived(v.rule, bufs[k].rows, true); err != nil {
			return err
		}
		bufs[k] = tupleSet{}
		if complete[k] {
			continue
		}
		run(k, newBudget(p.cfg.MaxFacts, p.facts))
		if err := p.insertDerived(v.rule, bufs[k].rows, complete[k]); err != nil {
			return err
		}
		bufs[k] = tupleSet{}
	}
	return nil
}

func (p *Program) insertDerived(r *compiledRule, ts []Tuple, complete bool) error {
	rel := p.rels[r.head.rel]
	for _, t := range ts {
		if !rel.Insert(t) {
			continue
		}
		p.facts++
		if p.cfg.MaxFacts > 0 && p.facts > p.cfg.MaxFacts {
			return fmt.Errorf("%w: %d facts after rule %s", ErrBudgetExceeded, p.facts, r.name)
		}
	}
	if !complete {
		return fmt.Errorf("%w: %d facts, rule %s stopped with more to derive",
			ErrBudgetExceeded, p.facts, r.name)
	}
	return nil
}

// budget is the number of distinct facts a round may still derive. Workers
// of one round share it.
type budget struct {
	limited bool
	left    atomic.Int64
}

func newBudget(maxFacts, facts int) *budget {
	b := &budget{limited: maxFacts > 0}
	b.left.Store(int64(maxFacts - facts))
	return b
}

// reserve takes one fact from the budget and reports whether it was there.
func (b *budget) reserve() bool {
	return !b.limited || b.left.Add(-1) >= 0
}
