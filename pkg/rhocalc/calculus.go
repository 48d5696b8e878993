package rhocalc

import (
	"context"
	"fmt"

	"github.com/gitrdm/rhokando/pkg/datalog"
	"github.com/gitrdm/rhokando/pkg/nominal"
	"github.com/gitrdm/rhokando/pkg/rho"
)

// Calculus is the theory for one allocator. Create it once with New, then
// Evaluate any number of seeds, concurrently if needed. Seeds should be built
// with the calculus's Allocator. Every evaluation opens input bodies with its
// own nominal.Opener, so nothing a run opens outlives its Result.
type Calculus struct {
	alloc *nominal.Allocator
	plan  *datalog.Plan
	cfg   *datalog.Config
}

// New validates the theory. A nil cfg means datalog.DefaultConfig.
func New(cfg *datalog.Config) (*Calculus, error) {
	if cfg == nil {
		cfg = datalog.DefaultConfig()
	}
	alloc := nominal.NewAllocator()
	plan, err := compile(nominal.NewOpener(alloc))
	if err != nil {
		return nil, err
	}
	return &Calculus{alloc: alloc, plan: plan, cfg: cfg}, nil
}

func compile(open *nominal.Opener) (*datalog.Plan, error) {
	plan, err := datalog.Compile(Schemas(), Rules(open))
	if err != nil {
		return nil, fmt.Errorf("rhocalc: compiling theory: %w", err)
	}
	return plan, nil
}

// Allocator returns the allocator terms of this calculus must share. Pass it
// to rho.ParseProc and the generators with rho.WithAllocator.
func (c *Calculus) Allocator() *nominal.Allocator { return c.alloc }

// Plan returns the compiled theory. Its component structure is the same for
// every evaluation.
func (c *Calculus) Plan() *datalog.Plan { return c.plan }

// Evaluate runs the theory from seed. On error the partial result is still
// returned, so callers can inspect what was derived before the budget or
// context stopped the run.
func (c *Calculus) Evaluate(ctx context.Context, seed rho.Proc) (*Result, error) {
	c.alloc.Reserve(rho.FreeVars(seed)...)
	open := nominal.NewOpener(c.alloc)
	plan, err := compile(open)
	if err != nil {
		return nil, err
	}
	prog := datalog.NewProgram(plan, c.cfg)
	res := &Result{Seed: seed, prog: prog, open: open}
	if _, err := prog.Insert(RelProc, seed); err != nil {
		return nil, err
	}
	if _, err := prog.Insert(RelRedex, seed); err != nil {
		return nil, err
	}
	if err := prog.Run(ctx); err != nil {
		return res, fmt.Errorf("rhocalc: evaluating %s: %w", seed, err)
	}
	return res, nil
}

// Result holds the relations of one evaluation.
type Result struct {
	Seed rho.Proc
	prog *datalog.Program
	open *nominal.Opener
}

// Opened returns the number of distinct input bodies the run opened.
func (r *Result) Opened() int { return r.open.Len() }

// Relation returns the named relation, or nil.
func (r *Result) Relation(name string) *datalog.Relation { return r.prog.Relation(name) }

// Stats returns the engine statistics of the run.
func (r *Result) Stats() datalog.Stats { return r.prog.Stats() }

// Counts returns the size of every relation in Reported.
func (r *Result) Counts() map[string]int {
	out := make(map[string]int, len(Reported))
	for _, name := range Reported {
		out[name] = r.prog.Relation(name).Len()
	}
	return out
}

// IsNormalForm reports whether p was discovered and has no reduction step.
func (r *Result) IsNormalForm(p rho.Proc) bool {
	return r.prog.Relation(RelNormalForm).Contains(datalog.Tuple{p})
}

// Reduces reports whether from reduces to to in one step.
func (r *Result) Reduces(from, to rho.Proc) bool {
	return r.prog.Relation(RelRwProc).Contains(datalog.Tuple{from, to})
}

// Congruent reports whether a and b were found structurally congruent.
func (r *Result) Congruent(a, b rho.Proc) bool {
	return r.prog.Relation(RelEqProc).Contains(datalog.Tuple{a, b})
}

// PathFull returns the normal forms reachable from the seed, in canonical
// order.
func (r *Result) PathFull() []rho.Proc {
	rel := r.prog.Relation(RelPathFull)
	var out []rho.Proc
	for t := range rel.Lookup(datalog.ViewAll, rel.Index(0), datalog.Tuple{r.Seed}) {
		out = append(out, t[1].(rho.Proc))
	}
	return rho.Sort(out)
}

// Steps returns the one-step reducts of p, in canonical order.
func (r *Result) Steps(p rho.Proc) []rho.Proc {
	rel := r.prog.Relation(RelRwProc)
	var out []rho.Proc
	for t := range rel.Lookup(datalog.ViewAll, rel.Index(0), datalog.Tuple{p}) {
		out = append(out, t[1].(rho.Proc))
	}
	return rho.Sort(out)
}

// Procs returns every discovered process in canonical order.
func (r *Result) Procs() []rho.Proc {
	var out []rho.Proc
	for t := range r.prog.Relation(RelProc).All() {
		out = append(out, t[0].(rho.Proc))
	}
	return rho.Sort(out)
}
