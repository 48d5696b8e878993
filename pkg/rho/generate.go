package rho

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// ErrUnrealizable is returned when no term of the requested sort exists at
// the requested depth, e.g. a name of depth 0 with an empty variable pool.
var ErrUnrealizable = errors.New("rho: no term exists at the requested depth")

// exhaustive generation above this depth is usually too large to be useful
const warnDepth = 3

// GenerateTerms enumerates every process of depth at most maxDepth over the
// name variables in vars, shallowest first. Each depth is built from the
// smaller ones and deduplicated in canonical order.
//
// Input bodies come from a nested enumeration with one extra name variable,
// x0 for the outermost binder, x1 inside it and so on, and maxDepth-1.
//
// The result grows exponentially; depths above 3 log a warning.
func GenerateTerms(vars []nominal.Var, maxDepth int, opts ...Option) []Proc {
	g := startGenerator(vars, maxDepth, opts)
	return slices.Concat(g.procs...)
}

// GenerateNames is GenerateTerms for the name sort.
func GenerateNames(vars []nominal.Var, maxDepth int, opts ...Option) []Name {
	g := startGenerator(vars, maxDepth, opts)
	return slices.Concat(g.names...)
}

func startGenerator(vars []nominal.Var, maxDepth int, opts []Option) *generator {
	o := buildOptions(opts)
	o.alloc.Reserve(vars...)
	if maxDepth > warnDepth {
		o.logger.Warn("exhaustive term generation grows exponentially with depth",
			"depth", maxDepth, "recommended_max", warnDepth)
	}
	return newGenerator(vars, o.procVars, maxDepth, 0, o.alloc)
}

// generator holds the terms of each exact depth, indexed by depth.
type generator struct {
	names  [][]Name
	procs  [][]Proc
	binder nominal.Var
	inner  *generator
}

func newGenerator(vars, procVars []nominal.Var, maxDepth, level int, alloc *nominal.Allocator) *generator {
	g := &generator{}
	if maxDepth < 0 {
		return g
	}
	if maxDepth > 0 {
		g.binder = alloc.Fresh(fmt.Sprintf("x%d", level))
		pool := append(slices.Clone(vars), g.binder)
		g.inner = newGenerator(pool, procVars, maxDepth-1, level+1, alloc)
	}

	var names []Name
	for _, v := range vars {
		names = append(names, NewNVar(v))
	}
	procs := []Proc{NewPZero()}
	for _, v := range procVars {
		procs = append(procs, NewPVar(v))
	}
	g.names = append(g.names, Sort(names))
	g.procs = append(g.procs, Sort(procs))

	for d := 1; d <= maxDepth; d++ {
		g.procs = append(g.procs, g.procsAt(d))
		g.names = append(g.names, g.namesAt(d))
	}
	return g
}

func (g *generator) namesAt(d int) []Name {
	out := make([]Name, 0, len(g.procs[d-1]))
	for _, p := range g.procs[d-1] {
		out = append(out, NewNQuote(p))
	}
	return Sort(out)
}

func (g *generator) procsAt(d int) []Proc {
	var out []Proc
	for _, n := range g.names[d-1] {
		out = append(out, NewPDrop(n))
	}
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			if max(i, j) != d-1 {
				continue
			}
			for _, n := range g.names[i] {
				for _, p := range g.procs[j] {
					out = append(out, NewPOutput(n, p))
				}
				for _, b := range g.inner.procs[j] {
					out = append(out, NewPInputBind(n, g.binder, b))
				}
			}
			for _, l := range g.procs[i] {
				for _, r := range g.procs[j] {
					out = append(out, NewPPar(l, r))
				}
			}
		}
	}
	return Sort(out)
}

// GenerateRandomAtDepthWithSeed samples one process of exactly the given
// depth. The same seed, depth, pool and options always give the same term.
//
// At every level a constructor is chosen uniformly among those that can reach
// the depth exactly. For two-child constructors one child is forced to
// depth-1 and the other is drawn from [0, depth). The result is a valid
// sample but not a uniform one over term shapes.
func GenerateRandomAtDepthWithSeed(vars []nominal.Var, depth int, seed uint64, opts ...Option) (Proc, error) {
	o := buildOptions(opts)
	o.alloc.Reserve(vars...)
	s := &sampler{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		alloc:    o.alloc,
		procVars: o.procVars,
	}
	return s.proc(vars, depth, 0)
}

// GenerateRandomAtDepth samples with a seed drawn from the runtime source.
func GenerateRandomAtDepth(vars []nominal.Var, depth int, opts ...Option) (Proc, error) {
	return GenerateRandomAtDepthWithSeed(vars, depth, rand.Uint64(), opts...)
}

type sampler struct {
	rng      *rand.Rand
	alloc    *nominal.Allocator
	procVars []nominal.Var
}

type ctor int

const (
	ctorDrop ctor = iota
	ctorOutput
	ctorInput
	ctorPar
)

func (s *sampler) proc(pool []nominal.Var, d, level int) (Proc, error) {
	if d < 0 {
		return nil, fmt.Errorf("%w: process of depth %d", ErrUnrealizable, d)
	}
	if d == 0 {
		k := s.rng.IntN(1 + len(s.procVars))
		if k == 0 {
			return NewPZero(), nil
		}
		return NewPVar(s.procVars[k-1]), nil
	}

	nameOK := func(i int) bool { return i > 0 || len(pool) > 0 }
	choices := []ctor{ctorPar}
	if nameOK(d - 1) {
		choices = append(choices, ctorDrop)
	}
	if nameOK(0) || d >= 2 {
		choices = append(choices, ctorOutput, ctorInput)
	}
	slices.Sort(choices)

	switch choices[s.rng.IntN(len(choices))] {
	case ctorDrop:
		n, err := s.name(pool, d-1, level)
		if err != nil {
			return nil, err
		}
		return NewPDrop(n), nil
	case ctorOutput:
		i, j := s.split(d, nameOK)
		n, err := s.name(pool, i, level)
		if err != nil {
			return nil, err
		}
		p, err := s.proc(pool, j, level)
		if err != nil {
			return nil, err
		}
		return NewPOutput(n, p), nil
	case ctorInput:
		i, j := s.split(d, nameOK)
		n, err := s.name(pool, i, level)
		if err != nil {
			return nil, err
		}
		x := s.alloc.Fresh(fmt.Sprintf("x%d", level))
		body, err := s.proc(append(slices.Clone(pool), x), j, level+1)
		if err != nil {
			return nil, err
		}
		return NewPInputBind(n, x, body), nil
	default:
		i, j := s.split(d, func(int) bool { return true })
		l, err := s.proc(pool, i, level)
		if err != nil {
			return nil, err
		}
		r, err := s.proc(pool, j, level)
		if err != nil {
			return nil, err
		}
		return NewPPar(l, r), nil
	}
}

func (s *sampler) name(pool []nominal.Var, d, level int) (Name, error) {
	switch {
	case d < 0:
		return nil, fmt.Errorf("%w: name of depth %d", ErrUnrealizable, d)
	case d == 0:
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: name of depth 0 with an empty variable pool", ErrUnrealizable)
		}
		return NewNVar(pool[s.rng.IntN(len(pool))]), nil
	default:
		p, err := s.proc(pool, d-1, level)
		if err != nil {
			return nil, err
		}
		return NewNQuote(p), nil
	}
}

// split picks child depths (i, j) with max(i, j) == d-1. The right child is
// always a process and can take any depth; leftOK says which depths the left
// child can take.
func (s *sampler) split(d int, leftOK func(int) bool) (int, int) {
	if s.rng.IntN(2) == 0 && leftOK(d-1) {
		return d - 1, s.rng.IntN(d)
	}
	var left []int
	for i := 0; i < d; i++ {
		if leftOK(i) {
			left = append(left, i)
		}
	}
	return left[s.rng.IntN(len(left))], d - 1
}

// FreshVars allocates one free variable per display name, in order. It is a
// convenience for building generator pools.
func FreshVars(alloc *nominal.Allocator, names ...string) []nominal.Var {
	out := make([]nominal.Var, len(names))
	for i, n := range names {
		out[i] = alloc.Fresh(n)
	}
	return out
}
