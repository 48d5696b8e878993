package rho

import (
	"cmp"
	"slices"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// AlphaEqual reports whether a and b are equal up to renaming of bound
// variables.
func AlphaEqual(a, b Term) bool { return a.Equal(b) }

// FreeVars returns the free variables of t ordered by identity. Variables
// bound inside t are never reported.
func FreeVars(t Term) []nominal.Var {
	set := nominal.NewVarSet()
	t.FreeVarsInto(set)
	return set.Sorted()
}

// IsFreeIn reports whether v occurs free in t.
func IsFreeIn(v nominal.Var, t Term) bool {
	set := nominal.NewVarSet()
	t.FreeVarsInto(set)
	return set.Contains(v)
}

// Compare is the canonical total order over terms of both sorts.
func Compare(a, b Term) int { return compareTerms(a, b) }

func compareTerms(a Term, o nominal.Term) int {
	b, ok := o.(Term)
	if !ok {
		return -1
	}
	if c := cmp.Compare(a.tag(), b.tag()); c != 0 {
		return c
	}
	switch x := a.(type) {
	case *PVar:
		return x.v.Compare(b.(*PVar).v)
	case *PDrop:
		return x.n.Compare(b.(*PDrop).n)
	case *POutput:
		y := b.(*POutput)
		if c := x.n.Compare(y.n); c != 0 {
			return c
		}
		return x.p.Compare(y.p)
	case *PInput:
		y := b.(*PInput)
		if c := x.n.Compare(y.n); c != 0 {
			return c
		}
		return x.s.Compare(y.s)
	case *PPar:
		y := b.(*PPar)
		if c := x.l.Compare(y.l); c != 0 {
			return c
		}
		return x.r.Compare(y.r)
	case *NVar:
		return x.v.Compare(b.(*NVar).v)
	case *NQuote:
		return x.p.Compare(b.(*NQuote).p)
	default:
		return 0
	}
}

// avoidHint renames the scope's display hint when the replacement about to
// be pushed under it has a free variable displaying the same name. The scope
// stays alpha-equivalent; only the rendered text changes.
func avoidHint(s Scope, r Term) Scope {
	free := nominal.NewVarSet()
	r.FreeVarsInto(free)
	if free.Len() == 0 || !free.HasName(s.Hint()) {
		return s
	}
	h := s.Hint()
	for free.HasName(h) {
		h += "'"
	}
	return s.WithHint(h)
}

// Sort orders ps canonically and removes duplicates in place, returning the
// shortened slice.
func Sort[T Term](ps []T) []T {
	slices.SortFunc(ps, func(a, b T) int { return a.Compare(b) })
	return slices.CompactFunc(ps, func(a, b T) bool { return a.Equal(b) })
}
