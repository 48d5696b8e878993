package nominal

import (
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// VarSet is a set of free variables keyed by identity: two variables with
// the same ID and different display names are the same element.
type VarSet struct {
	items *set.HashSet[Var, uint64]
}

// NewVarSet returns an empty set.
func NewVarSet() *VarSet {
	return &VarSet{items: set.NewHashSet[Var, uint64](4)}
}

// Add inserts v. Bound variables are ignored.
func (s *VarSet) Add(v Var) {
	if v.bound {
		return
	}
	s.items.Insert(v)
}

// Contains reports whether a free variable with v's identity is present.
func (s *VarSet) Contains(v Var) bool {
	if v.bound {
		return false
	}
	return s.items.Contains(v)
}

// Len returns the number of variables.
func (s *VarSet) Len() int { return s.items.Size() }

// Sorted returns the variables ordered by identity.
func (s *VarSet) Sorted() []Var {
	out := s.items.Slice()
	slices.SortFunc(out, Var.Compare)
	return out
}

// HasName reports whether some variable in the set displays as name.
func (s *VarSet) HasName(name string) bool {
	for _, v := range s.items.Slice() {
		if v.String() == name {
			return true
		}
	}
	return false
}
