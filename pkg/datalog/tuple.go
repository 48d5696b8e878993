package datalog

import (
	"strings"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

// Value is anything that can be stored in a relation column. Equality,
// hashing and ordering come from the value itself; for rho terms that is
// alpha-equivalence.
type Value = nominal.Term

// tagTuple seeds tuple and key hashes.
const tagTuple = 0x7A

// Tuple is one row of a relation.
type Tuple []Value

// Hash combines the column hashes in order.
func (t Tuple) Hash() uint64 { return hashValues(t) }

// Equal reports whether both tuples have the same arity and equal columns.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Compare orders tuples column by column.
func (t Tuple) Compare(o Tuple) int {
	for i := 0; i < len(t) && i < len(o); i++ {
		if c := t[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	return len(t) - len(o)
}

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// project returns the values of t at cols.
func (t Tuple) project(cols []int) Tuple {
	out := make(Tuple, len(cols))
	for i, c := range cols {
		out[i] = t[c]
	}
	return out
}

func hashValues(vals []Value) uint64 {
	parts := make([]uint64, len(vals))
	for i, v := range vals {
		parts[i] = v.Hash()
	}
	return nominal.Mix(tagTuple, parts...)
}

// tupleSet is a set of distinct tuples in insertion order.
type tupleSet struct {
	byHash map[uint64][]int
	rows   []Tuple
}

// add reports whether t was not yet in the set.
func (s *tupleSet) add(t Tuple) bool {
	if s.byHash == nil {
		s.byHash = make(map[uint64][]int)
	}
	h := t.Hash()
	for _, i := range s.byHash[h] {
		if s.rows[i].Equal(t) {
			return false
		}
	}
	s.byHash[h] = append(s.byHash[h], len(s.rows))
	s.rows = append(s.rows, t)
	return true
}
