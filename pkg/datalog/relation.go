package datalog

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// View selects a window of a relation's rows.
//
// Rows are append-only and numbered in insertion order. Two watermarks split
// them into three contiguous windows:
//
//	rows[0:totalEnd)         Total  facts known before the previous round
//	rows[totalEnd:deltaEnd)  Delta  facts derived in the previous round
//	rows[deltaEnd:len)       New    facts derived in the current round
//
// Full is Total and Delta together. All includes New as well.
type View int

const (
	ViewTotal View = iota
	ViewDelta
	ViewNew
	ViewFull
	ViewAll
)

func (v View) String() string {
	switch v {
	case ViewTotal:
		return "total"
	case ViewDelta:
		return "delta"
	case ViewNew:
		return "new"
	case ViewFull:
		return "full"
	case ViewAll:
		return "all"
	default:
		return "view(" + strconv.Itoa(int(v)) + ")"
	}
}

// Schema declares a relation. Indexes lists column subsets to index up front;
// other subsets are indexed on first use.
type Schema struct {
	Name    string
	Arity   int
	Indexes [][]int
}

// Relation is a set of tuples with a fixed arity.
//
// All methods are safe for concurrent use. Iterators returned by Scan, Lookup
// and All read a snapshot of the rows and window taken when they are created,
// so rows inserted while iterating are not visited.
type Relation struct {
	schema Schema

	mu      sync.RWMutex
	rows    []Tuple
	dedup   map[uint64][]int
	indexes map[string]*Index
	order   []*Index

	totalEnd int
	deltaEnd int
}

// NewRelation returns an empty relation with the schema's indexes built.
func NewRelation(s Schema) *Relation {
	r := &Relation{
		schema:  s,
		dedup:   make(map[uint64][]int),
		indexes: make(map[string]*Index),
	}
	for _, cols := range s.Indexes {
		r.Index(cols...)
	}
	return r
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.schema.Name }

// Arity returns the number of columns.
func (r *Relation) Arity() int { return r.schema.Arity }

// Schema returns the relation's declaration.
func (r *Relation) Schema() Schema { return r.schema }

// Insert adds t and reports whether it was new. Set semantics hold across
// every row of the relation regardless of window. New rows are appended to
// the backing store and to every index before Insert returns. A tuple of the
// wrong arity is a programming error and panics.
func (r *Relation) Insert(t Tuple) bool {
	if len(t) != r.schema.Arity {
		panic(fmt.Sprintf("datalog: relation %s expects %d columns, got %d", r.schema.Name, r.schema.Arity, len(t)))
	}
	h := t.Hash()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.dedup[h] {
		if r.rows[id].Equal(t) {
			return false
		}
	}
	id := len(r.rows)
	r.rows = append(r.rows, t)
	r.dedup[h] = append(r.dedup[h], id)
	for _, idx := range r.order {
		idx.add(id, t)
	}
	return true
}

// Contains reports whether t is present in any window.
func (r *Relation) Contains(t Tuple) bool {
	if len(t) != r.schema.Arity {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.dedup[t.Hash()] {
		if r.rows[id].Equal(t) {
			return true
		}
	}
	return false
}

// Len returns the number of rows in every window.
func (r *Relation) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// Size returns the number of rows visible in view.
func (r *Relation) Size(view View) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lo, hi := r.window(view)
	return hi - lo
}

// All iterates every row in insertion order.
func (r *Relation) All() iter.Seq[Tuple] { return r.Scan(ViewAll) }

// Scan iterates the rows of view in insertion order.
func (r *Relation) Scan(view View) iter.Seq[Tuple] {
	r.mu.RLock()
	lo, hi := r.window(view)
	rows := r.rows
	r.mu.RUnlock()
	return func(yield func(Tuple) bool) {
		for _, t := range rows[lo:hi] {
			if !yield(t) {
				return
			}
		}
	}
}

// Lookup iterates the rows of view whose idx columns equal key.
func (r *Relation) Lookup(view View, idx *Index, key Tuple) iter.Seq[Tuple] {
	lo, hi, rows, ids := r.snapshot(view, idx, key)
	return lookupIn(lo, hi, rows, ids, idx, key)
}

func (r *Relation) snapshot(view View, idx *Index, key Tuple) (lo, hi int, rows []Tuple, ids []int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lo, hi = r.window(view)
	return lo, hi, r.rows, idx.bucket(key)
}

func lookupIn(lo, hi int, rows []Tuple, ids []int, idx *Index, key Tuple) iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		start, _ := slices.BinarySearch(ids, lo)
		for _, id := range ids[start:] {
			if id >= hi {
				return
			}
			t := rows[id]
			if !idx.matches(t, key) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Has reports whether some row of view has idx columns equal to key. An empty
// bucket answers without touching any row.
func (r *Relation) Has(view View, idx *Index, key Tuple) bool {
	lo, hi, rows, ids := r.snapshot(view, idx, key)
	if len(ids) == 0 {
		return false
	}
	for range lookupIn(lo, hi, rows, ids, idx, key) {
		return true
	}
	return false
}

// Index returns the index over cols, building it from the existing rows on
// first use.
func (r *Relation) Index(cols ...int) *Index {
	for _, c := range cols {
		if c < 0 || c >= r.schema.Arity {
			panic(fmt.Sprintf("datalog: index column %d out of range for %s/%d", c, r.schema.Name, r.schema.Arity))
		}
	}
	k := colsKey(cols)

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indexes[k]; ok {
		return idx
	}
	idx := &Index{cols: slices.Clone(cols), buckets: make(map[uint64][]int)}
	for id, t := range r.rows {
		idx.add(id, t)
	}
	r.indexes[k] = idx
	r.order = append(r.order, idx)
	return idx
}

// MergeRound folds the delta into total and promotes the new rows to delta.
// It returns the size of the new delta.
func (r *Relation) MergeRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEnd = r.deltaEnd
	r.deltaEnd = len(r.rows)
	return r.deltaEnd - r.totalEnd
}

// Settle moves every row into total.
func (r *Relation) Settle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEnd = len(r.rows)
	r.deltaEnd = len(r.rows)
}

// DeltaAll makes every existing row part of delta, so the first round of a
// recursive evaluation sees them as newly derived.
func (r *Relation) DeltaAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalEnd = 0
	r.deltaEnd = len(r.rows)
}

// Check verifies that every row is reachable through every index.
func (r *Relation) Check() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, idx := range r.order {
		n := 0
		for _, ids := range idx.buckets {
			n += len(ids)
		}
		if n != len(r.rows) {
			return fmt.Errorf("%w: %s index %v holds %d rows, relation has %d",
				ErrIndexInvariant, r.schema.Name, idx.cols, n, len(r.rows))
		}
		for id, t := range r.rows {
			key := t.project(idx.cols)
			if _, found := slices.BinarySearch(idx.bucket(key), id); !found {
				return fmt.Errorf("%w: %s row %d %s missing from index %v",
					ErrIndexInvariant, r.schema.Name, id, t, idx.cols)
			}
		}
	}
	return nil
}

// window must be called with r.mu held.
func (r *Relation) window(view View) (int, int) {
	switch view {
	case ViewTotal:
		return 0, r.totalEnd
	case ViewDelta:
		return r.totalEnd, r.deltaEnd
	case ViewNew:
		return r.deltaEnd, len(r.rows)
	case ViewFull:
		return 0, r.deltaEnd
	default:
		return 0, len(r.rows)
	}
}

// Index maps the values of a column subset to the ascending IDs of the rows
// holding them. Hash collisions are resolved by comparing the columns.
type Index struct {
	cols    []int
	buckets map[uint64][]int
}

// Columns returns the indexed column positions.
func (idx *Index) Columns() []int { return slices.Clone(idx.cols) }

func (idx *Index) add(id int, t Tuple) {
	h := hashValues(t.project(idx.cols))
	idx.buckets[h] = append(idx.buckets[h], id)
}

func (idx *Index) bucket(key Tuple) []int {
	return idx.buckets[hashValues(key)]
}

func (idx *Index) matches(t, key Tuple) bool {
	for i, c := range idx.cols {
		if !t[c].Equal(key[i]) {
			return false
		}
	}
	return true
}

func colsKey(cols []int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
