package datalog

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelation_InsertDeduplicates(t *testing.T) {
	r := NewRelation(Schema{Name: "edge", Arity: 2})

	require.True(t, r.Insert(tup("a", "b")))
	require.False(t, r.Insert(tup("a", "b")))
	require.True(t, r.Insert(tup("b", "a")))
	require.Equal(t, 2, r.Len())
	require.True(t, r.Contains(tup("b", "a")))
	require.False(t, r.Contains(tup("a", "a")))
	require.False(t, r.Contains(tup("a")))

	require.Panics(t, func() { r.Insert(tup("a")) })
}

func TestRelation_Windows(t *testing.T) {
	r := NewRelation(Schema{Name: "r", Arity: 1})
	r.Insert(tup("a"))
	r.Insert(tup("b"))

	sizes := func() [5]int {
		return [5]int{r.Size(ViewTotal), r.Size(ViewDelta), r.Size(ViewNew), r.Size(ViewFull), r.Size(ViewAll)}
	}

	// Fresh rows are new until a merge.
	require.Equal(t, [5]int{0, 0, 2, 0, 2}, sizes())

	r.DeltaAll()
	require.Equal(t, [5]int{0, 2, 0, 2, 2}, sizes())

	r.Insert(tup("c"))
	require.Equal(t, [5]int{0, 2, 1, 2, 3}, sizes())

	require.Equal(t, 1, r.MergeRound())
	require.Equal(t, [5]int{2, 1, 0, 3, 3}, sizes())

	require.Equal(t, 0, r.MergeRound())
	require.Equal(t, [5]int{3, 0, 0, 3, 3}, sizes())

	r.Insert(tup("d"))
	r.Settle()
	require.Equal(t, [5]int{4, 0, 0, 4, 4}, sizes())

	var delta []string
	r.DeltaAll()
	r.Insert(tup("e"))
	for row := range r.Scan(ViewNew) {
		delta = append(delta, row.String())
	}
	require.Equal(t, []string{"(e)"}, delta)
}

func TestRelation_Lookup(t *testing.T) {
	r := NewRelation(Schema{Name: "edge", Arity: 2, Indexes: [][]int{{0}}})
	r.Insert(tup("a", "b"))
	r.Insert(tup("b", "c"))
	r.Insert(tup("a", "c"))
	idx := r.Index(0)

	collect := func(view View, key string) []string {
		var out []string
		for row := range r.Lookup(view, idx, tup(key)) {
			out = append(out, row.String())
		}
		return out
	}

	require.Equal(t, []string{"(a, b)", "(a, c)"}, collect(ViewAll, "a"))
	require.Empty(t, collect(ViewAll, "z"))

	// Rows inserted after Settle are new.
	r.Settle()
	r.Insert(tup("a", "d"))
	require.Equal(t, []string{"(a, b)", "(a, c)"}, collect(ViewTotal, "a"))
	require.Equal(t, []string{"(a, d)"}, collect(ViewNew, "a"))
	require.True(t, r.Has(ViewNew, idx, tup("a")))
	require.False(t, r.Has(ViewNew, idx, tup("b")))
	require.False(t, r.Has(ViewAll, idx, tup("z")))
}

func TestRelation_Index(t *testing.T) {
	r := NewRelation(Schema{Name: "edge", Arity: 2})
	r.Insert(tup("a", "b"))
	r.Insert(tup("c", "b"))

	// Built on first use from the existing rows.
	idx := r.Index(1)
	require.Same(t, idx, r.Index(1))
	require.Equal(t, []int{1}, idx.Columns())

	var got []string
	for row := range r.Lookup(ViewAll, idx, tup("b")) {
		got = append(got, row.String())
	}
	require.Equal(t, []string{"(a, b)", "(c, b)"}, got)

	// Maintained on later inserts.
	r.Insert(tup("d", "b"))
	got = got[:0]
	for row := range r.Lookup(ViewAll, idx, tup("b")) {
		got = append(got, row.String())
	}
	require.Len(t, got, 3)

	multi := r.Index(0, 1)
	require.True(t, r.Has(ViewAll, multi, tup("d", "b")))
	require.False(t, r.Has(ViewAll, multi, tup("b", "d")))

	require.Panics(t, func() { r.Index(2) })
	require.NoError(t, r.Check())
}

func TestRelation_CheckDetectsMissingRows(t *testing.T) {
	r := NewRelation(Schema{Name: "edge", Arity: 2, Indexes: [][]int{{0}}})
	r.Insert(tup("a", "b"))
	r.Insert(tup("b", "c"))
	require.NoError(t, r.Check())

	idx := r.Index(0)
	for h, ids := range idx.buckets {
		idx.buckets[h] = slices.DeleteFunc(ids, func(id int) bool { return id == 1 })
	}
	err := r.Check()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIndexInvariant))
}

func TestView_String(t *testing.T) {
	tests := []struct {
		view View
		want string
	}{
		{ViewTotal, "total"},
		{ViewDelta, "delta"},
		{ViewNew, "new"},
		{ViewFull, "full"},
		{ViewAll, "all"},
		{View(9), "view(9)"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.view.String())
	}
}

func TestTuple(t *testing.T) {
	a, b := tup("a", "b"), tup("a", "b")
	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
	require.Zero(t, a.Compare(b))
	require.Negative(t, tup("a", "b").Compare(tup("a", "c")))
	require.Negative(t, tup("a").Compare(tup("a", "b")))
	require.False(t, tup("a").Equal(tup("a", "b")))
	require.Equal(t, "(a, b)", a.String())
}

func TestRelation_ConcurrentReadersAndWriters(t *testing.T) {
	r := NewRelation(Schema{Name: "n", Arity: 2, Indexes: [][]int{{0}}})
	idx := r.Index(0)
	const writers, perWriter = 4, 200

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				r.Insert(Tuple{num(w), num(i)})
			}
		}()
		go func() {
			defer wg.Done()
			for i := range perWriter {
				r.Contains(Tuple{num(w), num(i)})
				r.Has(ViewAll, idx, Tuple{num(w)})
				for range r.Lookup(ViewAll, idx, Tuple{num(w)}) {
				}
				_ = r.Len() + r.Size(ViewNew)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, writers*perWriter, r.Len())
	require.NoError(t, r.Check())
	n := 0
	for range r.Lookup(ViewAll, idx, Tuple{num(0)}) {
		n++
	}
	require.Equal(t, perWriter, n)
}

func TestRelation_IteratorsReadSnapshot(t *testing.T) {
	r := NewRelation(Schema{Name: "r", Arity: 1})
	r.Insert(tup("a"))

	var seen []string
	for row := range r.All() {
		seen = append(seen, row.String())
		r.Insert(tup("b"))
	}
	require.Equal(t, []string{"(a)"}, seen)
	require.Equal(t, 2, r.Len())
}
