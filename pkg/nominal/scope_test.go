package nominal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// pair is a minimal scope body over two variables.
type pair struct{ l, r Var }

func (p pair) Hash() uint64 { return Mix(1, p.l.Hash(), p.r.Hash()) }

func (p pair) Equal(o Term) bool {
	q, ok := o.(pair)
	return ok && p.l.Equal(q.l) && p.r.Equal(q.r)
}

func (p pair) Compare(o Term) int {
	q := o.(pair)
	if c := p.l.Compare(q.l); c != 0 {
		return c
	}
	return p.r.Compare(q.r)
}

func (p pair) String() string { return "(" + p.l.String() + " " + p.r.String() + ")" }

func (p pair) CloseAt(d int, v Var) pair { return pair{p.l.CloseAt(d, v), p.r.CloseAt(d, v)} }
func (p pair) OpenAt(d int, v Var) pair  { return pair{p.l.OpenAt(d, v), p.r.OpenAt(d, v)} }

func (p pair) FreeVarsInto(s *VarSet) {
	s.Add(p.l)
	s.Add(p.r)
}

func TestScope_AlphaEquivalence(t *testing.T) {
	a := NewAllocator()
	x, y, z := a.Fresh("x"), a.Fresh("y"), a.Fresh("z")

	tests := []struct {
		name  string
		left  Scope[pair]
		right Scope[pair]
		equal bool
	}{
		{
			name:  "renamed binder",
			left:  Bind(NewBinder(x), pair{x, y}),
			right: Bind(NewBinder(z), pair{z, y}),
			equal: true,
		},
		{
			name:  "same binder",
			left:  Bind(NewBinder(x), pair{x, x}),
			right: Bind(NewBinder(x), pair{x, x}),
			equal: true,
		},
		{
			name:  "binder in different position",
			left:  Bind(NewBinder(x), pair{x, y}),
			right: Bind(NewBinder(x), pair{y, x}),
			equal: false,
		},
		{
			name:  "different free variable",
			left:  Bind(NewBinder(x), pair{x, y}),
			right: Bind(NewBinder(x), pair{x, z}),
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.equal, tt.left.Equal(tt.right))
			require.Equal(t, tt.equal, tt.right.Equal(tt.left))
			if tt.equal {
				require.Equal(t, tt.left.Hash(), tt.right.Hash())
				require.Zero(t, tt.left.Compare(tt.right))
			} else {
				require.NotZero(t, tt.left.Compare(tt.right))
			}
		})
	}
}

func TestScope_HintIgnored(t *testing.T) {
	a := NewAllocator()
	x, y := a.Fresh("x"), a.Fresh("y")
	s := Bind(NewBinder(x), pair{x, y})
	renamed := s.WithHint("other")

	require.Equal(t, "x", s.Hint())
	require.Equal(t, "other", renamed.Hint())
	require.True(t, s.Equal(renamed))
	require.Equal(t, s.Hash(), renamed.Hash())
}

func TestScope_UnbindIsDeterministicAndFresh(t *testing.T) {
	a := NewAllocator()
	x, y := a.Fresh("x"), a.Fresh("y")
	s := Bind(NewBinder(x), pair{x, y})
	o := NewOpener(a)

	b1, body1 := s.Unbind(o)
	b2, body2 := s.Unbind(o)
	require.True(t, b1.Var().Equal(b2.Var()), "same scope must open with the same variable")
	require.True(t, body1.Equal(body2))
	require.Equal(t, "x", b1.Var().Name())

	require.False(t, b1.Var().Equal(x), "opening variable must be new")
	require.False(t, b1.Var().Equal(y))
	require.True(t, body1.l.Equal(b1.Var()))
	require.True(t, body1.r.Equal(y))

	// An alpha-equivalent scope built elsewhere opens the same way.
	z := a.Fresh("z")
	other := Bind(NewBinder(z), pair{z, y})
	b3, _ := other.Unbind(o)
	require.True(t, b1.Var().Equal(b3.Var()))

	// Rebinding the opened body gives the scope back.
	require.True(t, Bind(b1, body1).Equal(s))
}

func TestScope_UnbindRejectsNonFreshVariable(t *testing.T) {
	run := NewAllocator()
	y := run.Fresh("y") // identity 1 in this run

	// A second allocator that never heard of y issues identity 1 again.
	stale := NewAllocator()
	x := run.Fresh("x")
	s := Bind(NewBinder(x), pair{x, y})

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.True(t, errors.Is(err, ErrNotFresh))
	}()
	s.Unbind(NewOpener(stale))
	t.Fatal("Unbind should have panicked")
}

func TestScope_Open(t *testing.T) {
	a := NewAllocator()
	x, y, w := a.Fresh("x"), a.Fresh("y"), a.Fresh("w")
	s := Bind(NewBinder(x), pair{y, x})

	require.Equal(t, pair{y, w}, s.Open(w))
	require.True(t, s.Body().r.IsBound())
	require.Zero(t, s.Body().r.Index())
}

func TestScope_Nested(t *testing.T) {
	a := NewAllocator()
	x, y := a.Fresh("x"), a.Fresh("y")

	inner := Bind(NewBinder(y), pair{x, y})
	// Closing x one level further out shifts its index under the inner scope.
	closed := inner.CloseAt(0, x)
	require.Equal(t, 1, closed.Body().l.Index())
	require.Equal(t, 0, closed.Body().r.Index())

	opened := closed.OpenAt(0, x)
	require.True(t, opened.Equal(inner))
}

func TestNewBinder_PanicsOnBoundVariable(t *testing.T) {
	a := NewAllocator()
	x := a.Fresh("x")
	bound := Bind(NewBinder(x), pair{x, x}).Body().l

	require.True(t, bound.IsBound())
	require.Panics(t, func() { NewBinder(bound) })
}

func TestAllocator(t *testing.T) {
	a := NewAllocator()
	first := a.Fresh("a")
	require.Equal(t, ID(1), first.ID())
	require.Equal(t, 1, a.Issued())

	a.Reserve(Free(10, "ten"), first)
	require.Equal(t, ID(11), a.Fresh("b").ID())

	a.Reset()
	require.Zero(t, a.Issued())
	require.Equal(t, ID(1), a.Fresh("c").ID())
}

func TestOpener(t *testing.T) {
	a := NewAllocator()
	x, y := a.Fresh("x"), a.Fresh("y")
	s := Bind(NewBinder(x), pair{x, y})
	u := Bind(NewBinder(y), pair{x, y})

	first := NewOpener(a)
	require.Same(t, a, first.Allocator())
	require.Zero(t, first.Len())

	b1, _ := s.Unbind(first)
	s.Unbind(first)
	u.Unbind(first)
	require.Equal(t, 2, first.Len())

	// Runs share identities but not openings.
	second := NewOpener(a)
	b2, _ := s.Unbind(second)
	require.False(t, b1.Var().Equal(b2.Var()))
	require.Equal(t, 1, second.Len())

	issued := a.Issued()
	first.Reset()
	require.Zero(t, first.Len())
	require.Equal(t, issued, a.Issued())
	b3, _ := s.Unbind(first)
	require.False(t, b1.Var().Equal(b3.Var()))
}
