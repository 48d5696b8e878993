package rho

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gitrdm/rhokando/pkg/nominal"
)

func TestAlphaEqual(t *testing.T) {
	alloc := nominal.NewAllocator()
	env := FreshVars(alloc, "a", "b")
	parse := func(s string) Proc {
		return MustParseProc(s, WithEnv(env...), WithAllocator(alloc))
	}

	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"renamed binder", "for(a->x){*x}", "for(a->y){*y}", true},
		{"renamed nested binders", "for(a->x){for(x->y){y!(*x)}}", "for(a->u){for(u->v){v!(*u)}}", true},
		{"binder versus free name", "for(a->x){*x}", "for(a->x){*a}", false},
		{"different channel", "for(a->x){*x}", "for(b->x){*x}", false},
		{"inner binder shadows outer", "for(a->x){for(a->x){*x}}", "for(a->x){for(a->y){*y}}", true},
		{"shadowing is not the outer binder", "for(a->x){for(a->x){*x}}", "for(a->x){for(a->y){*x}}", false},
		{"par is not commutative structurally", "a!(0) | *b", "*b | a!(0)", false},
		{"quoted processes", "@(for(a->x){*x})!(0)", "@(for(a->z){*z})!(0)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := parse(tt.a), parse(tt.b)
			require.Equal(t, tt.equal, AlphaEqual(a, b))
			require.Equal(t, tt.equal, Compare(a, b) == 0)
			if tt.equal {
				require.Equal(t, a.Hash(), b.Hash())
			}
		})
	}
}

func TestCompare_IsTotalOrder(t *testing.T) {
	alloc := nominal.NewAllocator()
	env := FreshVars(alloc, "a")
	terms := GenerateTerms(env, 2, WithAllocator(alloc))

	for i, a := range terms {
		for j, b := range terms {
			c := Compare(a, b)
			require.Equal(t, -c, Compare(b, a), "antisymmetry for %s and %s", a, b)
			require.Equal(t, i == j, c == 0, "distinct generated terms compare equal: %s, %s", a, b)
		}
	}
}

func TestFreeVars(t *testing.T) {
	alloc := nominal.NewAllocator()
	a, b, p := alloc.Fresh("a"), alloc.Fresh("b"), alloc.Fresh("P")

	tests := []struct {
		name string
		text string
		want []nominal.Var
	}{
		{"zero", "0", nil},
		{"output", "a!(b!(0))", []nominal.Var{a, b}},
		{"bound variable not reported", "for(a->x){*x}", []nominal.Var{a}},
		{"process variable", "P | *b", []nominal.Var{b, p}},
		{"inside quote", "*@(for(b->y){a!(*y)})", []nominal.Var{a, b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := MustParseProc(tt.text, WithEnv(a, b, p), WithAllocator(alloc))
			got := FreeVars(term)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				require.True(t, tt.want[i].Equal(got[i]), "got %v want %v", got, tt.want)
			}
			for _, v := range tt.want {
				require.True(t, IsFreeIn(v, term))
			}
		})
	}
}

func TestSubstName(t *testing.T) {
	alloc := nominal.NewAllocator()
	a, x, y := alloc.Fresh("a"), alloc.Fresh("x"), alloc.Fresh("y")
	parse := func(s string) Proc {
		return MustParseProc(s, WithEnv(a, x, y), WithAllocator(alloc))
	}

	tests := []struct {
		name string
		in   string
		v    nominal.Var
		with Name
		want string
	}{
		{"channel", "x!(0)", x, NewNVar(a), "a!(0)"},
		{"untouched", "a!(0)", x, NewNVar(y), "a!(0)"},
		{"drop of quote is the process", "*x", x, NewNQuote(parse("a!(0)")), "a!(0)"},
		{"drop of name stays a drop", "*x", x, NewNVar(a), "*a"},
		{"under input", "for(a->z){x!(*z)}", x, NewNVar(a), "for(a->z){a!(*z)}"},
		{"bound occurrence untouched", "x!(0) | for(a->x){*x}", x, NewNQuote(NewPZero()), "@(0)!(0) | for(a->x){*x}"},
		{"inside quote", "*@(x!(0))", x, NewNVar(a), "*@(a!(0))"},
		{"existing drop of quote stays", "*@(0) | *x", x, NewNVar(a), "*@(0) | *a"},
		{"only the direct drop collapses", "*@(*x)", x, NewNQuote(NewPZero()), "*@(0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(tt.in).SubstName(tt.v, tt.with)
			require.True(t, AlphaEqual(parse(tt.want), got), "got %s want %s", got, tt.want)
		})
	}
}

func TestSubstName_DropOfQuoteIsNotStructural(t *testing.T) {
	alloc := nominal.NewAllocator()
	x := alloc.Fresh("x")
	zero := NewPZero()

	quoted := MustParseProc("*@(0)", WithAllocator(alloc))
	require.IsType(t, &PDrop{}, quoted)
	require.False(t, AlphaEqual(quoted, zero), "parsing keeps *@(0) apart from 0")

	got := NewPDrop(NewNVar(x)).SubstName(x, NewNQuote(zero))
	require.True(t, AlphaEqual(zero, got), "got %s", got)
	require.False(t, AlphaEqual(quoted, got))
}

func TestSubstName_AvoidsCapture(t *testing.T) {
	alloc := nominal.NewAllocator()
	a, x, y := alloc.Fresh("a"), alloc.Fresh("x"), alloc.Fresh("y")
	env := WithEnv(a, x, y)

	// The body mentions the free x; the binder is displayed as y, which is
	// also the display name of the replacement.
	p := MustParseProc("for(a->y){x!(*y)}", env, WithAllocator(alloc))
	got := p.SubstName(x, NewNVar(y))

	require.True(t, IsFreeIn(y, got))
	in := got.(*PInput)
	require.NotEqual(t, "y", in.Scope().Hint())
	require.Equal(t, "for(a->y'){y!(*y')}", Print(got))

	back := MustParseProc(Print(got), env, WithAllocator(alloc))
	require.True(t, AlphaEqual(got, back))
}

func TestSubstProc(t *testing.T) {
	alloc := nominal.NewAllocator()
	a, p, q := alloc.Fresh("a"), alloc.Fresh("P"), alloc.Fresh("Q")
	parse := func(s string) Proc {
		return MustParseProc(s, WithEnv(a, p, q), WithAllocator(alloc))
	}

	tests := []struct {
		name string
		in   string
		with string
		want string
	}{
		{"top level", "P", "a!(0)", "a!(0)"},
		{"par", "P | Q", "0", "0 | Q"},
		{"under input", "for(a->x){P | *x}", "a!(0)", "for(a->x){a!(0) | *x}"},
		{"inside quote", "*@(P)", "0", "*@(0)"},
		{"other variable", "Q", "0", "Q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parse(tt.in).SubstProc(p, parse(tt.with))
			require.True(t, AlphaEqual(parse(tt.want), got), "got %s want %s", got, tt.want)
		})
	}
}

func TestDepth(t *testing.T) {
	alloc := nominal.NewAllocator()
	env := WithEnv(FreshVars(alloc, "a")...)

	tests := []struct {
		text  string
		depth int
	}{
		{"0", 0},
		{"*a", 1},
		{"a!(0)", 1},
		{"for(a->x){0}", 1},
		{"0 | 0", 1},
		{"*@(0)", 2},
		{"a!(0) | for(a->x){*x}", 3},
		{"@(a!(0))!(0)", 3},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			require.Equal(t, tt.depth, MustParseProc(tt.text, env, WithAllocator(alloc)).Depth())
		})
	}
}

func TestSort(t *testing.T) {
	alloc := nominal.NewAllocator()
	env := WithEnv(FreshVars(alloc, "a")...)
	parse := func(s string) Proc { return MustParseProc(s, env, WithAllocator(alloc)) }

	got := Sort([]Proc{
		parse("a!(0)"),
		parse("0"),
		parse("for(a->x){*x}"),
		parse("0"),
		parse("for(a->y){*y}"),
	})
	require.Len(t, got, 3)
	require.Equal(t, "0", Print(got[0]))
	for i := 1; i < len(got); i++ {
		require.Negative(t, Compare(got[i-1], got[i]))
	}
}

func TestPrint(t *testing.T) {
	alloc := nominal.NewAllocator()
	a := alloc.Fresh("a")
	x := alloc.Fresh("x")
	zero := NewPZero()

	tests := []struct {
		name string
		term Term
		want string
	}{
		{"zero", zero, "0"},
		{"left nested par", NewPPar(NewPPar(zero, zero), zero), "0 | 0 | 0"},
		{"right nested par", NewPPar(zero, NewPPar(zero, zero)), "0 | (0 | 0)"},
		{"input", NewPInputBind(NewNVar(a), x, NewPDrop(NewNVar(x))), "for(a->x){*x}"},
		{"quote", NewNQuote(NewPOutput(NewNVar(a), zero)), "@(a!(0))"},
		{"unnamed free variable", NewPVar(nominal.Free(42, "")), "_42"},
		{
			"shadowed binder",
			NewPInputBind(NewNVar(a), x, NewPInputBind(NewNVar(x), alloc.Fresh("x"), zero)),
			"for(a->x){for(x->x'){0}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Print(tt.term))
			require.Equal(t, tt.want, tt.term.String())
		})
	}
}

func TestSubstitution_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alloc := nominal.NewAllocator()
		vars := FreshVars(alloc, "a", "b")
		other := alloc.Fresh("c")
		depth := rapid.IntRange(0, 5).Draw(t, "depth")
		seed := rapid.Uint64().Draw(t, "seed")
		p, err := GenerateRandomAtDepthWithSeed(vars, depth, seed, WithAllocator(alloc))
		if err != nil {
			t.Fatal(err)
		}
		v := vars[rapid.IntRange(0, len(vars)-1).Draw(t, "var")]

		if got := p.SubstName(v, NewNVar(v)); !AlphaEqual(p, got) {
			t.Fatalf("substituting %s for itself in %s gave %s", v, p, got)
		}

		renamed := p.SubstName(v, NewNVar(other))
		if IsFreeIn(v, renamed) {
			t.Fatalf("%s still free in %s", v, renamed)
		}
		if IsFreeIn(v, p) != IsFreeIn(other, renamed) {
			t.Fatalf("renaming %s in %s gave %s", v, p, renamed)
		}
		if back := renamed.SubstName(other, NewNVar(v)); !AlphaEqual(p, back) {
			t.Fatalf("renaming back gave %s, want %s", back, p)
		}
		if renamed.Depth() != p.Depth() {
			t.Fatalf("renaming changed depth of %s", p)
		}

		// Alpha-equivalent terms hash alike.
		text := Print(p)
		q, err := ParseProc(text, WithEnv(vars...), WithAllocator(alloc))
		if err != nil {
			t.Fatal(err)
		}
		if p.Hash() != q.Hash() {
			t.Fatalf("hash differs for %q", text)
		}
	})
}
