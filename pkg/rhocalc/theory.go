// Package rhocalc computes the equational theory and one-step reduction
// behaviour of rho-calculus terms with the datalog engine.
//
// The theory is a fixed set of rules over these relations:
//
//	proc(p), name(n)          every term reachable from the seed
//	eq_proc(p, q), eq_name    structural congruence
//	rw_proc(p, q), rw_name    one reduction step
//	is_normal_form(p)         processes with no outgoing step
//	redex(p)                  the seed
//	path(s, t)                reachable from s by steps and congruence
//	path_full(s, t)           path restricted to normal forms
//
// Congruence is reflexive, symmetric and transitive, makes | commutative and
// associative, and is closed under every constructor. Reduction is the COMM
// rule
//
//	for(n->x){b} | m!(q)  ~>  b{@(q)/x}     when n and m are congruent
//
// closed under every constructor and, on its source side, under congruence.
package rhocalc

import (
	"github.com/gitrdm/rhokando/pkg/datalog"
	"github.com/gitrdm/rhokando/pkg/nominal"
)

// Relation names.
const (
	RelProc       = "proc"
	RelName       = "name"
	RelEqProc     = "eq_proc"
	RelEqName     = "eq_name"
	RelRwProc     = "rw_proc"
	RelRwName     = "rw_name"
	RelNormalForm = "is_normal_form"
	RelRedex      = "redex"
	RelPath       = "path"
	RelPathFull   = "path_full"
)

// Reported lists the relations a driver summarises after a run.
var Reported = []string{
	RelProc, RelName, RelRwProc, RelRwName, RelEqProc, RelEqName, RelNormalForm, RelPathFull,
}

// Schemas declares the relations of the theory.
func Schemas() []datalog.Schema {
	both := [][]int{{0}, {1}}
	return []datalog.Schema{
		{Name: RelProc, Arity: 1, Indexes: [][]int{{0}}},
		{Name: RelName, Arity: 1, Indexes: [][]int{{0}}},
		{Name: RelEqProc, Arity: 2, Indexes: both},
		{Name: RelEqName, Arity: 2, Indexes: both},
		{Name: RelRwProc, Arity: 2, Indexes: both},
		{Name: RelRwName, Arity: 2, Indexes: both},
		{Name: RelNormalForm, Arity: 1, Indexes: [][]int{{0}}},
		{Name: RelRedex, Arity: 1},
		{Name: RelPath, Arity: 2, Indexes: both},
		{Name: RelPathFull, Arity: 2, Indexes: [][]int{{0}}},
	}
}

var (
	v    = datalog.V
	wild = datalog.Wild
	atom = datalog.Atom
)

func rule(name string, head datalog.Literal, body ...datalog.Literal) datalog.Rule {
	return datalog.Rule{Name: name, Head: head, Body: body}
}

// Rules returns the theory. Input bodies are opened with open, so terms
// inserted into a run must come from its allocator. Rules built for one run
// should not be reused by another; the opener grows with every body opened.
func Rules(open *nominal.Opener) []datalog.Rule {
	var rules []datalog.Rule
	rules = append(rules, decompositionRules(open)...)
	rules = append(rules, equalityRules(open)...)
	rules = append(rules, reductionRules(open)...)
	rules = append(rules, analysisRules()...)
	return rules
}

func decompositionRules(open *nominal.Opener) []datalog.Rule {
	input := matchInput(open)
	return []datalog.Rule{
		rule("par-left", atom(RelProc, v("l")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"l", ""}, matchPar)),
		rule("par-right", atom(RelProc, v("r")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"", "r"}, matchPar)),
		rule("output-chan", atom(RelName, v("n")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"n", ""}, matchOutput)),
		rule("output-payload", atom(RelProc, v("p")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"", "p"}, matchOutput)),
		rule("input-chan", atom(RelName, v("n")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"n", "", ""}, input)),
		rule("input-body", atom(RelProc, v("b")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"", "b", ""}, input)),
		rule("drop-name", atom(RelName, v("n")),
			atom(RelProc, v("s")), datalog.Match("s", []string{"n"}, matchDrop)),
		rule("quote-proc", atom(RelProc, v("p")),
			atom(RelName, v("s")), datalog.Match("s", []string{"p"}, matchQuote)),

		rule("seed-rw-proc", atom(RelProc, v("t")), atom(RelRwProc, wild(), v("t"))),
		rule("seed-rw-name", atom(RelName, v("t")), atom(RelRwName, wild(), v("t"))),
		rule("seed-eq-proc", atom(RelProc, v("t")), atom(RelEqProc, wild(), v("t"))),
		rule("seed-eq-name", atom(RelName, v("t")), atom(RelEqName, wild(), v("t"))),
	}
}

func equalityRules(open *nominal.Opener) []datalog.Rule {
	input := matchInput(open)
	return []datalog.Rule{
		rule("eq-proc-refl", atom(RelEqProc, v("t"), v("t")), atom(RelProc, v("t"))),
		rule("eq-name-refl", atom(RelEqName, v("t"), v("t")), atom(RelName, v("t"))),
		rule("eq-proc-sym", atom(RelEqProc, v("b"), v("a")), atom(RelEqProc, v("a"), v("b"))),
		rule("eq-name-sym", atom(RelEqName, v("b"), v("a")), atom(RelEqName, v("a"), v("b"))),
		rule("eq-proc-trans", atom(RelEqProc, v("a"), v("c")),
			atom(RelEqProc, v("a"), v("b")), atom(RelEqProc, v("b"), v("c"))),
		rule("eq-name-trans", atom(RelEqName, v("a"), v("c")),
			atom(RelEqName, v("a"), v("b")), atom(RelEqName, v("b"), v("c"))),

		rule("par-comm", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"l", "r"}, matchPar),
			datalog.Let("t", []string{"r", "l"}, letPar)),
		rule("par-assoc-left", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"p", "qr"}, matchPar),
			datalog.Match("qr", []string{"q", "r"}, matchPar),
			datalog.Let("pq", []string{"p", "q"}, letPar),
			datalog.Let("t", []string{"pq", "r"}, letPar)),
		rule("par-assoc-right", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"pq", "r"}, matchPar),
			datalog.Match("pq", []string{"p", "q"}, matchPar),
			datalog.Let("qr", []string{"q", "r"}, letPar),
			datalog.Let("t", []string{"p", "qr"}, letPar)),

		rule("eq-cong-par", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"l", "r"}, matchPar),
			atom(RelEqProc, v("l"), v("l2")),
			atom(RelEqProc, v("r"), v("r2")),
			datalog.Let("t", []string{"l2", "r2"}, letPar)),
		rule("eq-cong-output", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "p"}, matchOutput),
			atom(RelEqName, v("n"), v("n2")),
			atom(RelEqProc, v("p"), v("p2")),
			datalog.Let("t", []string{"n2", "p2"}, letOutput)),
		rule("eq-cong-input", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "b", "x"}, input),
			atom(RelEqName, v("n"), v("n2")),
			atom(RelEqProc, v("b"), v("b2")),
			datalog.Let("t", []string{"n2", "x", "b2"}, letInput)),
		rule("eq-cong-drop", atom(RelEqProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n"}, matchDrop),
			atom(RelEqName, v("n"), v("n2")),
			datalog.Let("t", []string{"n2"}, letDrop)),
		rule("eq-cong-quote", atom(RelEqName, v("s"), v("t")),
			atom(RelName, v("s")),
			datalog.Match("s", []string{"p"}, matchQuote),
			atom(RelEqProc, v("p"), v("p2")),
			datalog.Let("t", []string{"p2"}, letQuote)),
	}
}

func reductionRules(open *nominal.Opener) []datalog.Rule {
	input := matchInput(open)
	return []datalog.Rule{
		rule("comm", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"in", "out"}, matchPar),
			datalog.Match("in", []string{"n", "b", "x"}, input),
			datalog.Match("out", []string{"m", "q"}, matchOutput),
			atom(RelEqName, v("n"), v("m")),
			datalog.Guard([]string{"x", "q"}, freshIn),
			datalog.Let("t", []string{"b", "x", "q"}, letComm)),

		rule("rw-cong-par-left", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"l", "r"}, matchPar),
			atom(RelRwProc, v("l"), v("l2")),
			datalog.Let("t", []string{"l2", "r"}, letPar)),
		rule("rw-cong-par-right", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"l", "r"}, matchPar),
			atom(RelRwProc, v("r"), v("r2")),
			datalog.Let("t", []string{"l", "r2"}, letPar)),
		rule("rw-cong-output-chan", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "p"}, matchOutput),
			atom(RelRwName, v("n"), v("n2")),
			datalog.Let("t", []string{"n2", "p"}, letOutput)),
		rule("rw-cong-output-payload", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "p"}, matchOutput),
			atom(RelRwProc, v("p"), v("p2")),
			datalog.Let("t", []string{"n", "p2"}, letOutput)),
		rule("rw-cong-input-chan", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "b", "x"}, input),
			atom(RelRwName, v("n"), v("n2")),
			datalog.Let("t", []string{"n2", "x", "b"}, letInput)),
		rule("rw-cong-input-body", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n", "b", "x"}, input),
			atom(RelRwProc, v("b"), v("b2")),
			datalog.Let("t", []string{"n", "x", "b2"}, letInput)),
		rule("rw-cong-drop", atom(RelRwProc, v("s"), v("t")),
			atom(RelProc, v("s")),
			datalog.Match("s", []string{"n"}, matchDrop),
			atom(RelRwName, v("n"), v("n2")),
			datalog.Let("t", []string{"n2"}, letDrop)),
		rule("rw-cong-quote", atom(RelRwName, v("s"), v("t")),
			atom(RelName, v("s")),
			datalog.Match("s", []string{"p"}, matchQuote),
			atom(RelRwProc, v("p"), v("p2")),
			datalog.Let("t", []string{"p2"}, letQuote)),

		rule("rw-proc-eq-source", atom(RelRwProc, v("s"), v("t")),
			atom(RelEqProc, v("s"), v("s2")), atom(RelRwProc, v("s2"), v("t"))),
		rule("rw-name-eq-source", atom(RelRwName, v("s"), v("t")),
			atom(RelEqName, v("s"), v("s2")), atom(RelRwName, v("s2"), v("t"))),
	}
}

func analysisRules() []datalog.Rule {
	return []datalog.Rule{
		rule("normal-form", atom(RelNormalForm, v("t")),
			atom(RelProc, v("t")), datalog.Not(RelRwProc, v("t"), wild())),
		rule("path-refl", atom(RelPath, v("s"), v("s")), atom(RelRedex, v("s"))),
		rule("path-rw", atom(RelPath, v("s"), v("u")),
			atom(RelPath, v("s"), v("t")), atom(RelRwProc, v("t"), v("u"))),
		rule("path-eq", atom(RelPath, v("s"), v("u")),
			atom(RelPath, v("s"), v("t")), atom(RelEqProc, v("t"), v("u"))),
		rule("path-full", atom(RelPathFull, v("s"), v("t")),
			atom(RelPath, v("s"), v("t")), atom(RelNormalForm, v("t"))),
	}
}
