// Package datalog is a small incremental fixpoint engine over relations of
// arbitrary values.
//
// # Relations
//
// A Relation stores tuples append-only and never stores the same tuple
// twice. Every relation carries one or more indexes over column subsets; an
// index is a hash map from key to the ascending IDs of matching rows. The
// rows are split into total, delta and new windows by two watermarks (see
// View), so a lookup restricted to a window costs the same as an
// unrestricted one.
//
// # Rules
//
// A Rule has an atom head and a body of literals:
//
//	Atom(rel, args...)   join against rel
//	Not(rel, args...)    no matching row in rel
//	Match(in, outs, fn)  destructure a bound value
//	Let(out, ins, fn)    construct a value
//	Guard(ins, fn)       side condition
//
// Rules are plain data. Compile validates them, resolves variables and
// groups relations into strongly connected components of the dependency
// graph. Negation may only refer to relations of earlier components.
//
// # Evaluation
//
// Program.Run evaluates components in dependency order. A non-recursive
// component runs each rule once. A recursive component runs semi-naive
// rounds: every rule is rewritten into one variant per recursive body atom,
// the variant reading only the previous round's delta at that atom, and the
// loop ends when a round derives nothing new.
//
// Example:
//
//	plan, err := datalog.Compile([]datalog.Schema{
//		{Name: "edge", Arity: 2, Indexes: [][]int{{0}}},
//		{Name: "path", Arity: 2, Indexes: [][]int{{0}, {1}}},
//	}, []datalog.Rule{
//		{Name: "base", Head: datalog.Atom("path", datalog.V("x"), datalog.V("y")),
//			Body: []datalog.Literal{datalog.Atom("edge", datalog.V("x"), datalog.V("y"))}},
//		{Name: "step", Head: datalog.Atom("path", datalog.V("x"), datalog.V("z")),
//			Body: []datalog.Literal{
//				datalog.Atom("path", datalog.V("x"), datalog.V("y")),
//				datalog.Atom("edge", datalog.V("y"), datalog.V("z")),
//			}},
//	})
//	prog := datalog.NewProgram(plan, nil)
//	prog.Insert("edge", a, b)
//	err = prog.Run(ctx)
package datalog
