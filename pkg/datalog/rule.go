package datalog

import (
	"fmt"
	"strings"
)

type argKind int

const (
	argVar argKind = iota
	argConst
	argWild
)

// Arg is one argument of an atom: a variable, a constant or a don't-care.
type Arg struct {
	kind argKind
	name string
	val  Value
}

// V is the variable called name.
func V(name string) Arg { return Arg{kind: argVar, name: name} }

// C is the constant v.
func C(v Value) Arg { return Arg{kind: argConst, val: v} }

// Wild matches any value and binds nothing.
func Wild() Arg { return Arg{kind: argWild} }

func (a Arg) String() string {
	switch a.kind {
	case argVar:
		return a.name
	case argConst:
		return a.val.String()
	default:
		return "_"
	}
}

// LiteralKind identifies what a body literal does.
type LiteralKind int

const (
	// KindAtom joins against a relation.
	KindAtom LiteralKind = iota
	// KindNot succeeds when no matching row exists.
	KindNot
	// KindMatch decomposes one bound value into several.
	KindMatch
	// KindLet constructs one value from bound values.
	KindLet
	// KindGuard filters on bound values.
	KindGuard
)

// MatchFunc destructures a value. It returns false when the value does not
// have the expected shape.
type MatchFunc func(in Value) ([]Value, bool)

// LetFunc builds a value from its inputs. A nil result contributes nothing.
type LetFunc func(ins []Value) Value

// GuardFunc is a side condition over its inputs.
type GuardFunc func(ins []Value) bool

// Literal is one element of a rule body, or the rule head.
type Literal struct {
	Kind LiteralKind
	Rel  string
	Args []Arg

	// In and Out name the variables read and bound by Match, Let and Guard.
	// An empty Out name discards that output.
	In  []string
	Out []string

	match MatchFunc
	let   LetFunc
	guard GuardFunc
}

// Atom is a positive relation literal.
func Atom(rel string, args ...Arg) Literal {
	return Literal{Kind: KindAtom, Rel: rel, Args: args}
}

// Not succeeds when rel has no row matching args. Every variable in args must
// be bound elsewhere in the body.
func Not(rel string, args ...Arg) Literal {
	return Literal{Kind: KindNot, Rel: rel, Args: args}
}

// Match binds outs to the parts fn extracts from in. When fn reports no match
// the current binding contributes nothing.
func Match(in string, outs []string, fn MatchFunc) Literal {
	return Literal{Kind: KindMatch, In: []string{in}, Out: outs, match: fn}
}

// Let binds out to fn applied to the values of ins.
func Let(out string, ins []string, fn LetFunc) Literal {
	return Literal{Kind: KindLet, In: ins, Out: []string{out}, let: fn}
}

// Guard drops bindings for which fn returns false.
func Guard(ins []string, fn GuardFunc) Literal {
	return Literal{Kind: KindGuard, In: ins, guard: fn}
}

func (l Literal) String() string {
	switch l.Kind {
	case KindAtom, KindNot:
		args := make([]string, len(l.Args))
		for i, a := range l.Args {
			args[i] = a.String()
		}
		s := l.Rel + "(" + strings.Join(args, ", ") + ")"
		if l.Kind == KindNot {
			s = "!" + s
		}
		return s
	case KindMatch:
		return fmt.Sprintf("match %s -> (%s)", l.In[0], strings.Join(l.Out, ", "))
	case KindLet:
		return fmt.Sprintf("let %s = f(%s)", l.Out[0], strings.Join(l.In, ", "))
	default:
		return fmt.Sprintf("guard(%s)", strings.Join(l.In, ", "))
	}
}

// Rule derives Head whenever every Body literal holds. The body is a
// conjunction; the evaluator chooses the join order.
type Rule struct {
	Name string
	Head Literal
	Body []Literal
}

func (r Rule) String() string {
	body := make([]string, len(r.Body))
	for i, l := range r.Body {
		body[i] = l.String()
	}
	return fmt.Sprintf("%s: %s :- %s", r.Name, r.Head, strings.Join(body, ", "))
}
