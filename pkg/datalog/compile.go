package datalog

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// Plan is the static result of compiling a rule set: the relations, the
// rules with variables resolved to slots, and the strongly connected
// components of the relation dependency graph in evaluation order.
//
// A Plan is immutable and may be shared by any number of programs.
type Plan struct {
	schemas  []Schema
	relIndex map[string]int
	rules    []*compiledRule
	sccs     []*sccPlan
}

// SCC describes one strongly connected component of a plan.
type SCC struct {
	Relations []string
	Rules     []string
	Recursive bool
}

type sccPlan struct {
	rels      []int
	rules     []*compiledRule
	recursive bool
}

type slotArg struct {
	kind argKind
	slot int
	val  Value
}

type compiledLiteral struct {
	kind  LiteralKind
	rel   int
	args  []slotArg
	ins   []int
	outs  []int // -1 discards the output
	match MatchFunc
	let   LetFunc
	guard GuardFunc
	text  string
}

type compiledRule struct {
	name      string
	text      string
	head      compiledLiteral
	body      []compiledLiteral
	slotNames []string
	scc       int
	recursive []int // body positions of atoms over relations of the rule's own SCC
}

// Compile validates rules against schemas and computes the evaluation plan.
// Every problem found is reported; the returned error wraps ErrInvalidSchema,
// ErrUnknownRelation, ErrArity, ErrUnsafe or ErrUnstratified as appropriate.
func Compile(schemas []Schema, rules []Rule) (*Plan, error) {
	var result *multierror.Error

	p := &Plan{relIndex: make(map[string]int, len(schemas))}
	for _, s := range schemas {
		if err := validateSchema(s); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, dup := p.relIndex[s.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("%w: relation %s declared twice", ErrInvalidSchema, s.Name))
			continue
		}
		p.relIndex[s.Name] = len(p.schemas)
		p.schemas = append(p.schemas, s)
	}

	for _, r := range rules {
		cr, err := p.compileRule(r)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		p.rules = append(p.rules, cr)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	p.buildSCCs()
	for _, cr := range p.rules {
		for _, l := range cr.body {
			if l.kind == KindNot && p.sccOf(l.rel) == cr.scc {
				result = multierror.Append(result, fmt.Errorf("%w: rule %s negates %s inside its own recursive component",
					ErrUnstratified, cr.name, p.schemas[l.rel].Name))
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustCompile is Compile for rule sets known to be valid. It panics on error.
func MustCompile(schemas []Schema, rules []Rule) *Plan {
	p, err := Compile(schemas, rules)
	if err != nil {
		panic(err)
	}
	return p
}

// Schemas returns the declared relations in declaration order.
func (p *Plan) Schemas() []Schema { return slices.Clone(p.schemas) }

// SCCs returns the components in evaluation order: every component comes
// after the components it reads from.
func (p *Plan) SCCs() []SCC {
	out := make([]SCC, len(p.sccs))
	for i, s := range p.sccs {
		for _, r := range s.rels {
			out[i].Relations = append(out[i].Relations, p.schemas[r].Name)
		}
		for _, cr := range s.rules {
			out[i].Rules = append(out[i].Rules, cr.name)
		}
		out[i].Recursive = s.recursive
	}
	return out
}

func validateSchema(s Schema) error {
	if s.Name == "" {
		return fmt.Errorf("%w: relation name cannot be empty", ErrInvalidSchema)
	}
	if s.Arity <= 0 {
		return fmt.Errorf("%w: relation %s arity must be positive, got %d", ErrInvalidSchema, s.Name, s.Arity)
	}
	for _, cols := range s.Indexes {
		for _, c := range cols {
			if c < 0 || c >= s.Arity {
				return fmt.Errorf("%w: relation %s index column %d out of range for arity %d",
					ErrInvalidSchema, s.Name, c, s.Arity)
			}
		}
	}
	return nil
}

func (p *Plan) compileRule(r Rule) (*compiledRule, error) {
	var result *multierror.Error
	cr := &compiledRule{name: r.Name, text: r.String()}
	slots := make(map[string]int)
	slot := func(name string) int {
		if name == "" {
			return -1
		}
		if s, ok := slots[name]; ok {
			return s
		}
		slots[name] = len(cr.slotNames)
		cr.slotNames = append(cr.slotNames, name)
		return slots[name]
	}

	relation := func(l Literal) int {
		idx, ok := p.relIndex[l.Rel]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%w: rule %s references %s", ErrUnknownRelation, r.Name, l.Rel))
			return -1
		}
		if want := p.schemas[idx].Arity; len(l.Args) != want {
			result = multierror.Append(result, fmt.Errorf("%w: rule %s uses %s with %d arguments, want %d",
				ErrArity, r.Name, l.Rel, len(l.Args), want))
		}
		return idx
	}
	compileArgs := func(args []Arg) []slotArg {
		out := make([]slotArg, len(args))
		for i, a := range args {
			out[i] = slotArg{kind: a.kind, val: a.val, slot: -1}
			if a.kind == argVar {
				out[i].slot = slot(a.name)
			}
		}
		return out
	}

	if r.Head.Kind != KindAtom {
		result = multierror.Append(result, fmt.Errorf("%w: rule %s head must be an atom", ErrUnsafe, r.Name))
	}
	for _, a := range r.Head.Args {
		if a.kind == argWild {
			result = multierror.Append(result, fmt.Errorf("%w: rule %s head contains a don't-care", ErrUnsafe, r.Name))
		}
	}
	cr.head = compiledLiteral{kind: KindAtom, rel: relation(r.Head), args: compileArgs(r.Head.Args), text: r.Head.String()}

	for _, l := range r.Body {
		cl := compiledLiteral{kind: l.Kind, rel: -1, text: l.String(), match: l.match, let: l.let, guard: l.guard}
		switch l.Kind {
		case KindAtom, KindNot:
			cl.rel = relation(l)
			cl.args = compileArgs(l.Args)
		case KindMatch, KindLet, KindGuard:
			if (l.Kind == KindMatch && (l.match == nil || len(l.In) != 1)) ||
				(l.Kind == KindLet && (l.let == nil || len(l.Out) != 1)) ||
				(l.Kind == KindGuard && l.guard == nil) {
				result = multierror.Append(result, fmt.Errorf("%w: rule %s has a malformed literal %s", ErrUnsafe, r.Name, l))
			}
			for _, in := range l.In {
				cl.ins = append(cl.ins, slot(in))
			}
			for _, out := range l.Out {
				cl.outs = append(cl.outs, slot(out))
			}
		}
		cr.body = append(cr.body, cl)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := cr.checkSafety(); err != nil {
		return nil, err
	}
	return cr, nil
}

// checkSafety verifies that some evaluation order binds every variable before
// it is read: by positive atoms, then by whichever Match and Let literals
// become ready.
func (cr *compiledRule) checkSafety() error {
	bound := make([]bool, len(cr.slotNames))
	for _, l := range cr.body {
		if l.kind != KindAtom {
			continue
		}
		for _, a := range l.args {
			if a.kind == argVar {
				bound[a.slot] = true
			}
		}
	}
	ready := func(ins []int) bool {
		for _, s := range ins {
			if s < 0 || !bound[s] {
				return false
			}
		}
		return true
	}
	for changed := true; changed; {
		changed = false
		for _, l := range cr.body {
			if (l.kind != KindMatch && l.kind != KindLet) || !ready(l.ins) {
				continue
			}
			for _, s := range l.outs {
				if s >= 0 && !bound[s] {
					bound[s] = true
					changed = true
				}
			}
		}
	}

	var result *multierror.Error
	unsafe := func(where string, slots []int) {
		for _, s := range slots {
			if s < 0 {
				result = multierror.Append(result, fmt.Errorf("%w: rule %s: %s reads an unnamed variable", ErrUnsafe, cr.name, where))
			} else if !bound[s] {
				result = multierror.Append(result, fmt.Errorf("%w: rule %s: variable %s in %s is never bound",
					ErrUnsafe, cr.name, cr.slotNames[s], where))
			}
		}
	}
	argSlots := func(args []slotArg) []int {
		var out []int
		for _, a := range args {
			if a.kind == argVar {
				out = append(out, a.slot)
			}
		}
		return out
	}
	unsafe("head "+cr.head.text, argSlots(cr.head.args))
	for _, l := range cr.body {
		switch l.kind {
		case KindNot:
			unsafe(l.text, argSlots(l.args))
		case KindMatch, KindLet, KindGuard:
			unsafe(l.text, l.ins)
		}
	}
	return result.ErrorOrNil()
}

// buildSCCs runs Tarjan's algorithm over the relation dependency graph. An
// edge leads from a rule's head relation to every relation in its body, so
// components come out with their dependencies first.
func (p *Plan) buildSCCs() {
	n := len(p.schemas)
	deps := make([][]int, n)
	for _, cr := range p.rules {
		h := cr.head.rel
		for _, l := range cr.body {
			if (l.kind == KindAtom || l.kind == KindNot) && !slices.Contains(deps[h], l.rel) {
				deps[h] = append(deps[h], l.rel)
			}
		}
	}
	for i := range deps {
		slices.Sort(deps[i])
	}

	index := 0
	stack := make([]int, 0, n)
	onStack := make([]bool, n)
	indices := make([]int, n)
	lowlinks := make([]int, n)
	for i := range indices {
		indices[i] = -1
	}
	sccOf := make([]int, n)

	var strongConnect func(v int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range deps[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}

		if lowlinks[v] == indices[v] {
			scc := &sccPlan{}
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				sccOf[w] = len(p.sccs)
				scc.rels = append(scc.rels, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc.rels)
			p.sccs = append(p.sccs, scc)
		}
	}
	for v := 0; v < n; v++ {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}

	for _, cr := range p.rules {
		cr.scc = sccOf[cr.head.rel]
		scc := p.sccs[cr.scc]
		scc.rules = append(scc.rules, cr)
		for i, l := range cr.body {
			if l.kind == KindAtom && sccOf[l.rel] == cr.scc {
				cr.recursive = append(cr.recursive, i)
			}
		}
		if len(cr.recursive) > 0 {
			scc.recursive = true
		}
	}
	for _, scc := range p.sccs {
		if len(scc.rels) > 1 {
			scc.recursive = true
		}
	}
}

func (p *Plan) sccOf(rel int) int {
	for i, scc := range p.sccs {
		if slices.Contains(scc.rels, rel) {
			return i
		}
	}
	return -1
}
