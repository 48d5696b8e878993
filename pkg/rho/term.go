// Package rho implements the terms of a small reflective process calculus
// (the rho-calculus) on top of the nominal binding layer.
//
// Two mutually recursive sorts exist:
//
//	Proc ::= 0 | P | *n | n!(p) | for(n->x){p} | p|q
//	Name ::= x | @(p)
//
// Terms are immutable trees with a precomputed structural hash, so they can be
// used directly as relation values by the datalog package. Equality is
// alpha-equivalence; Compare is a canonical total order used for
// deduplication.
package rho

import (
	"github.com/gitrdm/rhokando/pkg/nominal"
)

// constructor tags, in canonical order
const (
	tagZero byte = iota + 1
	tagPVar
	tagDrop
	tagOutput
	tagInput
	tagPar
	tagNVar
	tagQuote
)

// Term is implemented by both sorts.
type Term interface {
	nominal.Term

	// Depth is 0 for leaves and 1 + the deepest child otherwise.
	Depth() int

	// FreeVarsInto adds the term's free variables to set.
	FreeVarsInto(set *nominal.VarSet)

	tag() byte
}

// Proc is the process sort.
type Proc interface {
	Term

	CloseAt(depth int, v nominal.Var) Proc
	OpenAt(depth int, v nominal.Var) Proc

	// SubstProc replaces free occurrences of the process variable v.
	SubstProc(v nominal.Var, r Proc) Proc

	// SubstName replaces free occurrences of the name variable v.
	//
	// It is not purely structural: where v occurs directly under a drop, *v,
	// and r is a quote @(q), the result is q rather than *@(q). This is the
	// drop-of-quote step of communication folded into substitution. A drop
	// of a quote already present in the term is left alone, so *@(q) and q
	// remain distinct terms.
	SubstName(v nominal.Var, r Name) Proc

	isProc()
}

// Name is the channel sort.
type Name interface {
	Term

	CloseAt(depth int, v nominal.Var) Name
	OpenAt(depth int, v nominal.Var) Name

	// SubstName replaces free occurrences of the name variable v.
	SubstName(v nominal.Var, r Name) Name

	// SubstProc replaces free occurrences of the process variable v inside
	// quoted processes.
	SubstProc(v nominal.Var, r Proc) Name

	isName()
}

// Scope is the binder form used by input.
type Scope = nominal.Scope[Proc]

// --- PZero ---------------------------------------------------------------

// PZero is the inert process 0.
type PZero struct{}

var zeroHash = nominal.Mix(tagZero)

// NewPZero returns the inert process.
func NewPZero() *PZero { return &PZero{} }

func (*PZero) isProc() {}
func (*PZero) tag() byte { return tagZero }
func (*PZero) Depth() int { return 0 }
func (*PZero) Hash() uint64 { return zeroHash }
func (*PZero) FreeVarsInto(*nominal.VarSet) {}
func (p *PZero) CloseAt(int, nominal.Var) Proc { return p }
func (p *PZero) OpenAt(int, nominal.Var) Proc { return p }
func (p *PZero) SubstProc(nominal.Var, Proc) Proc { return p }
func (p *PZero) SubstName(nominal.Var, Name) Proc { return p }
func (p *PZero) String() string { return Print(p) }
func (p *PZero) Equal(o nominal.Term) bool {
	_, ok := o.(*PZero)
	return ok
}
func (p *PZero) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- PVar ----------------------------------------------------------------

// PVar is a process variable.
type PVar struct {
	v nominal.Var
	h uint64
}

// NewPVar wraps v as a process.
func NewPVar(v nominal.Var) *PVar {
	return &PVar{v: v, h: nominal.Mix(tagPVar, v.Hash())}
}

// Var returns the variable.
func (p *PVar) Var() nominal.Var { return p.v }

func (*PVar) isProc() {}
func (*PVar) tag() byte { return tagPVar }
func (*PVar) Depth() int { return 0 }
func (p *PVar) Hash() uint64 { return p.h }

func (p *PVar) FreeVarsInto(set *nominal.VarSet) { set.Add(p.v) }

func (p *PVar) CloseAt(depth int, v nominal.Var) Proc {
	if c := p.v.CloseAt(depth, v); !c.Equal(p.v) {
		return NewPVar(c)
	}
	return p
}

func (p *PVar) OpenAt(depth int, v nominal.Var) Proc {
	if o := p.v.OpenAt(depth, v); !o.Equal(p.v) {
		return NewPVar(o)
	}
	return p
}

func (p *PVar) SubstProc(v nominal.Var, r Proc) Proc {
	if p.v.Equal(v) {
		return r
	}
	return p
}

func (p *PVar) SubstName(nominal.Var, Name) Proc { return p }

func (p *PVar) String() string { return Print(p) }

func (p *PVar) Equal(o nominal.Term) bool {
	q, ok := o.(*PVar)
	return ok && p.v.Equal(q.v)
}

func (p *PVar) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- PDrop ---------------------------------------------------------------

// PDrop runs the process quoted by a name: *n.
type PDrop struct {
	n Name
	h uint64
	d int
}

// NewPDrop builds *n.
func NewPDrop(n Name) *PDrop {
	return &PDrop{n: n, h: nominal.Mix(tagDrop, n.Hash()), d: n.Depth() + 1}
}

// Name returns the dropped name.
func (p *PDrop) Name() Name { return p.n }

func (*PDrop) isProc() {}
func (*PDrop) tag() byte { return tagDrop }
func (p *PDrop) Depth() int { return p.d }
func (p *PDrop) Hash() uint64 { return p.h }

func (p *PDrop) FreeVarsInto(set *nominal.VarSet) { p.n.FreeVarsInto(set) }

func (p *PDrop) CloseAt(depth int, v nominal.Var) Proc { return NewPDrop(p.n.CloseAt(depth, v)) }
func (p *PDrop) OpenAt(depth int, v nominal.Var) Proc { return NewPDrop(p.n.OpenAt(depth, v)) }

func (p *PDrop) SubstProc(v nominal.Var, r Proc) Proc { return NewPDrop(p.n.SubstProc(v, r)) }

// SubstName collapses *v to q when r is @(q); see Proc.SubstName.
func (p *PDrop) SubstName(v nominal.Var, r Name) Proc {
	if nv, ok := p.n.(*NVar); ok && nv.v.Equal(v) {
		if q, ok := r.(*NQuote); ok {
			return q.p
		}
		return NewPDrop(r)
	}
	return NewPDrop(p.n.SubstName(v, r))
}

func (p *PDrop) String() string { return Print(p) }

func (p *PDrop) Equal(o nominal.Term) bool {
	q, ok := o.(*PDrop)
	return ok && p.h == q.h && p.n.Equal(q.n)
}

func (p *PDrop) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- POutput -------------------------------------------------------------

// POutput sends a process on a channel: n!(p).
type POutput struct {
	n Name
	p Proc
	h uint64
	d int
}

// NewPOutput builds n!(p).
func NewPOutput(n Name, p Proc) *POutput {
	return &POutput{
		n: n,
		p: p,
		h: nominal.Mix(tagOutput, n.Hash(), p.Hash()),
		d: 1 + max(n.Depth(), p.Depth()),
	}
}

// Chan returns the channel.
func (p *POutput) Chan() Name { return p.n }

// Payload returns the sent process.
func (p *POutput) Payload() Proc { return p.p }

func (*POutput) isProc() {}
func (*POutput) tag() byte { return tagOutput }
func (p *POutput) Depth() int { return p.d }
func (p *POutput) Hash() uint64 { return p.h }

func (p *POutput) FreeVarsInto(set *nominal.VarSet) {
	p.n.FreeVarsInto(set)
	p.p.FreeVarsInto(set)
}

func (p *POutput) CloseAt(depth int, v nominal.Var) Proc {
	return NewPOutput(p.n.CloseAt(depth, v), p.p.CloseAt(depth, v))
}

func (p *POutput) OpenAt(depth int, v nominal.Var) Proc {
	return NewPOutput(p.n.OpenAt(depth, v), p.p.OpenAt(depth, v))
}

func (p *POutput) SubstProc(v nominal.Var, r Proc) Proc {
	return NewPOutput(p.n.SubstProc(v, r), p.p.SubstProc(v, r))
}

func (p *POutput) SubstName(v nominal.Var, r Name) Proc {
	return NewPOutput(p.n.SubstName(v, r), p.p.SubstName(v, r))
}

func (p *POutput) String() string { return Print(p) }

func (p *POutput) Equal(o nominal.Term) bool {
	q, ok := o.(*POutput)
	return ok && p.h == q.h && p.n.Equal(q.n) && p.p.Equal(q.p)
}

func (p *POutput) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- PInput --------------------------------------------------------------

// PInput receives on a channel and binds the received name: for(n->x){p}.
type PInput struct {
	n Name
	s Scope
	h uint64
	d int
}

// NewPInput builds an input from an existing scope.
func NewPInput(n Name, s Scope) *PInput {
	return &PInput{
		n: n,
		s: s,
		h: nominal.Mix(tagInput, n.Hash(), s.Hash()),
		d: 1 + max(n.Depth(), s.Body().Depth()),
	}
}

// NewPInputBind builds for(n->x){body}, binding the free variable x in body.
func NewPInputBind(n Name, x nominal.Var, body Proc) *PInput {
	return NewPInput(n, nominal.Bind(nominal.NewBinder(x), body))
}

// Chan returns the channel.
func (p *PInput) Chan() Name { return p.n }

// Scope returns the binder and body.
func (p *PInput) Scope() Scope { return p.s }

func (*PInput) isProc() {}
func (*PInput) tag() byte { return tagInput }
func (p *PInput) Depth() int { return p.d }
func (p *PInput) Hash() uint64 { return p.h }

func (p *PInput) FreeVarsInto(set *nominal.VarSet) {
	p.n.FreeVarsInto(set)
	p.s.FreeVarsInto(set)
}

func (p *PInput) CloseAt(depth int, v nominal.Var) Proc {
	return NewPInput(p.n.CloseAt(depth, v), p.s.CloseAt(depth, v))
}

func (p *PInput) OpenAt(depth int, v nominal.Var) Proc {
	return NewPInput(p.n.OpenAt(depth, v), p.s.OpenAt(depth, v))
}

// SubstProc recurses into the body. A binder can never be the substituted
// variable itself (it is stored as an index), which gives shadowing for free.
func (p *PInput) SubstProc(v nominal.Var, r Proc) Proc {
	s := avoidHint(p.s, r)
	return NewPInput(p.n.SubstProc(v, r), s.Map(func(b Proc) Proc { return b.SubstProc(v, r) }))
}

// SubstName recurses into the body the same way SubstProc does.
func (p *PInput) SubstName(v nominal.Var, r Name) Proc {
	s := avoidHint(p.s, r)
	return NewPInput(p.n.SubstName(v, r), s.Map(func(b Proc) Proc { return b.SubstName(v, r) }))
}

func (p *PInput) String() string { return Print(p) }

func (p *PInput) Equal(o nominal.Term) bool {
	q, ok := o.(*PInput)
	return ok && p.h == q.h && p.n.Equal(q.n) && p.s.Equal(q.s)
}

func (p *PInput) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- PPar ----------------------------------------------------------------

// PPar is parallel composition: p|q.
type PPar struct {
	l, r Proc
	h    uint64
	d    int
}

// NewPPar builds p|q.
func NewPPar(l, r Proc) *PPar {
	return &PPar{
		l: l,
		r: r,
		h: nominal.Mix(tagPar, l.Hash(), r.Hash()),
		d: 1 + max(l.Depth(), r.Depth()),
	}
}

// Left returns the left component.
func (p *PPar) Left() Proc { return p.l }

// Right returns the right component.
func (p *PPar) Right() Proc { return p.r }

func (*PPar) isProc() {}
func (*PPar) tag() byte { return tagPar }
func (p *PPar) Depth() int { return p.d }
func (p *PPar) Hash() uint64 { return p.h }

func (p *PPar) FreeVarsInto(set *nominal.VarSet) {
	p.l.FreeVarsInto(set)
	p.r.FreeVarsInto(set)
}

func (p *PPar) CloseAt(depth int, v nominal.Var) Proc {
	return NewPPar(p.l.CloseAt(depth, v), p.r.CloseAt(depth, v))
}

func (p *PPar) OpenAt(depth int, v nominal.Var) Proc {
	return NewPPar(p.l.OpenAt(depth, v), p.r.OpenAt(depth, v))
}

func (p *PPar) SubstProc(v nominal.Var, r Proc) Proc {
	return NewPPar(p.l.SubstProc(v, r), p.r.SubstProc(v, r))
}

func (p *PPar) SubstName(v nominal.Var, r Name) Proc {
	return NewPPar(p.l.SubstName(v, r), p.r.SubstName(v, r))
}

func (p *PPar) String() string { return Print(p) }

func (p *PPar) Equal(o nominal.Term) bool {
	q, ok := o.(*PPar)
	return ok && p.h == q.h && p.l.Equal(q.l) && p.r.Equal(q.r)
}

func (p *PPar) Compare(o nominal.Term) int { return compareTerms(p, o) }

// --- NVar ----------------------------------------------------------------

// NVar is a name variable.
type NVar struct {
	v nominal.Var
	h uint64
}

// NewNVar wraps v as a name.
func NewNVar(v nominal.Var) *NVar {
	return &NVar{v: v, h: nominal.Mix(tagNVar, v.Hash())}
}

// Var returns the variable.
func (n *NVar) Var() nominal.Var { return n.v }

func (*NVar) isName() {}
func (*NVar) tag() byte { return tagNVar }
func (*NVar) Depth() int { return 0 }
func (n *NVar) Hash() uint64 { return n.h }

func (n *NVar) FreeVarsInto(set *nominal.VarSet) { set.Add(n.v) }

func (n *NVar) CloseAt(depth int, v nominal.Var) Name {
	if c := n.v.CloseAt(depth, v); !c.Equal(n.v) {
		return NewNVar(c)
	}
	return n
}

func (n *NVar) OpenAt(depth int, v nominal.Var) Name {
	if o := n.v.OpenAt(depth, v); !o.Equal(n.v) {
		return NewNVar(o)
	}
	return n
}

func (n *NVar) SubstName(v nominal.Var, r Name) Name {
	if n.v.Equal(v) {
		return r
	}
	return n
}

func (n *NVar) SubstProc(nominal.Var, Proc) Name { return n }

func (n *NVar) String() string { return Print(n) }

func (n *NVar) Equal(o nominal.Term) bool {
	m, ok := o.(*NVar)
	return ok && n.v.Equal(m.v)
}

func (n *NVar) Compare(o nominal.Term) int { return compareTerms(n, o) }

// --- NQuote --------------------------------------------------------------

// NQuote turns a process into a name: @(p).
type NQuote struct {
	p Proc
	h uint64
	d int
}

// NewNQuote builds @(p).
func NewNQuote(p Proc) *NQuote {
	return &NQuote{p: p, h: nominal.Mix(tagQuote, p.Hash()), d: p.Depth() + 1}
}

// Proc returns the quoted process.
func (n *NQuote) Proc() Proc { return n.p }

func (*NQuote) isName() {}
func (*NQuote) tag() byte { return tagQuote }
func (n *NQuote) Depth() int { return n.d }
func (n *NQuote) Hash() uint64 { return n.h }

func (n *NQuote) FreeVarsInto(set *nominal.VarSet) { n.p.FreeVarsInto(set) }

func (n *NQuote) CloseAt(depth int, v nominal.Var) Name { return NewNQuote(n.p.CloseAt(depth, v)) }
func (n *NQuote) OpenAt(depth int, v nominal.Var) Name { return NewNQuote(n.p.OpenAt(depth, v)) }

func (n *NQuote) SubstName(v nominal.Var, r Name) Name { return NewNQuote(n.p.SubstName(v, r)) }
func (n *NQuote) SubstProc(v nominal.Var, r Proc) Name { return NewNQuote(n.p.SubstProc(v, r)) }

func (n *NQuote) String() string { return Print(n) }

func (n *NQuote) Equal(o nominal.Term) bool {
	m, ok := o.(*NQuote)
	return ok && n.h == m.h && n.p.Equal(m.p)
}

func (n *NQuote) Compare(o nominal.Term) int { return compareTerms(n, o) }
