package nominal

import (
	"errors"
	"fmt"
	"sync"
)

const tagScope = 0xB1

// ErrNotFresh is raised when opening a scope would produce a variable that is
// already free in the body. It signals a broken allocator and is never
// tolerated.
var ErrNotFresh = errors.New("nominal: unbind produced a non-fresh variable")

// Scope pairs a binder with a body of type T. The body is stored in locally
// nameless form: occurrences of the binder are Bound(0) at the top level and
// Bound(k) under k nested scopes.
//
// Scope is a value type; the zero value is not meaningful.
type Scope[T Body[T]] struct {
	hint string
	body T
}

// Bind closes every free occurrence of the binder's variable in body.
func Bind[T Body[T]](b Binder, body T) Scope[T] {
	return Scope[T]{hint: b.v.name, body: body.CloseAt(0, b.v)}
}

// Hint returns the display name recorded for the binder.
func (s Scope[T]) Hint() string { return s.hint }

// WithHint returns the same scope with a different display name. The result
// is alpha-equivalent to s.
func (s Scope[T]) WithHint(hint string) Scope[T] {
	s.hint = hint
	return s
}

// Body returns the stored locally nameless body. The bound variable appears
// as Bound(0); use Open or Unbind to get a body with a free variable instead.
func (s Scope[T]) Body() T { return s.body }

// Open instantiates the bound variable with v. It does not check freshness.
func (s Scope[T]) Open(v Var) T { return s.body.OpenAt(0, v) }

// Unbind opens the scope with a variable drawn from o. Opening a structurally
// equal scope again with the same opener yields the same variable, so rules
// that unbind during fixpoint evaluation derive the same facts every time.
// The variable is guaranteed not to be free in the body.
func (s Scope[T]) Unbind(o *Opener) (Binder, T) {
	v := o.open(s.body, s.hint)
	free := NewVarSet()
	s.body.FreeVarsInto(free)
	if free.Contains(v) {
		panic(fmt.Errorf("%w: %#v in scope %s", ErrNotFresh, v, s.String()))
	}
	return NewBinder(v), s.body.OpenAt(0, v)
}

// Map rebuilds the scope with f applied to the stored body. f must preserve
// locally nameless well-formedness, which holds for substitution of locally
// closed terms for free variables.
func (s Scope[T]) Map(f func(T) T) Scope[T] {
	return Scope[T]{hint: s.hint, body: f(s.body)}
}

// CloseAt closes v inside the body one level deeper.
func (s Scope[T]) CloseAt(depth int, v Var) Scope[T] {
	return Scope[T]{hint: s.hint, body: s.body.CloseAt(depth+1, v)}
}

// OpenAt opens the bound variable at depth inside the body one level deeper.
func (s Scope[T]) OpenAt(depth int, v Var) Scope[T] {
	return Scope[T]{hint: s.hint, body: s.body.OpenAt(depth+1, v)}
}

// FreeVarsInto adds the body's free variables. Bound occurrences are never
// free, so nothing needs to be removed.
func (s Scope[T]) FreeVarsInto(set *VarSet) { s.body.FreeVarsInto(set) }

// Hash ignores the hint.
func (s Scope[T]) Hash() uint64 { return Mix(tagScope, s.body.Hash()) }

// Equal is alpha-equivalence of scopes: the binder positions coincide by
// construction, so the bodies are compared structurally.
func (s Scope[T]) Equal(o Scope[T]) bool { return s.body.Equal(o.body) }

// Compare orders scopes by body.
func (s Scope[T]) Compare(o Scope[T]) int { return s.body.Compare(o.body) }

// String renders the scope in a debugging form.
func (s Scope[T]) String() string {
	return fmt.Sprintf("<%s>%s", s.hint, s.body.String())
}

// Allocator issues free-variable identities. Terms built by a parser, a
// generator and the evaluation engine must share an allocator so identities
// never collide.
//
// Allocator is safe for concurrent use.
type Allocator struct {
	mu   sync.Mutex
	next ID
}

// NewAllocator returns an allocator whose first identity is 1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Fresh returns a new free variable with the given display name.
func (a *Allocator) Fresh(name string) Var {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return Var{id: a.next, name: name}
}

// Reserve marks the identities of vars as used, so Fresh never returns a
// variable that collides with them. Bound variables are ignored.
func (a *Allocator) Reserve(vars ...Var) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range vars {
		if !v.bound && v.id > a.next {
			a.next = v.id
		}
	}
}

// Issued returns how many identities the allocator has handed out.
func (a *Allocator) Issued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.next)
}

// Reset forgets every issued identity. Terms created before Reset must not
// be mixed with terms created after it.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = 0
}

// Opener remembers the variable each scope body was opened with during one
// evaluation run. Identities come from a shared Allocator; the memo belongs
// to the run and is dropped with it, or cleared with Reset.
//
// Opener is safe for concurrent use.
type Opener struct {
	alloc *Allocator

	mu     sync.Mutex
	opened map[uint64][]opening
	n      int
}

type opening struct {
	body Term
	v    Var
}

// NewOpener returns an empty opener drawing identities from a.
func NewOpener(a *Allocator) *Opener {
	return &Opener{alloc: a, opened: make(map[uint64][]opening)}
}

// Allocator returns the allocator the opener draws from.
func (o *Opener) Allocator() *Allocator { return o.alloc }

// Len returns the number of distinct bodies opened so far.
func (o *Opener) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.n
}

// Reset forgets every opening. Identities already issued stay issued.
func (o *Opener) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = make(map[uint64][]opening)
	o.n = 0
}

// open returns the variable used to open body, allocating it on first use.
func (o *Opener) open(body Term, hint string) Var {
	h := body.Hash()
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, op := range o.opened[h] {
		if op.body.Equal(body) {
			return op.v
		}
	}
	v := o.alloc.Fresh(hint)
	o.opened[h] = append(o.opened[h], opening{body: body, v: v})
	o.n++
	return v
}
