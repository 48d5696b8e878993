// Package nominal provides the binding layer shared by every term sort:
// free and bound variables, binders, scopes and a run-scoped identity
// allocator.
//
// # Representation
//
// Scopes use a locally nameless representation. Inside a scope body the
// variable bound by the scope is a Bound variable carrying a de Bruijn index
// (0 for the nearest enclosing scope). Everything else is a Free variable
// carrying an opaque identity. Two consequences follow:
//   - alpha-equivalence is plain structural equality on the stored form, and
//   - substituting a free variable can never capture, because bound
//     occurrences are not names at all.
//
// Display names ("hints") travel with binders and free variables so printers
// can reproduce readable text, but they never take part in equality.
package nominal

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
)

// ID is the opaque identity of a free variable. IDs are issued by an
// Allocator and are unique within one run.
type ID uint64

// Var is either a Free variable (identity plus optional display name) or a
// Bound variable (a de Bruijn index that is only meaningful inside an open
// Scope). Var is a small value type and is safe to copy.
type Var struct {
	id    ID
	name  string
	index int
	bound bool
}

// Free constructs a free variable. Most callers should obtain variables from
// Allocator.Fresh instead so identities stay unique.
func Free(id ID, name string) Var {
	return Var{id: id, name: name}
}

// boundAt constructs the bound variable for de Bruijn index i.
func boundAt(i int, hint string) Var {
	return Var{index: i, name: hint, bound: true}
}

// ErrBoundVar reports a bound variable used where a free one is required.
var ErrBoundVar = errors.New("nominal: bound variable used outside its scope")

// IsFree reports whether v is a free variable.
func (v Var) IsFree() bool { return !v.bound }

// IsBound reports whether v is a bound (de Bruijn) variable.
func (v Var) IsBound() bool { return v.bound }

// ID returns the identity of a free variable. It is zero for bound variables.
func (v Var) ID() ID { return v.id }

// Name returns the display name, which may be empty.
func (v Var) Name() string { return v.name }

// Index returns the de Bruijn index of a bound variable.
func (v Var) Index() int { return v.index }

// Equal compares identities: free variables by ID (display names ignored),
// bound variables by index. A free variable never equals a bound one.
func (v Var) Equal(o Var) bool {
	if v.bound != o.bound {
		return false
	}
	if v.bound {
		return v.index == o.index
	}
	return v.id == o.id
}

// Hash returns an identity hash. It makes Var usable as a go-set Hasher.
func (v Var) Hash() uint64 {
	if v.bound {
		return 1<<63 | uint64(v.index)
	}
	return uint64(v.id)
}

// Compare orders variables canonically: free before bound, then by ID or
// index.
func (v Var) Compare(o Var) int {
	switch {
	case v.bound != o.bound:
		if v.bound {
			return 1
		}
		return -1
	case v.bound:
		return cmp.Compare(v.index, o.index)
	default:
		return cmp.Compare(v.id, o.id)
	}
}

// String renders the display name when present. Free variables without a
// name render as _<id>, bound ones as #<index>.
func (v Var) String() string {
	switch {
	case v.bound:
		return "#" + strconv.Itoa(v.index)
	case v.name != "":
		return v.name
	default:
		return "_" + strconv.FormatUint(uint64(v.id), 10)
	}
}

// GoString includes the identity, which String hides.
func (v Var) GoString() string {
	if v.bound {
		return fmt.Sprintf("nominal.Bound(%d)", v.index)
	}
	return fmt.Sprintf("nominal.Free(%d, %q)", v.id, v.name)
}

// CloseAt turns v into the bound variable at depth when it is the free
// variable target. Any other variable is returned unchanged.
func (v Var) CloseAt(depth int, target Var) Var {
	if !v.bound && v.id == target.id {
		return boundAt(depth, target.name)
	}
	return v
}

// OpenAt replaces the bound variable at depth with the free variable with.
func (v Var) OpenAt(depth int, with Var) Var {
	if v.bound && v.index == depth {
		return with
	}
	return v
}

// WithName returns a copy of v carrying a different display name.
func (v Var) WithName(name string) Var {
	v.name = name
	return v
}

// Binder marks the place where a free variable becomes bound. It always
// wraps exactly one free variable.
type Binder struct {
	v Var
}

// NewBinder wraps v. It panics when v is bound: a binder over a bound
// variable is a construction bug, never a user error.
func NewBinder(v Var) Binder {
	if v.bound {
		panic(fmt.Errorf("%w: binder over %v", ErrBoundVar, v.GoString()))
	}
	return Binder{v: v}
}

// Var returns the wrapped free variable.
func (b Binder) Var() Var { return b.v }

// String renders the binder's display name.
func (b Binder) String() string { return b.v.String() }
