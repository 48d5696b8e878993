package nominal

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Term is the value contract shared by every sort and by every value stored
// in a relation. Implementations are immutable.
type Term interface {
	// Hash is a structural hash, consistent with Equal.
	Hash() uint64

	// Equal is alpha-equivalence. For locally nameless terms this is plain
	// structural equality.
	Equal(other Term) bool

	// Compare is the canonical total order used for deduplication. It
	// returns 0 exactly when Equal is true.
	Compare(other Term) int

	// String renders the term for humans.
	String() string
}

// Body is the constraint a scope body must satisfy: a Term that can close a
// free variable into a bound index and open a bound index back into a free
// variable, at a given binding depth.
type Body[T any] interface {
	Term

	// CloseAt replaces every free occurrence of v by the bound variable at
	// depth (depth grows by one under each nested scope).
	CloseAt(depth int, v Var) T

	// OpenAt replaces the bound variable at depth by the free variable v.
	OpenAt(depth int, v Var) T

	// FreeVarsInto adds every free variable of the term to set.
	FreeVarsInto(set *VarSet)
}

// Mix folds a constructor tag and child hashes into one structural hash.
func Mix(tag byte, parts ...uint64) uint64 {
	var buf [1 + 8*4]byte
	b := append(buf[:0], tag)
	for _, p := range parts {
		b = binary.LittleEndian.AppendUint64(b, p)
	}
	return xxhash.Sum64(b)
}

// MixString hashes a tag with a string payload.
func MixString(tag byte, s string) uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{tag})
	_, _ = d.WriteString(s)
	return d.Sum64()
}
