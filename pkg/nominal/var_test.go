package nominal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVar_Equality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Var
		equal bool
	}{
		{"same id different names", Free(1, "a"), Free(1, "b"), true},
		{"different ids same name", Free(1, "a"), Free(2, "a"), false},
		{"same index", boundAt(0, "x"), boundAt(0, "y"), true},
		{"different index", boundAt(0, "x"), boundAt(1, "x"), false},
		{"free never equals bound", Free(0, ""), boundAt(0, ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.equal, tt.a.Equal(tt.b))
			require.Equal(t, tt.equal, tt.a.Compare(tt.b) == 0)
			if tt.equal {
				require.Equal(t, tt.a.Hash(), tt.b.Hash())
			}
		})
	}
}

func TestVar_String(t *testing.T) {
	require.Equal(t, "a", Free(3, "a").String())
	require.Equal(t, "_3", Free(3, "").String())
	require.Equal(t, "#2", boundAt(2, "x").String())
	require.Equal(t, `nominal.Free(3, "a")`, Free(3, "a").GoString())
}

func TestVar_CloseOpen(t *testing.T) {
	x, y := Free(1, "x"), Free(2, "y")

	c := x.CloseAt(2, x)
	require.True(t, c.IsBound())
	require.Equal(t, 2, c.Index())
	require.Equal(t, y, y.CloseAt(2, x))

	require.Equal(t, x, c.OpenAt(2, x))
	require.Equal(t, c, c.OpenAt(1, x))
}

func TestVarSet(t *testing.T) {
	s := NewVarSet()
	s.Add(Free(3, "c"))
	s.Add(Free(1, "a"))
	s.Add(Free(1, "renamed"))
	s.Add(boundAt(0, "x"))

	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains(Free(1, "")))
	require.False(t, s.Contains(boundAt(0, "x")))
	require.True(t, s.HasName("c"))
	require.False(t, s.HasName("x"))

	sorted := s.Sorted()
	require.Len(t, sorted, 2)
	require.Equal(t, ID(1), sorted[0].ID())
	require.Equal(t, ID(3), sorted[1].ID())
}
