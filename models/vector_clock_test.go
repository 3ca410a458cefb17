package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorClock_Compare(t *testing.T) {
	tests := []struct {
		name  string
		a, b  VectorClock
		order ClockOrder
	}{
		{
			name:  "identical clocks",
			a:     VectorClock{"A": 5, "B": 3},
			b:     VectorClock{"A": 5, "B": 3},
			order: ClockIdentical,
		},
		{
			name:  "both empty",
			a:     VectorClock{},
			b:     VectorClock{},
			order: ClockIdentical,
		},
		{
			name:  "receiver strictly behind",
			a:     VectorClock{"A": 5, "B": 3},
			b:     VectorClock{"A": 5, "B": 4},
			order: ClockBefore,
		},
		{
			name:  "receiver strictly ahead",
			a:     VectorClock{"A": 6, "B": 4},
			b:     VectorClock{"A": 5, "B": 4},
			order: ClockAfter,
		},
		{
			name:  "concurrent edits",
			a:     VectorClock{"A": 6, "B": 3},
			b:     VectorClock{"A": 5, "B": 4},
			order: ClockConcurrent,
		},
		{
			name:  "missing entry counts as zero",
			a:     VectorClock{"A": 1},
			b:     VectorClock{"A": 1, "B": 2},
			order: ClockBefore,
		},
		{
			name:  "disjoint devices are concurrent",
			a:     VectorClock{"A": 1},
			b:     VectorClock{"B": 1},
			order: ClockConcurrent,
		},
		{
			name:  "empty before non-empty",
			a:     VectorClock{},
			b:     VectorClock{"A": 1},
			order: ClockBefore,
		},
		{
			name:  "nil behaves as empty",
			a:     nil,
			b:     VectorClock{"A": 1},
			order: ClockBefore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.order, tt.a.Compare(tt.b))
		})
	}
}

// Compare must be antisymmetric: swapping the operands maps before to after
// and leaves identical and concurrent fixed.
func TestVectorClock_Compare_Inverse(t *testing.T) {
	inverse := map[ClockOrder]ClockOrder{
		ClockIdentical:  ClockIdentical,
		ClockBefore:     ClockAfter,
		ClockAfter:      ClockBefore,
		ClockConcurrent: ClockConcurrent,
	}

	pairs := []struct{ a, b VectorClock }{
		{VectorClock{"A": 5, "B": 3}, VectorClock{"A": 5, "B": 3}},
		{VectorClock{"A": 5, "B": 3}, VectorClock{"A": 5, "B": 4}},
		{VectorClock{"A": 6, "B": 3}, VectorClock{"A": 5, "B": 4}},
		{VectorClock{}, VectorClock{"A": 1}},
	}

	for _, p := range pairs {
		got := p.a.Compare(p.b)
		assert.Equal(t, inverse[got], p.b.Compare(p.a))
	}
}

func TestVectorClock_Merge(t *testing.T) {
	a := VectorClock{"A": 6, "B": 3}
	b := VectorClock{"A": 5, "B": 4, "C": 1}

	merged := a.Merge(b)

	require.Equal(t, VectorClock{"A": 6, "B": 4, "C": 1}, merged)

	// The merge dominates both inputs.
	assert.Equal(t, ClockAfter, merged.Compare(VectorClock{"A": 6, "B": 3}))
	assert.Equal(t, ClockAfter, merged.Compare(VectorClock{"A": 5, "B": 4}))
}

func TestVectorClock_Merge_Laws(t *testing.T) {
	a := VectorClock{"A": 2, "B": 7}
	b := VectorClock{"A": 4, "C": 1}
	c := VectorClock{"B": 9}

	assert.Equal(t, a.Merge(b), b.Merge(a), "commutative")
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)), "associative")
	assert.Equal(t, a, a.Merge(a), "idempotent")
}

func TestVectorClock_Increment(t *testing.T) {
	original := VectorClock{"A": 1}

	bumped := original.Increment("A")
	assert.Equal(t, int64(2), bumped["A"])
	assert.Equal(t, int64(1), original["A"], "receiver must not mutate")

	fresh := VectorClock(nil).Increment("B")
	assert.Equal(t, VectorClock{"B": 1}, fresh)

	assert.Equal(t, ClockAfter, bumped.Compare(original))
}

func TestVectorClock_Clone_Independent(t *testing.T) {
	original := VectorClock{"A": 1}
	clone := original.Clone()
	clone["A"] = 99

	assert.Equal(t, int64(1), original["A"])
}
