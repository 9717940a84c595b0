package engine

import "testing"

func TestAssociativeAddInt64(t *testing.T) {
	add := NewAssociative(int64(0), AddInt64)

	total := add.Fold([]int64{1, 2, 3, 4})
	if total != 10 {
		t.Error("total incorrect", total)
	}
}

func TestAssociativeMinUint64(t *testing.T) {
	min := NewAssociative(^uint64(0), MinUint64)

	v := min.Fold([]uint64{9, 4, 17, 2, 8})
	if v != 2 {
		t.Error("min incorrect", v)
	}
}

func TestAssociativeFoldIsOrderIndependent(t *testing.T) {
	add := NewAssociative(int64(0), AddInt64)

	a := add.Fold([]int64{5, -2, 9, 1})
	b := add.Fold([]int64{9, 1, -2, 5})

	if a != b {
		t.Error("fold not order independent", a, b)
	}
}
