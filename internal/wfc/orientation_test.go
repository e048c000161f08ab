package wfc

import (
	"errors"
	"testing"
)

func TestOrientationSetBasics(t *testing.T) {
	o := Orientations(0, 2, 5)

	if got := o.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
	if got := o.First(); got != 0 {
		t.Errorf("First() = %d, want 0", got)
	}
	if !o.Valid() {
		t.Error("Valid() = false, want true")
	}
	if OrientationSet(0).Valid() {
		t.Error("empty set should not be valid")
	}
	if got := OrientationSet(0).First(); got != -1 {
		t.Errorf("empty First() = %d, want -1", got)
	}
	if !o.Has(2) || o.Has(1) {
		t.Errorf("Has() wrong for %v", o)
	}
}

func TestOrientationSetNth(t *testing.T) {
	o := Orientations(1, 3, 4)

	tests := []struct {
		k    int
		want int
	}{
		{0, 1},
		{1, 3},
		{2, 4},
	}
	for _, tc := range tests {
		got, err := o.Nth(tc.k)
		if err != nil {
			t.Fatalf("Nth(%d) returned error: %v", tc.k, err)
		}
		if got != tc.want {
			t.Errorf("Nth(%d) = %d, want %d", tc.k, got, tc.want)
		}
	}

	for _, k := range []int{-1, 3, 10} {
		if _, err := o.Nth(k); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Nth(%d) error = %v, want ErrIndexOutOfRange", k, err)
		}
	}
}

func TestOrientationSetRotate(t *testing.T) {
	tests := []struct {
		name   string
		in     OrientationSet
		r      int
		degree int
		want   OrientationSet
	}{
		{"hex by one", Orientations(0), 1, 6, Orientations(1)},
		{"hex wraps", Orientations(5), 1, 6, Orientations(0)},
		{"hex by three", Orientations(0, 4), 3, 6, Orientations(3, 1)},
		{"square wraps", Orientations(3), 2, 4, Orientations(1)},
		{"zero rotation", Orientations(1, 2), 0, 6, Orientations(1, 2)},
		{"negative rotation", Orientations(0), -1, 6, Orientations(5)},
		{"full turn", Orientations(2), 6, 6, Orientations(2)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Rotate(tc.r, tc.degree); got != tc.want {
				t.Errorf("Rotate(%d) = %v, want %v", tc.r, got, tc.want)
			}
		})
	}
}

func TestOrientationSetRotateRoundTrip(t *testing.T) {
	for _, degree := range []int{2, 4, 6, 8} {
		full := AllOrientations(degree)
		for x := OrientationSet(0); x <= full; x++ {
			for r := 0; r < degree; r++ {
				if got := x.Rotate(r, degree).Rotate(degree-r, degree); got != x {
					t.Fatalf("degree %d: Rotate(Rotate(%v, %d), %d) = %v", degree, x, r, degree-r, got)
				}
			}
		}
	}
}

func TestOrientationSetAlgebra(t *testing.T) {
	a := Orientations(0, 1, 2)
	b := Orientations(2, 3)

	if got := a.Union(b); got != Orientations(0, 1, 2, 3) {
		t.Errorf("Union = %v", got)
	}
	if got := a.Intersection(b); got != Orientations(2) {
		t.Errorf("Intersection = %v", got)
	}
	if a.Intersection(b) != b.Intersection(a) {
		t.Error("Intersection should be commutative")
	}
	if a.Union(a) != a || a.Intersection(a) != a {
		t.Error("Union/Intersection with self should be identity")
	}
	if Orientations(0).Intersection(Orientations(1)).Valid() {
		t.Error("disjoint intersection should be invalid")
	}
}

func TestAllOrientations(t *testing.T) {
	if got := AllOrientations(6); got != OrientationSet(0x3F) {
		t.Errorf("AllOrientations(6) = %b, want 111111", got)
	}
	if got := AllOrientations(MaxDegree).Count(); got != MaxDegree {
		t.Errorf("AllOrientations(MaxDegree).Count() = %d", got)
	}
}
