package wfc

import (
	"fmt"
	"math/bits"
)

// MaxDegree is the largest tessellation degree an OrientationSet can encode.
const MaxDegree = 32

// OrientationSet is a bitmask of permitted orientations; bit i set means
// orientation i is allowed. Values are immutable, every operation returns a new set.
type OrientationSet uint32

// Orientations builds a set from a list of orientation indices.
func Orientations(indices ...int) OrientationSet {
	var o OrientationSet
	for _, i := range indices {
		o |= 1 << uint(i)
	}
	return o
}

// AllOrientations returns the set containing every orientation for the given degree.
func AllOrientations(degree int) OrientationSet {
	return OrientationSet(degreeMask(degree))
}

func degreeMask(degree int) uint32 {
	if degree >= MaxDegree {
		return ^uint32(0)
	}
	return (uint32(1) << uint(degree)) - 1
}

// Union returns o | other.
func (o OrientationSet) Union(other OrientationSet) OrientationSet {
	return o | other
}

// Intersection returns o & other.
func (o OrientationSet) Intersection(other OrientationSet) OrientationSet {
	return o & other
}

// Rotate performs a circular left rotation by r over degree bits.
func (o OrientationSet) Rotate(r, degree int) OrientationSet {
	r = normalizeRotation(r, degree)
	if r == 0 {
		return o
	}
	x := uint32(o) & degreeMask(degree)
	return OrientationSet(((x << uint(r)) | (x >> uint(degree-r))) & degreeMask(degree))
}

// Count returns the number of permitted orientations.
func (o OrientationSet) Count() int {
	return bits.OnesCount32(uint32(o))
}

// Valid reports whether at least one orientation is permitted.
func (o OrientationSet) Valid() bool {
	return o != 0
}

// Has reports whether orientation i is permitted.
func (o OrientationSet) Has(i int) bool {
	return i >= 0 && i < MaxDegree && o&(1<<uint(i)) != 0
}

// First returns the lowest permitted orientation, or -1 for an empty set.
func (o OrientationSet) First() int {
	if o == 0 {
		return -1
	}
	return bits.TrailingZeros32(uint32(o))
}

// Nth returns the k-th permitted orientation counting from the lowest bit.
func (o OrientationSet) Nth(k int) (int, error) {
	if k < 0 || k >= o.Count() {
		return -1, fmt.Errorf("%w: orientation ordinal %d of %d", ErrIndexOutOfRange, k, o.Count())
	}
	x := uint32(o)
	for ; k > 0; k-- {
		x &= x - 1
	}
	return bits.TrailingZeros32(x), nil
}

// Slice lists the permitted orientations in ascending order.
func (o OrientationSet) Slice() []int {
	out := make([]int, 0, o.Count())
	for x := uint32(o); x != 0; x &= x - 1 {
		out = append(out, bits.TrailingZeros32(x))
	}
	return out
}

func (o OrientationSet) String() string {
	return fmt.Sprintf("%v", o.Slice())
}

func normalizeRotation(r, degree int) int {
	if degree <= 0 {
		return 0
	}
	r %= degree
	if r < 0 {
		r += degree
	}
	return r
}
