package wfc

import "fmt"

// ConstraintSet holds one CellDomain per side of a cell: side k describes
// what may sit in the neighbour on side k. It serves both as a module's
// authored adjacency rules and as the per-step projection of a cell onto
// its neighbours.
type ConstraintSet struct {
	sides []CellDomain
}

// NewConstraintSet returns a set of degree sides over size modules with
// nothing allowed anywhere.
func NewConstraintSet(degree, size int) ConstraintSet {
	sides := make([]CellDomain, degree)
	for i := range sides {
		sides[i] = NewCellDomain(size)
	}
	return ConstraintSet{sides: sides}
}

// ConstraintSetOf builds a set from per-side domains. All domains must have
// the same length.
func ConstraintSetOf(sides ...CellDomain) (ConstraintSet, error) {
	for i := 1; i < len(sides); i++ {
		if sides[i].Len() != sides[0].Len() {
			return ConstraintSet{}, fmt.Errorf("%w: side %d has %d slots, side 0 has %d",
				ErrSizeMismatch, i, sides[i].Len(), sides[0].Len())
		}
	}
	out := make([]CellDomain, len(sides))
	for i, s := range sides {
		out[i] = s.Clone()
	}
	return ConstraintSet{sides: out}, nil
}

// Degree returns the number of sides.
func (s ConstraintSet) Degree() int {
	return len(s.sides)
}

// Side returns the domain allowed on side k.
func (s ConstraintSet) Side(k int) CellDomain {
	return s.sides[k]
}

// Clone returns a deep copy.
func (s ConstraintSet) Clone() ConstraintSet {
	out := make([]CellDomain, len(s.sides))
	for i, d := range s.sides {
		out[i] = d.Clone()
	}
	return ConstraintSet{sides: out}
}

// Merge returns the side-wise union of two sets.
func (s ConstraintSet) Merge(other ConstraintSet) (ConstraintSet, error) {
	out := s.Clone()
	if err := out.mergeInPlace(other); err != nil {
		return ConstraintSet{}, err
	}
	return out, nil
}

func (s ConstraintSet) mergeInPlace(other ConstraintSet) error {
	if len(other.sides) != len(s.sides) {
		return fmt.Errorf("%w: merge constraint sets of degree %d and %d", ErrSizeMismatch, len(s.sides), len(other.sides))
	}
	for i := range s.sides {
		if err := s.sides[i].mergeInPlace(other.sides[i]); err != nil {
			return err
		}
	}
	return nil
}

// Rotate returns the constraints of the owning module placed at orientation r.
// Output side i takes input side (r+i) mod D, and its orientations are
// rotated by r as well: turning the module turns both which side each rule
// faces and the relative orientation of what it allows.
func (s ConstraintSet) Rotate(r int) ConstraintSet {
	degree := len(s.sides)
	r = normalizeRotation(r, degree)
	out := make([]CellDomain, degree)
	for i := range out {
		out[i] = s.sides[(r+i)%degree].Rotate(r, degree)
	}
	return ConstraintSet{sides: out}
}

// Equal reports whether both sets allow exactly the same neighbours.
func (s ConstraintSet) Equal(other ConstraintSet) bool {
	if len(s.sides) != len(other.sides) {
		return false
	}
	for i := range s.sides {
		if !s.sides[i].Equal(other.sides[i]) {
			return false
		}
	}
	return true
}

// ConstraintTable is the immutable per-module adjacency table consumed by
// the engine, indexed by module identifier.
type ConstraintTable struct {
	degree int
	sets   []ConstraintSet
}

// NewConstraintTable validates that every set has the same degree and spans
// exactly len(sets) modules.
func NewConstraintTable(sets []ConstraintSet) (*ConstraintTable, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: empty constraint table", ErrSizeMismatch)
	}
	degree := sets[0].Degree()
	if degree == 0 || degree > MaxDegree {
		return nil, fmt.Errorf("%w: unsupported degree %d", ErrSizeMismatch, degree)
	}
	out := make([]ConstraintSet, len(sets))
	for m, set := range sets {
		if set.Degree() != degree {
			return nil, fmt.Errorf("%w: module %d has degree %d, want %d", ErrSizeMismatch, m, set.Degree(), degree)
		}
		for k := 0; k < degree; k++ {
			if set.Side(k).Len() != len(sets) {
				return nil, fmt.Errorf("%w: module %d side %d spans %d modules, want %d",
					ErrSizeMismatch, m, k, set.Side(k).Len(), len(sets))
			}
		}
		out[m] = set.Clone()
	}
	return &ConstraintTable{degree: degree, sets: out}, nil
}

// Degree returns the tessellation degree of the table.
func (t *ConstraintTable) Degree() int {
	return t.degree
}

// Size returns the number of modules.
func (t *ConstraintTable) Size() int {
	return len(t.sets)
}

// Constraints returns the authored constraints of a module at orientation 0.
// The returned set must not be modified.
func (t *ConstraintTable) Constraints(module int) ConstraintSet {
	return t.sets[module]
}

// Project computes the combined constraint a domain imposes on its
// neighbours: for every possible module, its authored constraints rotated by
// each of its possible orientations, all merged together.
func (t *ConstraintTable) Project(domain CellDomain) (ConstraintSet, error) {
	if domain.Len() != len(t.sets) {
		return ConstraintSet{}, fmt.Errorf("%w: domain spans %d modules, table has %d", ErrSizeMismatch, domain.Len(), len(t.sets))
	}
	combined := NewConstraintSet(t.degree, len(t.sets))
	for _, slot := range domain.slots {
		for _, r := range slot.Orientations.Slice() {
			if err := combined.mergeInPlace(t.sets[slot.Module].Rotate(r)); err != nil {
				return ConstraintSet{}, err
			}
		}
	}
	return combined, nil
}

// MaxEntropyDomain returns the domain where every module is possible in
// the given orientations. A nil orientations slice allows every orientation.
func (t *ConstraintTable) MaxEntropyDomain(orientations []OrientationSet) CellDomain {
	d := NewCellDomain(len(t.sets))
	for m := range d.slots {
		if orientations == nil || m >= len(orientations) {
			d.slots[m].Orientations = AllOrientations(t.degree)
		} else {
			d.slots[m].Orientations = orientations[m]
		}
	}
	return d
}
