package wfc

import (
	"fmt"
	"strings"
)

// ModuleDomain pairs a module identifier with the orientations still possible for it.
type ModuleDomain struct {
	Module       int
	Orientations OrientationSet
}

// Possible reports whether any orientation of the module is still allowed.
func (d ModuleDomain) Possible() bool {
	return d.Orientations.Valid()
}

// Union merges the orientations of two domains of the same module.
// It returns false when the module identifiers differ.
func (d ModuleDomain) Union(other ModuleDomain) (ModuleDomain, bool) {
	if d.Module != other.Module {
		return d, false
	}
	return ModuleDomain{Module: d.Module, Orientations: d.Orientations.Union(other.Orientations)}, true
}

// Intersection narrows the orientations of two domains of the same module.
// The result is returned even when empty; ok is false when the identifiers
// differ or no orientation survives.
func (d ModuleDomain) Intersection(other ModuleDomain) (ModuleDomain, bool) {
	if d.Module != other.Module {
		return d, false
	}
	out := ModuleDomain{Module: d.Module, Orientations: d.Orientations.Intersection(other.Orientations)}
	return out, out.Possible()
}

// Rotate rotates the orientation set; the module identifier is unchanged.
func (d ModuleDomain) Rotate(r, degree int) ModuleDomain {
	return ModuleDomain{Module: d.Module, Orientations: d.Orientations.Rotate(r, degree)}
}

// CellDomain is the dense per-cell possibility set. Slot i always carries
// module i, so the length equals the size of the module table.
//
// Count and Entropy are always recomputed from the slots; nothing is cached.
type CellDomain struct {
	slots []ModuleDomain
}

// NewCellDomain returns a domain for size modules with nothing possible.
func NewCellDomain(size int) CellDomain {
	slots := make([]ModuleDomain, size)
	for i := range slots {
		slots[i].Module = i
	}
	return CellDomain{slots: slots}
}

// DomainOf builds a domain of the given size from per-module orientation sets.
// Modules absent from the map are impossible.
func DomainOf(size int, orientations map[int]OrientationSet) CellDomain {
	d := NewCellDomain(size)
	for m, o := range orientations {
		if m >= 0 && m < size {
			d.slots[m].Orientations = o
		}
	}
	return d
}

// Clone returns a deep copy.
func (c CellDomain) Clone() CellDomain {
	slots := make([]ModuleDomain, len(c.slots))
	copy(slots, c.slots)
	return CellDomain{slots: slots}
}

// Len returns the number of slots (the module table size).
func (c CellDomain) Len() int {
	return len(c.slots)
}

// Count returns the number of modules with at least one possible orientation.
func (c CellDomain) Count() int {
	n := 0
	for _, s := range c.slots {
		if s.Possible() {
			n++
		}
	}
	return n
}

// Entropy is the sum of the orientation counts of every possible module.
func (c CellDomain) Entropy() int {
	e := 0
	for _, s := range c.slots {
		e += s.Orientations.Count()
	}
	return e
}

// Slot returns the domain of module i.
func (c CellDomain) Slot(i int) (ModuleDomain, error) {
	if i < 0 || i >= len(c.slots) {
		return ModuleDomain{}, fmt.Errorf("%w: slot %d of %d", ErrIndexOutOfRange, i, len(c.slots))
	}
	return c.slots[i], nil
}

// Orientations returns the orientations still possible for module i,
// or an empty set for an unknown module.
func (c CellDomain) Orientations(module int) OrientationSet {
	if module < 0 || module >= len(c.slots) {
		return 0
	}
	return c.slots[module].Orientations
}

// NthPossible returns the k-th possible slot in slot order.
func (c CellDomain) NthPossible(k int) (ModuleDomain, error) {
	if k >= 0 {
		seen := 0
		for _, s := range c.slots {
			if !s.Possible() {
				continue
			}
			if seen == k {
				return s, nil
			}
			seen++
		}
	}
	return ModuleDomain{}, fmt.Errorf("%w: possible module %d of %d", ErrIndexOutOfRange, k, c.Count())
}

// Possible returns the possible slots in slot order.
func (c CellDomain) Possible() []ModuleDomain {
	out := make([]ModuleDomain, 0, len(c.slots))
	for _, s := range c.slots {
		if s.Possible() {
			out = append(out, s)
		}
	}
	return out
}

// Merge returns the slot-wise union of c and other.
func (c CellDomain) Merge(other CellDomain) (CellDomain, error) {
	out := c.Clone()
	if err := out.mergeInPlace(other); err != nil {
		return CellDomain{}, err
	}
	return out, nil
}

func (c CellDomain) mergeInPlace(other CellDomain) error {
	if len(other.slots) != len(c.slots) {
		return fmt.Errorf("%w: merge %d with %d", ErrSizeMismatch, len(c.slots), len(other.slots))
	}
	for i := range c.slots {
		c.slots[i], _ = c.slots[i].Union(other.slots[i])
	}
	return nil
}

// Intersect returns the slot-wise intersection of c and other. When no
// module survives the narrowed domain is still returned together with
// ErrContradiction.
func (c CellDomain) Intersect(other CellDomain) (CellDomain, error) {
	if len(other.slots) != len(c.slots) {
		return CellDomain{}, fmt.Errorf("%w: intersect %d with %d", ErrSizeMismatch, len(c.slots), len(other.slots))
	}
	out := c.Clone()
	for i := range out.slots {
		out.slots[i], _ = out.slots[i].Intersection(other.slots[i])
	}
	if out.Count() == 0 {
		return out, ErrContradiction
	}
	return out, nil
}

// Rotate rotates every slot's orientations by r.
func (c CellDomain) Rotate(r, degree int) CellDomain {
	out := c.Clone()
	for i := range out.slots {
		out.slots[i] = out.slots[i].Rotate(r, degree)
	}
	return out
}

// Equal reports whether both domains hold the same possibilities.
func (c CellDomain) Equal(other CellDomain) bool {
	if len(c.slots) != len(other.slots) {
		return false
	}
	for i := range c.slots {
		if c.slots[i] != other.slots[i] {
			return false
		}
	}
	return true
}

func (c CellDomain) String() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	for _, s := range c.slots {
		if !s.Possible() {
			continue
		}
		if !first {
			b.WriteString(" ")
		}
		first = false
		fmt.Fprintf(&b, "%d:%s", s.Module, s.Orientations)
	}
	b.WriteString("}")
	return b.String()
}
