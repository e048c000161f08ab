package wfc

import (
	"fmt"
	"math/rand"
)

// CollapsedPosition is the module and orientation a cell resolved to.
type CollapsedPosition struct {
	Module      int
	Orientation int
}

// Cell is the mutable solver state at one field address. Its domain only
// ever shrinks; once collapsed it never changes again.
type Cell[A comparable] struct {
	address     A
	domain      CellDomain
	module      int
	orientation int
	heapIndex   int
}

// NewCell creates an uncollapsed cell, usually from a max-entropy domain.
func NewCell[A comparable](address A, domain CellDomain) *Cell[A] {
	return &Cell[A]{
		address:     address,
		domain:      domain.Clone(),
		module:      -1,
		orientation: -1,
		heapIndex:   -1,
	}
}

// RestoreCell creates a cell that is already collapsed, for replaying
// partially solved fields.
func RestoreCell[A comparable](address A, size, module, orientation int) (*Cell[A], error) {
	if module < 0 || module >= size {
		return nil, fmt.Errorf("%w: module %d of %d", ErrIndexOutOfRange, module, size)
	}
	if orientation < 0 || orientation >= MaxDegree {
		return nil, fmt.Errorf("%w: orientation %d", ErrIndexOutOfRange, orientation)
	}
	c := NewCell(address, NewCellDomain(size))
	c.pin(module, orientation)
	return c, nil
}

// Address returns the field address of the cell.
func (c *Cell[A]) Address() A {
	return c.address
}

// Domain returns a copy of the current possibility set.
func (c *Cell[A]) Domain() CellDomain {
	return c.domain.Clone()
}

// Collapsed reports whether the cell resolved to a single module.
func (c *Cell[A]) Collapsed() bool {
	return c.module != -1
}

// Entropy is the domain entropy while uncollapsed and 0 afterwards.
func (c *Cell[A]) Entropy() int {
	if c.Collapsed() {
		return 0
	}
	return c.domain.Entropy()
}

// Position returns the resolved module and orientation.
func (c *Cell[A]) Position() (CollapsedPosition, bool) {
	if !c.Collapsed() {
		return CollapsedPosition{Module: -1, Orientation: -1}, false
	}
	return CollapsedPosition{Module: c.module, Orientation: c.orientation}, true
}

// Collapse resolves the cell to the k-th possible module and the n-th of
// that module's remaining orientations.
func (c *Cell[A]) Collapse(possibleIndex, ordinal int) (CollapsedPosition, error) {
	if c.Collapsed() {
		return CollapsedPosition{}, fmt.Errorf("%w at %v", ErrAlreadyCollapsed, c.address)
	}
	slot, err := c.domain.NthPossible(possibleIndex)
	if err != nil {
		return CollapsedPosition{}, fmt.Errorf("collapse %v: %w", c.address, err)
	}
	orientation, err := slot.Orientations.Nth(ordinal)
	if err != nil {
		return CollapsedPosition{}, fmt.Errorf("collapse %v: %w", c.address, err)
	}
	c.pin(slot.Module, orientation)
	return CollapsedPosition{Module: slot.Module, Orientation: orientation}, nil
}

// CollapseRandom picks a uniformly random possible module, then a uniformly
// random orientation of it.
func (c *Cell[A]) CollapseRandom(rng *rand.Rand) (CollapsedPosition, error) {
	if c.Collapsed() {
		return CollapsedPosition{}, fmt.Errorf("%w at %v", ErrAlreadyCollapsed, c.address)
	}
	count := c.domain.Count()
	if count == 0 {
		return CollapsedPosition{}, fmt.Errorf("%w at %v", ErrContradiction, c.address)
	}
	k := rng.Intn(count)
	slot, err := c.domain.NthPossible(k)
	if err != nil {
		return CollapsedPosition{}, err
	}
	return c.Collapse(k, rng.Intn(slot.Orientations.Count()))
}

// CollapseToModule collapses to module with a random remaining orientation.
// When the module is no longer possible it falls back to CollapseRandom.
func (c *Cell[A]) CollapseToModule(module int, rng *rand.Rand) (CollapsedPosition, error) {
	if c.Collapsed() {
		return CollapsedPosition{}, fmt.Errorf("%w at %v", ErrAlreadyCollapsed, c.address)
	}
	orientations := c.domain.Orientations(module)
	if !orientations.Valid() {
		return c.CollapseRandom(rng)
	}
	return c.Collapse(c.possibleIndexOf(module), rng.Intn(orientations.Count()))
}

// AddConstraint intersects the domain with incoming and reports whether the
// entropy changed. Collapsed cells ignore constraints. If nothing would
// survive, the domain is left untouched and ErrContradiction is returned.
func (c *Cell[A]) AddConstraint(incoming CellDomain) (bool, error) {
	if c.Collapsed() {
		return false, nil
	}
	before := c.domain.Entropy()
	narrowed, err := c.domain.Intersect(incoming)
	if err != nil {
		return false, fmt.Errorf("constrain %v: %w", c.address, err)
	}
	c.domain = narrowed
	return narrowed.Entropy() != before, nil
}

// HeapIndex returns the slot of the cell in the engine's heap, or -1.
func (c *Cell[A]) HeapIndex() int {
	return c.heapIndex
}

// SetHeapIndex is maintained by the heap.
func (c *Cell[A]) SetHeapIndex(i int) {
	c.heapIndex = i
}

func (c *Cell[A]) possibleIndexOf(module int) int {
	k := 0
	for m := 0; m < module; m++ {
		if c.domain.Orientations(m).Valid() {
			k++
		}
	}
	return k
}

func (c *Cell[A]) pin(module, orientation int) {
	size := c.domain.Len()
	c.domain = NewCellDomain(size)
	c.domain.slots[module].Orientations = Orientations(orientation)
	c.module = module
	c.orientation = orientation
}
