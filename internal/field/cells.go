// Package field provides tessellations the collapse engine can solve:
// lines, rings, square grids and hexagonal regions.
package field

import "github.com/lawnchairsociety/wavecollapse/internal/wfc"

// cells is the address-ordered cell table shared by every field shape.
type cells[A comparable] struct {
	order []A
	byKey map[A]*wfc.Cell[A]
}

func newCells[A comparable](addresses []A, domain wfc.CellDomain) cells[A] {
	c := cells[A]{
		order: addresses,
		byKey: make(map[A]*wfc.Cell[A], len(addresses)),
	}
	for _, a := range addresses {
		c.byKey[a] = wfc.NewCell(a, domain)
	}
	return c
}

// Count returns the number of cells.
func (c cells[A]) Count() int {
	return len(c.order)
}

// Addresses returns every address in a stable order.
func (c cells[A]) Addresses() []A {
	out := make([]A, len(c.order))
	copy(out, c.order)
	return out
}

// Cell returns the solver state at address.
func (c cells[A]) Cell(address A) (*wfc.Cell[A], bool) {
	cell, ok := c.byKey[address]
	return cell, ok
}

// Restore replaces the cell at address with one already collapsed.
func (c cells[A]) Restore(address A, module, orientation int) error {
	cur, ok := c.byKey[address]
	if !ok {
		return wfc.ErrUnknownAddress
	}
	cell, err := wfc.RestoreCell(address, cur.Domain().Len(), module, orientation)
	if err != nil {
		return err
	}
	c.byKey[address] = cell
	return nil
}

// Positions returns the collapsed position of every collapsed cell.
func (c cells[A]) Positions() map[A]wfc.CollapsedPosition {
	out := make(map[A]wfc.CollapsedPosition, len(c.order))
	for _, a := range c.order {
		if pos, ok := c.byKey[a].Position(); ok {
			out[a] = pos
		}
	}
	return out
}
