package generator

import (
	"errors"
	"fmt"

	"github.com/lawnchairsociety/wavecollapse/internal/field"
	"github.com/lawnchairsociety/wavecollapse/internal/module"
	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// ErrInvalidSolve is returned by Verify when a result breaks the table.
var ErrInvalidSolve = errors.New("generator: solve violates constraint table")

// Verify rebuilds the field of r from its placements and checks every
// adjacent pair against table. It catches stored solves made with an older
// version of a module set.
func Verify(table *module.Table, r *Result) error {
	domain := table.MaxEntropyDomain()
	byAddress := make(map[string]Placement, len(r.Cells))
	for _, c := range r.Cells {
		byAddress[c.Address] = c
	}

	switch r.Shape {
	case ShapeSquare:
		grid, err := field.NewGrid(r.Width, r.Height, domain)
		if err != nil {
			return err
		}
		return verifyField[field.Coord](grid, table, byAddress)
	case ShapeHex:
		region, err := field.NewHexRegion(r.Radius, domain)
		if err != nil {
			return err
		}
		return verifyField[field.Hex](region, table, byAddress)
	case ShapeLine, ShapeRing:
		newLine := field.NewLine
		if r.Shape == ShapeRing {
			newLine = field.NewRing
		}
		line, err := newLine(r.Width, domain)
		if err != nil {
			return err
		}
		return verifyField[int](line, table, byAddress)
	default:
		return fmt.Errorf("%w: %q", field.ErrUnknownShape, r.Shape)
	}
}

type restorable[A comparable] interface {
	wfc.Field[A]
	Restore(address A, module, orientation int) error
	Positions() map[A]wfc.CollapsedPosition
}

func verifyField[A comparable](f restorable[A], table *module.Table, byAddress map[string]Placement) error {
	if len(byAddress) != f.Count() {
		return fmt.Errorf("%w: %d cells for a field of %d", ErrInvalidSolve, len(byAddress), f.Count())
	}

	for _, a := range f.Addresses() {
		p, ok := byAddress[fmt.Sprint(a)]
		if !ok {
			return fmt.Errorf("%w: %v", wfc.ErrNotCollapsed, a)
		}
		if err := f.Restore(a, p.Module, p.Orientation); err != nil {
			return fmt.Errorf("cell %v: %w", a, err)
		}
	}

	positions := f.Positions()
	for _, a := range f.Addresses() {
		cell, _ := f.Cell(a)
		projected, err := table.Project(cell.Domain())
		if err != nil {
			return err
		}
		for _, n := range f.Adjacent(a) {
			if !n.Valid {
				continue
			}
			pos := positions[n.Address]
			if !projected.Side(n.Side).Orientations(pos.Module).Has(pos.Orientation) {
				return fmt.Errorf("%w: %s at %v does not allow %s/%d on side %d",
					ErrInvalidSolve, table.Module(positions[a].Module).Name, a,
					table.Module(pos.Module).Name, pos.Orientation, n.Side)
			}
		}
	}
	return nil
}
