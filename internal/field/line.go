package field

import (
	"fmt"
	"math/rand"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// Line is a row of cells of degree 2: side 0 faces the lower index, side 1
// the higher one. A ring wraps both ends together.
type Line struct {
	cells[int]
	Length int
	Ring   bool
}

// NewLine creates an open line.
func NewLine(length int, domain wfc.CellDomain) (*Line, error) {
	return newLine(length, false, domain)
}

// NewRing creates a closed ring.
func NewRing(length int, domain wfc.CellDomain) (*Line, error) {
	return newLine(length, true, domain)
}

func newLine(length int, ring bool, domain wfc.CellDomain) (*Line, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSize, length)
	}
	addresses := make([]int, length)
	for i := range addresses {
		addresses[i] = i
	}
	return &Line{cells: newCells(addresses, domain), Length: length, Ring: ring}, nil
}

// Degree returns 2.
func (l *Line) Degree() int {
	return 2
}

// Adjacent returns the previous and next cell.
func (l *Line) Adjacent(i int) []wfc.Neighbor[int] {
	prev, next := i-1, i+1
	if l.Ring {
		prev, next = (i+l.Length-1)%l.Length, (i+1)%l.Length
	}
	return []wfc.Neighbor[int]{
		{Side: 0, Address: prev, Valid: prev >= 0 && prev < l.Length},
		{Side: 1, Address: next, Valid: next >= 0 && next < l.Length},
	}
}

// InitialCell returns the middle cell.
func (l *Line) InitialCell(*rand.Rand) int {
	return l.Length / 2
}
