package field

import (
	"fmt"
	"math/rand"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// Coord is a square grid address.
type Coord struct {
	X, Y int
}

func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Grid is a width x height square field of degree 4. Side indices follow
// Direction: north, east, south, west.
type Grid struct {
	cells[Coord]
	Width, Height int
}

// NewGrid creates a grid where every cell starts with domain.
func NewGrid(width, height int, domain wfc.CellDomain) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	addresses := make([]Coord, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			addresses = append(addresses, Coord{X: x, Y: y})
		}
	}
	return &Grid{
		cells:  newCells(addresses, domain),
		Width:  width,
		Height: height,
	}, nil
}

// Degree returns 4.
func (g *Grid) Degree() int {
	return 4
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Adjacent returns the four neighbours of c in Direction order.
func (g *Grid) Adjacent(c Coord) []wfc.Neighbor[Coord] {
	out := make([]wfc.Neighbor[Coord], 0, 4)
	for _, dir := range AllDirections() {
		n := neighborCoords(c, dir)
		out = append(out, wfc.Neighbor[Coord]{Side: int(dir), Address: n, Valid: g.InBounds(n)})
	}
	return out
}

// InitialCell returns the centre of the grid.
func (g *Grid) InitialCell(*rand.Rand) Coord {
	return Coord{X: g.Width / 2, Y: g.Height / 2}
}

// neighborCoords returns the coordinates of a neighbor in the given direction
func neighborCoords(c Coord, dir Direction) Coord {
	switch dir {
	case North:
		return Coord{X: c.X, Y: c.Y - 1}
	case South:
		return Coord{X: c.X, Y: c.Y + 1}
	case East:
		return Coord{X: c.X + 1, Y: c.Y}
	case West:
		return Coord{X: c.X - 1, Y: c.Y}
	}
	return c
}
