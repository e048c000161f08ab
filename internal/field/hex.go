package field

import (
	"fmt"
	"math/rand"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// Hex is an axial hex coordinate.
type Hex struct {
	Q, R int
}

// S returns the third cube coordinate.
func (h Hex) S() int {
	return -h.Q - h.R
}

func (h Hex) String() string {
	return fmt.Sprintf("%d,%d", h.Q, h.R)
}

// HexDirections are the six neighbour offsets; side i and side i+3 face
// each other.
var HexDirections = [6]Hex{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbor returns the adjacent coordinate on side.
func (h Hex) Neighbor(side int) Hex {
	d := HexDirections[side]
	return Hex{Q: h.Q + d.Q, R: h.R + d.R}
}

// HexDistance returns the hex distance between two coordinates.
func HexDistance(a, b Hex) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// HexRegion is a hexagon-shaped field of degree 6 containing every cell
// within Radius of the origin.
type HexRegion struct {
	cells[Hex]
	Radius int
}

// NewHexRegion creates a region where every cell starts with domain.
func NewHexRegion(radius int, domain wfc.CellDomain) (*HexRegion, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: radius %d", ErrInvalidSize, radius)
	}
	var addresses []Hex
	for r := -radius; r <= radius; r++ {
		for q := -radius; q <= radius; q++ {
			h := Hex{Q: q, R: r}
			if HexDistance(h, Hex{}) <= radius {
				addresses = append(addresses, h)
			}
		}
	}
	return &HexRegion{
		cells:  newCells(addresses, domain),
		Radius: radius,
	}, nil
}

// Degree returns 6.
func (h *HexRegion) Degree() int {
	return 6
}

// Adjacent returns the six neighbours of c by side.
func (h *HexRegion) Adjacent(c Hex) []wfc.Neighbor[Hex] {
	out := make([]wfc.Neighbor[Hex], 6)
	for side := range HexDirections {
		n := c.Neighbor(side)
		_, ok := h.byKey[n]
		out[side] = wfc.Neighbor[Hex]{Side: side, Address: n, Valid: ok}
	}
	return out
}

// InitialCell returns the origin.
func (h *HexRegion) InitialCell(*rand.Rand) Hex {
	return Hex{}
}
