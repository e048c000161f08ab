// Package module turns authored tile modules into the static constraint
// table the collapse engine runs on.
//
// A module is described by one digit per corner. Side i runs from corner i
// to corner i+1, so a side's feature is the two-digit number formed by those
// corners. Two sides fit when one's feature equals the other's read backwards.
package module

import (
	"fmt"
	"strconv"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// Module is one authored tile.
type Module struct {
	Name         string   `yaml:"name"`
	ID           string   `yaml:"id"`           // corner digits, one per side
	Orientations []int    `yaml:"orientations"` // empty = every orientation
	Exclude      []int    `yaml:"exclude"`      // per-side flag mask of neighbours to reject
	Glyph        string   `yaml:"glyph"`
	Glyphs       []string `yaml:"glyphs"` // optional, one per orientation

	features  []int
	reflected []int
	flags     int
}

// Sides returns the number of sides, which is the number of corner digits.
func (m *Module) Sides() int {
	return len(m.ID)
}

// Features returns the feature of every side.
func (m *Module) Features() []int {
	return append([]int(nil), m.features...)
}

// FeaturesReflected returns every feature as the facing neighbour sees it.
func (m *Module) FeaturesReflected() []int {
	return append([]int(nil), m.reflected...)
}

// Flags returns the OR of the flags of every corner digit.
func (m *Module) Flags() int {
	return m.flags
}

// SetFeatures derives features, reflected features and flags from ID.
func (m *Module) SetFeatures() error {
	sides := m.Sides()
	if sides < 2 || sides%2 != 0 || sides > wfc.MaxDegree {
		return fmt.Errorf("%w: module %q has %d corners", ErrInvalidModule, m.Name, sides)
	}

	corners := make([]int, sides)
	for i, r := range m.ID {
		d, err := strconv.Atoi(string(r))
		if err != nil {
			return fmt.Errorf("%w: module %q corner %d is not a digit", ErrInvalidModule, m.Name, i)
		}
		corners[i] = d
	}

	m.features = make([]int, sides)
	m.reflected = make([]int, sides)
	m.flags = 0
	for i := 0; i < sides; i++ {
		a := corners[i]
		b := corners[(i+1)%sides]
		m.features[i] = 10*a + b
		m.reflected[(i+sides/2)%sides] = 10*b + a
	}

	for _, d := range corners {
		m.flags |= flag(d)
	}
	return nil
}

func flag(digit int) int {
	if digit > 1 {
		return 1 << (digit - 1)
	}
	return digit
}

// ExcludeMask returns the exclusion mask of a side.
func (m *Module) ExcludeMask(side int) int {
	if side < 0 || side >= len(m.Exclude) {
		return 0
	}
	return m.Exclude[side]
}

// OrientationSet returns the orientations the module may take.
func (m *Module) OrientationSet() wfc.OrientationSet {
	if len(m.Orientations) == 0 {
		return wfc.AllOrientations(m.Sides())
	}
	return wfc.Orientations(m.Orientations...)
}

// GlyphFor returns the character used to draw the module at orientation.
func (m *Module) GlyphFor(orientation int) string {
	if orientation >= 0 && orientation < len(m.Glyphs) {
		return m.Glyphs[orientation]
	}
	if m.Glyph != "" {
		return m.Glyph
	}
	return "?"
}
