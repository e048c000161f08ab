package module

import (
	"fmt"
	"os"

	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
	"gopkg.in/yaml.v3"
)

// Set is a collection of modules sharing one degree. A module's index in
// Modules is its index in every domain built from the set.
type Set struct {
	Name    string   `yaml:"name"`
	Modules []Module `yaml:"modules"`
}

// LoadSetFromYAML loads a module set from a YAML file.
func LoadSetFromYAML(filename string) (*Set, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read module set file: %w", err)
	}

	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse module set YAML: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Loaded module set", "name", set.Name, "modules", len(set.Modules), "file", filename)
	return &set, nil
}

// Degree returns the number of sides shared by every module.
func (s *Set) Degree() int {
	if len(s.Modules) == 0 {
		return 0
	}
	return s.Modules[0].Sides()
}

// Validate checks every module and derives its features.
func (s *Set) Validate() error {
	if len(s.Modules) == 0 {
		return ErrEmptySet
	}

	degree := s.Degree()
	seen := make(map[string]bool, len(s.Modules))
	for i := range s.Modules {
		m := &s.Modules[i]
		if m.Name == "" {
			m.Name = fmt.Sprintf("module-%d", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidModule, m.Name)
		}
		seen[m.Name] = true

		if m.Sides() != degree {
			return fmt.Errorf("%w: module %q has %d sides, set degree is %d", ErrInvalidModule, m.Name, m.Sides(), degree)
		}
		if len(m.Exclude) != 0 && len(m.Exclude) != degree {
			return fmt.Errorf("%w: module %q exclude list needs %d entries", ErrInvalidModule, m.Name, degree)
		}
		for _, o := range m.Orientations {
			if o < 0 || o >= degree {
				return fmt.Errorf("%w: module %q orientation %d out of range", ErrInvalidModule, m.Name, o)
			}
		}
		if err := m.SetFeatures(); err != nil {
			return err
		}
	}
	return nil
}

// Index returns the position of the named module.
func (s *Set) Index(name string) (int, bool) {
	for i := range s.Modules {
		if s.Modules[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Generate tests every side of every module against every side of every
// other module and builds the constraint table. Module m allows module m2 at
// orientation (s2 - s) mod D on side s when m's feature on s equals m2's
// reflected feature on s2, unless m's exclusion mask for s hits m2's flags.
func (s *Set) Generate() (*Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	degree := s.Degree()
	size := len(s.Modules)
	sets := make([]wfc.ConstraintSet, size)

	for i := range s.Modules {
		m := &s.Modules[i]
		sides := make([]wfc.CellDomain, degree)
		for side := 0; side < degree; side++ {
			sides[side] = s.evaluateSide(m, side)
		}
		set, err := wfc.ConstraintSetOf(sides...)
		if err != nil {
			return nil, err
		}
		sets[i] = set
	}

	table, err := wfc.NewConstraintTable(sets)
	if err != nil {
		return nil, err
	}

	orientations := make([]wfc.OrientationSet, size)
	for i := range s.Modules {
		orientations[i] = s.Modules[i].OrientationSet()
	}

	return &Table{ConstraintTable: table, set: s, orientations: orientations}, nil
}

func (s *Set) evaluateSide(m *Module, side int) wfc.CellDomain {
	degree := s.Degree()
	allowed := make(map[int]wfc.OrientationSet)
	feature := m.features[side]
	exclusion := m.ExcludeMask(side)

	for j := range s.Modules {
		adjacent := &s.Modules[j]
		if exclusion&adjacent.flags != 0 {
			continue
		}
		var fits wfc.OrientationSet
		for adjacentSide := 0; adjacentSide < degree; adjacentSide++ {
			if feature == adjacent.reflected[adjacentSide] {
				o := ((adjacentSide-side)%degree + degree) % degree
				fits = fits.Union(wfc.Orientations(o))
			}
		}
		if fits != 0 {
			allowed[j] = fits
		}
	}
	return wfc.DomainOf(len(s.Modules), allowed)
}
