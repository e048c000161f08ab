package field

import (
	"errors"
	"testing"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

func uniform(size, degree int) wfc.CellDomain {
	orientations := make(map[int]wfc.OrientationSet, size)
	for m := 0; m < size; m++ {
		orientations[m] = wfc.AllOrientations(degree)
	}
	return wfc.DomainOf(size, orientations)
}

// freeTable allows anything next to anything.
func freeTable(t *testing.T, size, degree int) *wfc.ConstraintTable {
	t.Helper()
	sets := make([]wfc.ConstraintSet, size)
	for m := range sets {
		sides := make([]wfc.CellDomain, degree)
		for k := range sides {
			sides[k] = uniform(size, degree)
		}
		set, err := wfc.ConstraintSetOf(sides...)
		if err != nil {
			t.Fatalf("ConstraintSetOf: %v", err)
		}
		sets[m] = set
	}
	table, err := wfc.NewConstraintTable(sets)
	if err != nil {
		t.Fatalf("NewConstraintTable: %v", err)
	}
	return table
}

func TestGridAdjacency(t *testing.T) {
	g, err := NewGrid(3, 2, uniform(2, 4))
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if g.Count() != 6 {
		t.Errorf("Count() = %d, want 6", g.Count())
	}

	adj := g.Adjacent(Coord{X: 0, Y: 0})
	if len(adj) != g.Degree() {
		t.Fatalf("len(Adjacent) = %d, want %d", len(adj), g.Degree())
	}
	want := []struct {
		addr  Coord
		valid bool
	}{
		{Coord{0, -1}, false},
		{Coord{1, 0}, true},
		{Coord{0, 1}, true},
		{Coord{-1, 0}, false},
	}
	for side, w := range want {
		if adj[side].Side != side || adj[side].Address != w.addr || adj[side].Valid != w.valid {
			t.Errorf("side %d = %+v, want %v valid=%v", side, adj[side], w.addr, w.valid)
		}
	}

	if got := g.InitialCell(nil); got != (Coord{X: 1, Y: 1}) {
		t.Errorf("InitialCell = %v", got)
	}
	if got := g.Addresses(); got[0] != (Coord{0, 0}) || got[1] != (Coord{1, 0}) {
		t.Errorf("Addresses should be row-major, got %v", got)
	}
}

func TestGridAdjacencyIsSymmetric(t *testing.T) {
	g, _ := NewGrid(4, 4, uniform(1, 4))
	for _, a := range g.Addresses() {
		for _, n := range g.Adjacent(a) {
			if !n.Valid {
				continue
			}
			back := g.Adjacent(n.Address)[Direction(n.Side).Opposite()]
			if !back.Valid || back.Address != a {
				t.Errorf("%v side %d -> %v does not lead back", a, n.Side, n.Address)
			}
		}
	}
}

func TestNewGridRejectsBadSize(t *testing.T) {
	if _, err := NewGrid(0, 3, uniform(1, 4)); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("error = %v, want ErrInvalidSize", err)
	}
}

func TestHexRegion(t *testing.T) {
	for radius, want := range []int{1, 7, 19, 37} {
		h, err := NewHexRegion(radius, uniform(1, 6))
		if err != nil {
			t.Fatalf("NewHexRegion(%d): %v", radius, err)
		}
		if h.Count() != want {
			t.Errorf("radius %d Count() = %d, want %d", radius, h.Count(), want)
		}
	}

	h, _ := NewHexRegion(2, uniform(1, 6))
	for _, a := range h.Addresses() {
		for _, n := range h.Adjacent(a) {
			if !n.Valid {
				continue
			}
			if HexDistance(a, n.Address) != 1 {
				t.Errorf("%v and %v are not adjacent", a, n.Address)
			}
			back := h.Adjacent(n.Address)[(n.Side+3)%6]
			if back.Address != a {
				t.Errorf("%v side %d -> %v does not lead back", a, n.Side, n.Address)
			}
		}
	}

	edge := h.Adjacent(Hex{Q: 2, R: 0})
	if edge[0].Valid {
		t.Error("neighbour outside the radius should be invalid")
	}
}

func TestLineAndRing(t *testing.T) {
	line, _ := NewLine(3, uniform(1, 2))
	adj := line.Adjacent(0)
	if adj[0].Valid || !adj[1].Valid || adj[1].Address != 1 {
		t.Errorf("line Adjacent(0) = %+v", adj)
	}

	ring, _ := NewRing(3, uniform(1, 2))
	adj = ring.Adjacent(0)
	if !adj[0].Valid || adj[0].Address != 2 {
		t.Errorf("ring Adjacent(0) = %+v", adj)
	}
	if line.InitialCell(nil) != 1 {
		t.Errorf("InitialCell = %d, want 1", line.InitialCell(nil))
	}
}

func TestRestoreAndPositions(t *testing.T) {
	g, _ := NewGrid(2, 2, uniform(3, 4))
	if err := g.Restore(Coord{1, 1}, 2, 3); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := g.Restore(Coord{5, 5}, 0, 0); !errors.Is(err, wfc.ErrUnknownAddress) {
		t.Errorf("Restore unknown error = %v", err)
	}

	positions := g.Positions()
	if len(positions) != 1 {
		t.Fatalf("len(Positions) = %d, want 1", len(positions))
	}
	if pos := positions[Coord{1, 1}]; pos.Module != 2 || pos.Orientation != 3 {
		t.Errorf("position = %+v", pos)
	}
}

func TestEngineSolvesEveryShape(t *testing.T) {
	grid, _ := NewGrid(5, 4, uniform(3, 4))
	hex, _ := NewHexRegion(2, uniform(3, 6))
	ring, _ := NewRing(7, uniform(3, 2))

	run := func(name string, solve func() (int, error)) {
		t.Run(name, func(t *testing.T) {
			remaining, err := solve()
			if err != nil {
				t.Fatalf("InstantCollapseAll: %v", err)
			}
			if remaining != 0 {
				t.Errorf("Remaining() = %d, want 0", remaining)
			}
		})
	}

	run("grid", func() (int, error) {
		e, err := wfc.NewEngine[Coord](grid, freeTable(t, 3, 4), wfc.Options{Seed: 1})
		if err != nil {
			return -1, err
		}
		err = e.InstantCollapseAll()
		return e.Remaining(), err
	})
	run("hex", func() (int, error) {
		e, err := wfc.NewEngine[Hex](hex, freeTable(t, 3, 6), wfc.Options{Seed: 1})
		if err != nil {
			return -1, err
		}
		err = e.InstantCollapseAll()
		return e.Remaining(), err
	})
	run("ring", func() (int, error) {
		e, err := wfc.NewEngine[int](ring, freeTable(t, 3, 2), wfc.Options{Seed: 1})
		if err != nil {
			return -1, err
		}
		err = e.InstantCollapseAll()
		return e.Remaining(), err
	})
}
