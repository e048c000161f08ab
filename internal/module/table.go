package module

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
	"golang.org/x/crypto/blake2b"
)

// Table is a generated constraint table together with the set it came from.
type Table struct {
	*wfc.ConstraintTable
	set          *Set
	orientations []wfc.OrientationSet
}

// Set returns the module set the table was generated from.
func (t *Table) Set() *Set {
	return t.set
}

// Module returns the module at index.
func (t *Table) Module(index int) *Module {
	return &t.set.Modules[index]
}

// MaxEntropyDomain returns the initial domain of every cell: each module
// possible in each of its authored orientations.
func (t *Table) MaxEntropyDomain() wfc.CellDomain {
	return t.ConstraintTable.MaxEntropyDomain(t.orientations)
}

// Fingerprint returns a BLAKE2b-256 hash of the constraint table and the
// initial orientations. Two tables with the same fingerprint solve the same
// way for the same seed.
func (t *Table) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	buf := make([]byte, 4)
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf, v)
		h.Write(buf)
	}

	put(uint32(t.Degree()))
	put(uint32(t.Size()))
	for m := 0; m < t.Size(); m++ {
		put(uint32(t.orientations[m]))
		set := t.Constraints(m)
		for side := 0; side < t.Degree(); side++ {
			domain := set.Side(side)
			for k := 0; k < domain.Len(); k++ {
				put(uint32(domain.Orientations(k)))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String prints one block per module listing what each side accepts.
func (t *Table) String() string {
	var sb strings.Builder
	for m := 0; m < t.Size(); m++ {
		mod := t.Module(m)
		fmt.Fprintf(&sb, "%d %s [%s] orientations=%v flags=%b\n", m, mod.Name, mod.ID, t.orientations[m], mod.Flags())
		set := t.Constraints(m)
		for side := 0; side < t.Degree(); side++ {
			fmt.Fprintf(&sb, "  side %d (%02d):", side, mod.features[side])
			for _, slot := range set.Side(side).Possible() {
				fmt.Fprintf(&sb, " %s%v", t.Module(slot.Module).Name, slot.Orientations)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
