package wfc

import (
	"fmt"
	"math/rand"

	"github.com/lawnchairsociety/wavecollapse/internal/logger"
)

// Neighbor is one entry of a cell's adjacency list. Side is the direction
// from the cell to the neighbour; Valid is false past the field boundary.
type Neighbor[A comparable] struct {
	Side    int
	Address A
	Valid   bool
}

// Field is the tessellation the engine solves. Adjacent must return exactly
// Degree() entries, indexed by side.
type Field[A comparable] interface {
	Degree() int
	Count() int
	Addresses() []A
	Cell(address A) (*Cell[A], bool)
	Adjacent(address A) []Neighbor[A]
}

// InitialCeller is implemented by fields that designate the first cell to collapse.
type InitialCeller[A comparable] interface {
	InitialCell(rng *rand.Rand) A
}

// Order selects which end of the entropy range is collapsed first.
type Order int

const (
	LowestEntropyFirst Order = iota
	HighestEntropyFirst
)

// String returns the config name of the order
func (o Order) String() string {
	switch o {
	case LowestEntropyFirst:
		return "lowest"
	case HighestEntropyFirst:
		return "highest"
	default:
		return "unknown"
	}
}

// ParseOrder converts a config name to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "lowest":
		return LowestEntropyFirst, nil
	case "highest":
		return HighestEntropyFirst, nil
	default:
		return LowestEntropyFirst, fmt.Errorf("wfc: unknown entropy order %q", s)
	}
}

// CollapseEvent is published once for every cell at the moment it collapses.
type CollapseEvent[A comparable] struct {
	Address     A
	Module      int
	Orientation int
}

// Stats counts engine activity over the lifetime of a solve.
type Stats struct {
	Collapses      int
	Propagations   int
	EntropyChanges int
	Enqueued       int
}

// Options configures an Engine.
type Options struct {
	Seed  int64
	Order Order
}

// Engine drives the collapse of one field. It is not safe for concurrent use.
type Engine[A comparable] struct {
	field      Field[A]
	table      *ConstraintTable
	heap       *Heap[*Cell[A]]
	rng        *rand.Rand
	order      Order
	onCollapse []func(CollapseEvent[A])
	stats      Stats
}

// NewEngine creates an engine over field using the static constraint table.
func NewEngine[A comparable](field Field[A], table *ConstraintTable, opts Options) (*Engine[A], error) {
	if field.Degree() != table.Degree() {
		return nil, fmt.Errorf("%w: field degree %d, constraint table degree %d",
			ErrSizeMismatch, field.Degree(), table.Degree())
	}

	e := &Engine[A]{
		field: field,
		table: table,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		order: opts.Order,
	}

	before := func(a, b *Cell[A]) bool { return a.Entropy() < b.Entropy() }
	if opts.Order == HighestEntropyFirst {
		before = func(a, b *Cell[A]) bool { return a.Entropy() > b.Entropy() }
	}
	e.heap = NewHeap(field.Count(), before)

	return e, nil
}

// OnCollapse registers a callback invoked for every collapse the engine performs.
func (e *Engine[A]) OnCollapse(fn func(CollapseEvent[A])) {
	e.onCollapse = append(e.onCollapse, fn)
}

// Reseed replaces the random stream. Collapsed cells are not affected.
func (e *Engine[A]) Reseed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Table returns the static constraint table.
func (e *Engine[A]) Table() *ConstraintTable {
	return e.table
}

// Stats returns a snapshot of the activity counters.
func (e *Engine[A]) Stats() Stats {
	return e.stats
}

// Queued returns the number of cells waiting in the entropy heap.
func (e *Engine[A]) Queued() int {
	return e.heap.Len()
}

// AllCellsCollapsed reports whether the entropy heap is drained.
func (e *Engine[A]) AllCellsCollapsed() bool {
	return e.heap.Len() == 0
}

// Remaining counts the cells of the field that are not collapsed yet.
func (e *Engine[A]) Remaining() int {
	n := 0
	for _, a := range e.field.Addresses() {
		if c, ok := e.field.Cell(a); ok && !c.Collapsed() {
			n++
		}
	}
	return n
}

// Cell returns the solver state at address.
func (e *Engine[A]) Cell(address A) (*Cell[A], error) {
	c, ok := e.field.Cell(address)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAddress, address)
	}
	return c, nil
}

// CollapseInitialCell collapses the cell the field designates as the start.
func (e *Engine[A]) CollapseInitialCell() error {
	seeder, ok := e.field.(InitialCeller[A])
	if !ok {
		return ErrNoInitialCell
	}
	address := seeder.InitialCell(e.rng)
	cell, err := e.Cell(address)
	if err != nil {
		return err
	}
	if cell.Collapsed() {
		return nil
	}
	pos, err := cell.CollapseRandom(e.rng)
	if err != nil {
		return err
	}
	e.collapsed(cell, pos)
	return e.Propagate(address)
}

// Collapse deterministically collapses the cell at address to its k-th
// possible module and that module's n-th orientation, then propagates.
func (e *Engine[A]) Collapse(address A, possibleIndex, ordinal int) error {
	cell, err := e.Cell(address)
	if err != nil {
		return err
	}
	pos, err := cell.Collapse(possibleIndex, ordinal)
	if err != nil {
		return err
	}
	e.collapsed(cell, pos)
	return e.Propagate(address)
}

// CollapseNext collapses the queued cell that sorts first and propagates.
// Cells collapsed by another path while queued are skipped.
func (e *Engine[A]) CollapseNext() error {
	for {
		cell, ok := e.heap.RemoveFirst()
		if !ok {
			return nil
		}
		if cell.Collapsed() {
			continue
		}
		pos, err := cell.CollapseRandom(e.rng)
		if err != nil {
			return err
		}
		e.collapsed(cell, pos)
		return e.Propagate(cell.Address())
	}
}

// CollapseAt collapses the cell at address to module, or to a random
// possibility when module was already excluded, then propagates. Collapsed
// cells are left alone.
func (e *Engine[A]) CollapseAt(address A, module int) error {
	cell, err := e.Cell(address)
	if err != nil {
		return err
	}
	if cell.Collapsed() {
		return nil
	}
	pos, err := cell.CollapseToModule(module, e.rng)
	if err != nil {
		return err
	}
	e.collapsed(cell, pos)
	return e.Propagate(address)
}

// Step collapses one cell: the first queued cell, or when the heap has
// drained while cells are still open (regions propagation never reached),
// the first open address in field order. It reports false once every cell
// is collapsed.
func (e *Engine[A]) Step() (bool, error) {
	if !e.AllCellsCollapsed() {
		return true, e.CollapseNext()
	}

	next, ok := e.firstOpen()
	if !ok {
		return false, nil
	}
	cell, _ := e.field.Cell(next)
	pos, err := cell.CollapseRandom(e.rng)
	if err != nil {
		return true, err
	}
	e.collapsed(cell, pos)
	return true, e.Propagate(next)
}

// CollapseAll steps until no cell is left.
func (e *Engine[A]) CollapseAll() error {
	for {
		more, err := e.Step()
		if err != nil || !more {
			return err
		}
	}
}

// InstantCollapseAll seeds the initial cell and collapses the whole field.
func (e *Engine[A]) InstantCollapseAll() error {
	if err := e.CollapseInitialCell(); err != nil {
		return err
	}
	return e.CollapseAll()
}

// Propagate narrows the neighbours of address with the constraint the cell
// projects, and keeps going from every neighbour whose entropy changed until
// nothing changes any more. A contradiction aborts propagation and is
// returned to the caller.
func (e *Engine[A]) Propagate(address A) error {
	stack := []A{address}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cell, err := e.Cell(current)
		if err != nil {
			return err
		}
		e.stats.Propagations++

		projected, err := e.table.Project(cell.domain)
		if err != nil {
			return err
		}

		adjacent := e.field.Adjacent(current)
		var changed []A
		for _, n := range adjacent {
			if !n.Valid {
				continue
			}
			neighbor, ok := e.field.Cell(n.Address)
			if !ok {
				return fmt.Errorf("%w: neighbour %v of %v", ErrUnknownAddress, n.Address, current)
			}
			entropyChange, err := neighbor.AddConstraint(projected.Side(n.Side))
			if err != nil {
				logger.Error("Contradiction during propagation", "from", fmt.Sprint(current), "side", n.Side, "error", err)
				return err
			}
			if entropyChange {
				e.stats.EntropyChanges++
				e.enqueue(neighbor)
				changed = append(changed, n.Address)
			}
		}

		// Push in reverse so neighbours are visited in side order.
		for i := len(changed) - 1; i >= 0; i-- {
			stack = append(stack, changed[i])
		}
	}

	return nil
}

func (e *Engine[A]) enqueue(cell *Cell[A]) {
	if cell.Collapsed() {
		logger.Error("Refusing to enqueue collapsed cell", "address", fmt.Sprint(cell.Address()))
		return
	}
	if e.heap.Contains(cell) {
		e.heap.Update(cell)
		return
	}
	if !e.heap.Add(cell) {
		logger.Warning("Cell already queued", "address", fmt.Sprint(cell.Address()))
		return
	}
	e.stats.Enqueued++
}

func (e *Engine[A]) collapsed(cell *Cell[A], pos CollapsedPosition) {
	e.stats.Collapses++
	// A queued cell's entropy just dropped to 0; keep the heap ordered until it is popped and skipped.
	e.heap.Update(cell)
	ev := CollapseEvent[A]{Address: cell.Address(), Module: pos.Module, Orientation: pos.Orientation}
	for _, fn := range e.onCollapse {
		fn(ev)
	}
}

func (e *Engine[A]) firstOpen() (A, bool) {
	for _, a := range e.field.Addresses() {
		if c, ok := e.field.Cell(a); ok && !c.Collapsed() {
			return a, true
		}
	}
	var zero A
	return zero, false
}
