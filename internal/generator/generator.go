// Package generator runs whole solves: it builds the field a config
// describes, collapses it with the engine and retries from a fresh seed
// when a run ends in a contradiction.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/field"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"github.com/lawnchairsociety/wavecollapse/internal/metrics"
	"github.com/lawnchairsociety/wavecollapse/internal/module"
	"github.com/lawnchairsociety/wavecollapse/internal/wfc"
)

// ErrNoSolution is returned when every attempt ended in a contradiction.
var ErrNoSolution = errors.New("generator: no solution found")

// Shapes a field can take.
const (
	ShapeLine   = "line"
	ShapeRing   = "ring"
	ShapeSquare = "square"
	ShapeHex    = "hex"
)

// Config contains parameters for one solve
type Config struct {
	Seed        int64     // Base seed; attempt n runs with Seed + n*1000
	Order       wfc.Order // Which end of the entropy range collapses first
	MaxAttempts int
	Shape       string
	Width       int // line/ring length or grid width
	Height      int
	Radius      int // hex regions only
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c *config.Config) (Config, error) {
	order, err := wfc.ParseOrder(c.Solver.Order)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Seed:        c.Solver.Seed,
		Order:       order,
		MaxAttempts: c.Solver.MaxAttempts,
		Shape:       c.Field.Shape,
		Width:       c.Field.Width,
		Height:      c.Field.Height,
		Radius:      c.Field.Radius,
	}, nil
}

// Placement is one collapsed cell of a result.
type Placement struct {
	Address     string `yaml:"address" json:"address"`
	X           int    `yaml:"x" json:"x"` // q on hex fields, index on lines
	Y           int    `yaml:"y" json:"y"` // r on hex fields, 0 on lines
	Module      int    `yaml:"module" json:"module"`
	ModuleName  string `yaml:"module_name" json:"module_name"`
	Orientation int    `yaml:"orientation" json:"orientation"`
	Glyph       string `yaml:"glyph,omitempty" json:"glyph,omitempty"`
}

// Event is published for every collapse of every attempt. A new Attempt
// number means the cells of the previous attempt were discarded.
type Event struct {
	Attempt int
	Placement
}

// Result is a solved field.
type Result struct {
	Shape       string        `yaml:"shape"`
	Width       int           `yaml:"width,omitempty"`
	Height      int           `yaml:"height,omitempty"`
	Radius      int           `yaml:"radius,omitempty"`
	ModuleSet   string        `yaml:"module_set"`
	Fingerprint string        `yaml:"fingerprint"`
	Seed        int64         `yaml:"seed"` // seed of the successful attempt
	Attempts    int           `yaml:"attempts"`
	Stats       wfc.Stats     `yaml:"-"`
	Elapsed     time.Duration `yaml:"-"`
	Cells       []Placement   `yaml:"cells"`
}

// Generator handles solves of one field shape over one constraint table.
type Generator struct {
	config     Config
	table      *module.Table
	recorder   *metrics.Recorder
	onCollapse []func(Event)
}

// NewGenerator creates a new generator
func NewGenerator(cfg Config, table *module.Table) *Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Generator{config: cfg, table: table}
}

// WithRecorder records every attempt and solve with r.
func (g *Generator) WithRecorder(r *metrics.Recorder) *Generator {
	g.recorder = r
	return g
}

// OnCollapse registers a callback invoked for every collapse.
func (g *Generator) OnCollapse(fn func(Event)) {
	g.onCollapse = append(g.onCollapse, fn)
}

// Generate solves the field, retrying with a new seed after contradictions.
// Other errors and context cancellation end the solve immediately.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	shape := g.config.Shape

	var lastErr error
	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		seed := g.config.Seed + int64(attempt*1000)

		cells, stats, err := g.attempt(ctx, attempt, seed)
		contradiction := errors.Is(err, wfc.ErrContradiction)
		g.recorder.ObserveAttempt(shape, stats, contradiction)

		if err == nil {
			g.recorder.ObserveSolve(shape, "ok", time.Since(start))
			logger.Debug("Solve finished", "shape", shape, "seed", seed, "attempts", attempt+1, "collapses", stats.Collapses)
			return &Result{
				Shape:       shape,
				Width:       g.config.Width,
				Height:      g.config.Height,
				Radius:      g.config.Radius,
				ModuleSet:   g.table.Set().Name,
				Fingerprint: g.table.Fingerprint(),
				Seed:        seed,
				Attempts:    attempt + 1,
				Stats:       stats,
				Elapsed:     time.Since(start),
				Cells:       cells,
			}, nil
		}

		if !contradiction {
			status := "failed"
			if ctx.Err() != nil {
				status = "canceled"
			}
			g.recorder.ObserveSolve(shape, status, time.Since(start))
			return nil, err
		}

		logger.Debug("Attempt ended in contradiction", "shape", shape, "seed", seed, "attempt", attempt+1)
		lastErr = err
	}

	g.recorder.ObserveSolve(shape, "failed", time.Since(start))
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrNoSolution, g.config.MaxAttempts, lastErr)
}

func (g *Generator) attempt(ctx context.Context, attempt int, seed int64) ([]Placement, wfc.Stats, error) {
	domain := g.table.MaxEntropyDomain()
	opts := wfc.Options{Seed: seed, Order: g.config.Order}
	place := g.placer(attempt)

	switch g.config.Shape {
	case ShapeSquare:
		grid, err := field.NewGrid(g.config.Width, g.config.Height, domain)
		if err != nil {
			return nil, wfc.Stats{}, err
		}
		return run[field.Coord](ctx, grid, g.table, opts, func(c field.Coord) (int, int) { return c.X, c.Y }, place)
	case ShapeHex:
		region, err := field.NewHexRegion(g.config.Radius, domain)
		if err != nil {
			return nil, wfc.Stats{}, err
		}
		return run[field.Hex](ctx, region, g.table, opts, func(h field.Hex) (int, int) { return h.Q, h.R }, place)
	case ShapeLine, ShapeRing:
		newLine := field.NewLine
		if g.config.Shape == ShapeRing {
			newLine = field.NewRing
		}
		line, err := newLine(g.config.Width, domain)
		if err != nil {
			return nil, wfc.Stats{}, err
		}
		return run[int](ctx, line, g.table, opts, func(i int) (int, int) { return i, 0 }, place)
	default:
		return nil, wfc.Stats{}, fmt.Errorf("%w: %q", field.ErrUnknownShape, g.config.Shape)
	}
}

// placer turns an engine event into a Placement and publishes it.
func (g *Generator) placer(attempt int) func(address string, x, y int, pos wfc.CollapsedPosition, publish bool) Placement {
	return func(address string, x, y int, pos wfc.CollapsedPosition, publish bool) Placement {
		m := g.table.Module(pos.Module)
		p := Placement{
			Address:     address,
			X:           x,
			Y:           y,
			Module:      pos.Module,
			ModuleName:  m.Name,
			Orientation: pos.Orientation,
			Glyph:       m.GlyphFor(pos.Orientation),
		}
		if publish {
			for _, fn := range g.onCollapse {
				fn(Event{Attempt: attempt, Placement: p})
			}
		}
		return p
	}
}

type solvable[A comparable] interface {
	wfc.Field[A]
	wfc.InitialCeller[A]
	Positions() map[A]wfc.CollapsedPosition
}

func run[A comparable](
	ctx context.Context,
	f solvable[A],
	table *module.Table,
	opts wfc.Options,
	coords func(A) (int, int),
	place func(address string, x, y int, pos wfc.CollapsedPosition, publish bool) Placement,
) ([]Placement, wfc.Stats, error) {
	engine, err := wfc.NewEngine[A](f, table.ConstraintTable, opts)
	if err != nil {
		return nil, wfc.Stats{}, err
	}
	engine.OnCollapse(func(ev wfc.CollapseEvent[A]) {
		x, y := coords(ev.Address)
		place(fmt.Sprint(ev.Address), x, y, wfc.CollapsedPosition{Module: ev.Module, Orientation: ev.Orientation}, true)
	})

	if err := engine.CollapseInitialCell(); err != nil {
		return nil, engine.Stats(), err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, engine.Stats(), err
		}
		more, err := engine.Step()
		if err != nil {
			return nil, engine.Stats(), err
		}
		if !more {
			break
		}
	}

	positions := f.Positions()
	cells := make([]Placement, 0, len(positions))
	for _, a := range f.Addresses() {
		pos, ok := positions[a]
		if !ok {
			return nil, engine.Stats(), fmt.Errorf("%w: %v", wfc.ErrNotCollapsed, a)
		}
		x, y := coords(a)
		cells = append(cells, place(fmt.Sprint(a), x, y, pos, false))
	}
	return cells, engine.Stats(), nil
}

// Run loads the module set named by cfg and solves the configured field.
func Run(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, onCollapse ...func(Event)) (*Result, error) {
	table, err := LoadTable(cfg.Modules.Path)
	if err != nil {
		return nil, err
	}
	genCfg, err := ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	gen := NewGenerator(genCfg, table).WithRecorder(recorder)
	for _, fn := range onCollapse {
		gen.OnCollapse(fn)
	}
	return gen.Generate(ctx)
}

// LoadTable reads a module set and generates its constraint table.
func LoadTable(path string) (*module.Table, error) {
	set, err := module.LoadSetFromYAML(path)
	if err != nil {
		return nil, err
	}
	return set.Generate()
}
