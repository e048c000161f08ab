package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/store"
	"github.com/spf13/cobra"
)

type solveOptions struct {
	seed     int64
	order    string
	attempts int
	shape    string
	width    int
	height   int
	radius   int
	output   string
	save     bool
	quiet    bool
	trace    bool
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the configured field and print it",
		Example: `  wfc solve --shape hex --radius 5 -m data/modules/hex-islands.yaml
  wfc solve --seed 7 -o out/coast.yaml --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.seed, "seed", 0, "Base seed (overrides solver.seed)")
	flags.StringVar(&opts.order, "order", "", "Entropy order: lowest or highest")
	flags.IntVar(&opts.attempts, "attempts", 0, "Maximum attempts (overrides solver.max_attempts)")
	flags.StringVar(&opts.shape, "shape", "", "Field shape: line, ring, square or hex")
	flags.IntVar(&opts.width, "width", 0, "Grid width or line length")
	flags.IntVar(&opts.height, "height", 0, "Grid height")
	flags.IntVar(&opts.radius, "radius", 0, "Hex region radius")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the result as YAML to this file")
	flags.BoolVar(&opts.save, "save", false, "Store the result in the configured database")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the rendered field")
	flags.BoolVar(&opts.trace, "trace", false, "Print every collapse as it happens")
	return cmd
}

func runSolve(cmd *cobra.Command, root *rootOptions, opts *solveOptions) error {
	cfg := root.cfg
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Solver.Seed = opts.seed
	}
	if flags.Changed("order") {
		cfg.Solver.Order = opts.order
	}
	if flags.Changed("attempts") {
		cfg.Solver.MaxAttempts = opts.attempts
	}
	if flags.Changed("shape") {
		cfg.Field.Shape = opts.shape
	}
	if flags.Changed("width") {
		cfg.Field.Width = opts.width
	}
	if flags.Changed("height") {
		cfg.Field.Height = opts.height
	}
	if flags.Changed("radius") {
		cfg.Field.Radius = opts.radius
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var hooks []func(generator.Event)
	if opts.trace {
		hooks = append(hooks, func(ev generator.Event) {
			fmt.Fprintf(out, "attempt %d: %s -> %s/%d\n", ev.Attempt, ev.Address, ev.ModuleName, ev.Orientation)
		})
	}

	result, err := generator.Run(ctx, cfg, nil, hooks...)
	if err != nil {
		return err
	}

	if !opts.quiet {
		fmt.Fprint(out, result.Render())
	}
	fmt.Fprintf(out, "seed %d, %d attempt(s), %d collapses in %s\n",
		result.Seed, result.Attempts, result.Stats.Collapses, result.Elapsed)

	if opts.output != "" {
		if err := generator.WriteResultYAML(result, opts.output); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", opts.output)
	}

	if opts.save {
		st, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.SaveSolve(ctx, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s\n", id)
	}
	return nil
}
