package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored solves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(root.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			solves, err := st.ListSolves(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(solves) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stored solves")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tSHAPE\tSET\tSEED\tATTEMPTS\tCOLLAPSES")
			for _, s := range solves {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Shape, s.ModuleSet,
					s.Seed, s.Attempts, s.Collapses)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of solves to list")

	cmd.AddCommand(
		newHistoryShowCmd(root),
		newHistoryDeleteCmd(root),
	)
	return cmd
}

func newHistoryShowCmd(root *rootOptions) *cobra.Command {
	var verify bool
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored solve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(root.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			solve, err := st.GetSolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result := solve.Result()

			out := cmd.OutOrStdout()
			fmt.Fprint(out, result.Render())
			fmt.Fprintf(out, "%s: %s %s, seed %d, stored %s\n",
				solve.ID, solve.ModuleSet, solve.Shape, solve.Seed,
				solve.CreatedAt.Format("2006-01-02 15:04:05"))

			if output != "" {
				if err := generator.WriteResultYAML(result, output); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", output)
			}
			if verify {
				return verifyResult(cmd, root, result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the solve against the current module set")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export the solve as YAML to this file")
	return cmd
}

func newHistoryDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored solve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(root.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSolve(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
