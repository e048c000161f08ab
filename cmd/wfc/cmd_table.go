package main

import (
	"fmt"

	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/spf13/cobra"
)

func newTableCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the constraint table generated from the module set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := generator.LoadTable(root.cfg.Modules.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, table.String())
			fmt.Fprintf(out, "fingerprint %s\n", table.Fingerprint())
			return nil
		},
	}
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "render <result.yaml>",
		Short: "Print a result file written by solve -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := generator.ReadResultYAML(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, result.Render())

			if verify {
				return verifyResult(cmd, root, result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the result against the current module set")
	return cmd
}

// verifyResult checks result against the configured module set and
// reports a fingerprint change, which is only a warning on its own.
func verifyResult(cmd *cobra.Command, root *rootOptions, result *generator.Result) error {
	table, err := generator.LoadTable(root.cfg.Modules.Path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if result.Fingerprint != table.Fingerprint() {
		fmt.Fprintf(out, "fingerprint changed: result %s, table %s\n", result.Fingerprint, table.Fingerprint())
	}
	if err := generator.Verify(table, result); err != nil {
		return err
	}
	fmt.Fprintln(out, "valid")
	return nil
}
