package main

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/server"
	"github.com/lawnchairsociety/wavecollapse/internal/streamclient"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		address string
		seed    int64
		trace   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a solve streamed by a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var seedArg *int64
			if cmd.Flags().Changed("seed") {
				seedArg = &seed
			}

			var hook func(server.Message)
			if trace {
				hook = func(msg server.Message) {
					if msg.Type == server.MessageCollapse {
						fmt.Fprintf(out, "attempt %d: %s -> %s/%d\n", msg.Attempt, msg.Address, msg.ModuleName, msg.Orientation)
					}
				}
			}

			client, err := streamclient.DialWithHook(address, seedArg, nil, hook)
			if err != nil {
				return err
			}
			defer client.Close()

			done, err := client.WaitForDone(timeout)
			if err != nil {
				return err
			}
			result, err := client.Result()
			if err != nil {
				return err
			}

			fmt.Fprint(out, result.Render())
			fmt.Fprintf(out, "%s: seed %d, %d attempt(s), %d frames\n",
				done.SolveID, done.Seed, done.Attempts, len(client.GetMessages()))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&address, "url", "ws://localhost:4000/ws", "Stream address")
	flags.Int64Var(&seed, "seed", 0, "Seed to request (default: the server's)")
	flags.BoolVar(&trace, "trace", false, "Print every collapse as it arrives")
	flags.DurationVar(&timeout, "timeout", time.Minute, "How long to wait for the solve")
	return cmd
}
