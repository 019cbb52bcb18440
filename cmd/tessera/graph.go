package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/tessera/internal/chapters"
	"github.com/aretw0/tessera/internal/cli"
	"github.com/aretw0/tessera/internal/presentation/graph"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [run-id]",
	Short: "Print the chapter flow as a Mermaid diagram",
	Long: `Prints the states and pipes of the chapter flow as a Mermaid flowchart.
With a run id, the checkpointed state of that run is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := chapters.NewFlow(nil, chapters.Options{Wait: cfg.Wait()}).Build()
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if len(args) == 1 {
			backend, err := cli.OpenBackend(cmd.Context(), cfg.Store, cli.BackendOptions{RedisTTL: cfg.RedisTTL()})
			if err != nil {
				return err
			}
			defer backend.Close()

			cp, err := checkpoint.NewManager(backend.Store).Checkpoint(cmd.Context(), map[string]any{
				domain.MetaFlow:  chapters.FlowName,
				domain.MetaRunID: args[0],
			})
			switch {
			case errors.Is(err, domain.ErrCheckpointNotFound):
				logger.Warn("Run has no checkpoint", "run_id", args[0])
			case err != nil:
				return err
			default:
				overlay = &graph.Overlay{Current: cp.State, Item: cp.Item}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(graph.FromFlow(f), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addStoreFlags(graphCmd)
}
