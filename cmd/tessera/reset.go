package main

import (
	"fmt"

	"github.com/aretw0/tessera/internal/chapters"
	"github.com/aretw0/tessera/internal/cli"
	"github.com/aretw0/tessera/pkg/checkpoint"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <run-id>",
	Short: "Forget the checkpoint and processed chunks of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cmd.Context(), cfg.Store, cli.BackendOptions{Logger: logger, RedisTTL: cfg.RedisTTL()})
		if err != nil {
			return err
		}
		defer backend.Close()

		metadata := map[string]any{
			domain.MetaFlow:  chapters.FlowName,
			domain.MetaRunID: args[0],
		}
		key, err := domain.RunKey(metadata)
		if err != nil {
			return err
		}
		if err := checkpoint.NewManager(backend.Store).Reset(cmd.Context(), metadata); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s reset\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	addStoreFlags(resetCmd)
}
