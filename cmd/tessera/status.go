package main

import (
	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored runs and their positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cmd.Context(), cfg.Store, cli.BackendOptions{RedisTTL: cfg.RedisTTL()})
		if err != nil {
			return err
		}
		defer backend.Close()
		return cli.PrintStatus(cmd.Context(), cmd.OutOrStdout(), backend.Store)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	addStoreFlags(statusCmd)
}
