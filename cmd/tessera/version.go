package main

import (
	"fmt"

	"github.com/aretw0/tessera"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tessera",
	// The version needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tessera version %s\n", tessera.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
