package main

import (
	"github.com/aretw0/tessera/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Process the chapters of a directory",
	Long: `Runs every *.txt file of <dir> through the CLEAN, SUMMARIZE, GLOSSARY and PROMPT
states. Re-running the same run id resumes from its checkpoint; with a chunk size,
chunks whose content was already processed are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Run(cmd.Context(), cli.RunOptions{
			Dir:    args[0],
			Config: cfg,
			Logger: logger,
			Out:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addStoreFlags(runCmd)
	runCmd.Flags().String("run-id", "", "Run identity; checkpoints are keyed by it")
	runCmd.Flags().Int("chunk-size", 0, "Chapters per chunk; 0 processes all at once")
	runCmd.Flags().String("strategy", "", "Error strategy: fail_fast, ignore or retry")
	runCmd.Flags().String("schedule", "", "Cron spec to run on repeatedly, e.g. \"@every 1h\"")
	runCmd.Flags().String("output", "", "Directory for chapter records")
	runCmd.Flags().String("tools", "", "Tools file (YAML or JSON) of allowed external commands")
	runCmd.Flags().String("summary-tool", "", "Tool that summarizes each chapter instead of the built-in summary")
	runCmd.Flags().String("metrics-addr", "", "Serve metrics and the run API on this address during the run")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "Checkpoint store: memory, file, redis or sqlite")
	cmd.Flags().String("store-path", "", "Directory (file) or database path (sqlite)")
	cmd.Flags().String("redis-addr", "", "Redis address for the redis store")
}
