package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/tessera/internal/cli"
	"github.com/aretw0/tessera/internal/config"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Tessera runs checkpointed, resumable chapter pipelines",
	Long: `Tessera processes a directory of chapters through ordered states, checkpointing
after every step so an interrupted run resumes where it stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	sc := cli.NewSignalContext(context.Background())
	defer sc.Cancel()

	err := rootCmd.ExecuteContext(sc)
	if sig := sc.Signal(); sig != nil {
		fmt.Fprintf(os.Stderr, "Interrupted by %v\n", sig)
		os.Exit(130)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (.toml or .yaml); defaults to ./tessera.toml when present")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		path = config.Discover(".")
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrideString(cmd, "log-level", &loaded.Log.Level)
	overrideString(cmd, "log-format", &loaded.Log.Format)
	overrideString(cmd, "store", &loaded.Store.Driver)
	overrideString(cmd, "store-path", &loaded.Store.Path)
	overrideString(cmd, "redis-addr", &loaded.Store.Redis.Addr)
	overrideString(cmd, "run-id", &loaded.Run.ID)
	overrideString(cmd, "strategy", &loaded.Run.Strategy)
	overrideString(cmd, "schedule", &loaded.Run.Schedule)
	overrideString(cmd, "output", &loaded.Run.Output)
	overrideString(cmd, "metrics-addr", &loaded.Metrics.Addr)
	overrideString(cmd, "tools", &loaded.Tools.File)
	overrideString(cmd, "summary-tool", &loaded.Tools.Summarize)
	if flags.Lookup("chunk-size") != nil && flags.Changed("chunk-size") {
		loaded.Run.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logging.FromConfig(loaded.Log.Level, loaded.Log.Format)
	if err != nil {
		return err
	}
	if path != "" {
		l.Debug("Config loaded", "path", path)
	}
	cfg, logger = loaded, l
	return nil
}

// overrideString copies a string flag into dst when the command defines it and the user set it.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	flags := cmd.Flags()
	if flags.Lookup(name) == nil || !flags.Changed(name) {
		return
	}
	v, _ := flags.GetString(name)
	switch name {
	case "store", "strategy", "log-level", "log-format":
		v = strings.ToLower(strings.TrimSpace(v))
	}
	*dst = v
}
