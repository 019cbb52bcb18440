package main

import (
	"github.com/aretw0/tessera/internal/cli"
	httpadapter "github.com/aretw0/tessera/pkg/adapters/http"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run API and store metrics over HTTP",
	Long:  `Exposes /runs, /runs/{key}, /health, /info and /metrics for the configured checkpoint store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		reg := prometheus.NewRegistry()
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		backend, err := cli.OpenBackend(cmd.Context(), cfg.Store, cli.BackendOptions{
			Logger:   logger,
			Observer: metrics,
			RedisTTL: cfg.RedisTTL(),
		})
		if err != nil {
			return err
		}
		defer backend.Close()

		handler := httpadapter.NewHandler(backend.Store,
			httpadapter.WithGatherer(reg),
			httpadapter.WithLogger(logger),
		)
		return cli.Serve(cmd.Context(), addr, handler, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addStoreFlags(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
