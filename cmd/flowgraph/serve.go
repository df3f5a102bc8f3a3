package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/serve"
)

var (
	serveListen string
	serveDir    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graphs of the runs in a trace directory over HTTP",
	Long: `Start a REST server over a directory of trace files. Each file is a run whose
id is the file name without extension. Repeated requests for a run merge the
fresh scan into the graph returned before, so pollers never lose nodes.

  GET /runs
  GET /runs/:run/nodes[?where=&future=true]
  GET /runs/:run/nodes/:node
  GET /runs/:run/nodes/:node/steps
  GET /runs/:run/steps
  GET /runs/:run/steps/:step
  GET /schema`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveListen
		}
		if cmd.Flags().Changed("dir") {
			cfg.Traces = serveDir
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := serve.New(cfg.Traces,
			serve.WithGraphOptions(graphOptions()...),
			serve.WithLogger(logger),
		)
		logger.Info("serving traces", "dir", cfg.Traces, "listen", cfg.Listen)
		return s.Listen(ctx, cfg.Listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":3000", "Listen address (default: listen from flowgraph.yaml)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Trace directory (default: traces from flowgraph.yaml)")
	rootCmd.AddCommand(serveCmd)
}
