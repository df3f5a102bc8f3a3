package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/config"
	"github.com/ormasoftchile/flowgraph/pkg/ctxlog"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath string
	logLevel   string
	nodeDump   bool

	cfg    = config.Default()
	logger = slog.Default()
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flowgraph",
	Short: "Pipeline run graphs from execution traces",
	Long: "flowgraph rebuilds the stages, parallel branches and steps of a pipeline run from its " +
		"execution trace, while the run is in progress or after it completes.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup loads flowgraph.yaml, then FLOWGRAPH_* variables, then flags, and
// installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if flagChanged(cmd, "log-level") {
		cfg.LogLevel = logLevel
	}
	if flagChanged(cmd, "dump") {
		cfg.Dump = nodeDump
	}
	if cfg.Dump {
		cfg.LogLevel = "debug"
	}

	level, err := ctxlog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = ctxlog.New(os.Stderr, level)
	slog.SetDefault(logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctxlog.WithLogger(ctx, logger))
	return nil
}

// flagChanged looks the flag up on cmd and its parents.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

// graphOptions are the builder options every command scans with.
func graphOptions() []graph.Option {
	return []graph.Option{graph.WithLogger(logger), graph.WithNodeDump(cfg.Dump)}
}

var traceExts = []string{".jsonl", ".yaml", ".yml", ".json"}

// resolveTrace accepts a path, or a run id looked up in the traces directory.
func resolveTrace(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	for _, ext := range traceExts {
		candidate := filepath.Join(cfg.Traces, arg+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("trace %q not found (looked in %s)", arg, cfg.Traces)
}

func loadTrace(arg string) (*flow.Execution, error) {
	path, err := resolveTrace(arg)
	if err != nil {
		return nil, err
	}
	return trace.LoadFile(path)
}

func scanTrace(arg string) (*graph.Builder, error) {
	exec, err := loadTrace(arg)
	if err != nil {
		return nil, err
	}
	return graph.Build(exec, graphOptions()...), nil
}

func runName(exec *flow.Execution) string {
	if exec == nil {
		return "run"
	}
	if exec.Name != "" {
		return exec.Name
	}
	return exec.ID
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowgraph %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to flowgraph.yaml (default: nearest in a parent directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&nodeDump, "dump", false, "Log every scan event at debug level")
	rootCmd.AddCommand(versionCmd)
}
