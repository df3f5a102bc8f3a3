package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/ecosystem/tui"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/status"
)

var (
	watchInterval string
	watchPlain    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [trace]",
	Short: "Follow a run while its trace grows",
	Long: `Poll a trace file, rescan it and merge each scan into the graph on screen
until the run finishes. --plain prints a line per status change instead of the
interactive view.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := resolveTrace(args[0])
	if err != nil {
		return err
	}
	interval := time.Duration(cfg.Poll)
	if cmd.Flags().Changed("interval") {
		if interval, err = time.ParseDuration(watchInterval); err != nil {
			return fmt.Errorf("invalid --interval: %w", err)
		}
	}
	if interval <= 0 {
		return fmt.Errorf("invalid --interval: must be positive")
	}

	load := tui.FileLoader(path)
	if !watchPlain {
		return tui.Run(tui.Config{Load: load, Interval: interval, GraphOpts: graphOptions()})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return watchPlainLoop(ctx, os.Stdout, load, interval)
}

// watchPlainLoop prints a line whenever a node appears or changes status.
func watchPlainLoop(ctx context.Context, w io.Writer, load tui.Loader, interval time.Duration) error {
	shown := map[string]status.RunStatus{}
	g := graph.Empty()
	for {
		exec, err := load()
		ts := time.Now().Format("15:04:05")
		if err != nil {
			// half-written traces are retried
			fmt.Fprintf(w, "%s  ! %v\n", ts, err)
		} else {
			b := graph.Build(exec, graphOptions()...)
			g = graph.Union(b.Graph(), g)
			for _, n := range g.Nodes() {
				if prev, ok := shown[n.ID]; ok && prev == n.Status {
					continue
				}
				shown[n.ID] = n.Status
				fmt.Fprintf(w, "%s  %s %s %s\n", ts, statusIcon(n.Status), n.DisplayName, eval.FormatMillis(n.Timing.TotalDurationMillis))
			}
			if !exec.Building {
				fmt.Fprintf(w, "  Watch stopped: run finished %s\n", exec.Result)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func statusIcon(s status.RunStatus) string {
	switch {
	case s.Unset():
		return "·"
	case s.State == status.StateRunning:
		return "▶"
	case s.State == status.StatePaused, s.State == status.StateQueued:
		return "⏸"
	case s.Result == status.ResultSuccess:
		return "✓"
	case s.Result == status.ResultFailure, s.Result == status.ResultAborted:
		return "✗"
	default:
		return "!"
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchInterval, "interval", "2s", "Time between scans (default: poll from flowgraph.yaml)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print status changes instead of the interactive view")
	rootCmd.AddCommand(watchCmd)
}
