package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
)

var (
	recordDelay string
	recordRunID string
	recordForce bool
)

var recordCmd = &cobra.Command{
	Use:   "record [trace] [out.jsonl]",
	Short: "Write a trace as a hash-chained JSONL stream, optionally paced",
	Long: `Replay the nodes of a trace into a JSONL stream, one event per node. With
--delay the stream grows at that pace, which lets watch, explore and serve be
tried against a run that is still in progress.`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	exec, err := loadTrace(args[0])
	if err != nil {
		return err
	}
	delay, err := time.ParseDuration(recordDelay)
	if err != nil {
		return fmt.Errorf("invalid --delay: %w", err)
	}

	out := args[1]
	if _, err := os.Stat(out); err == nil {
		if !recordForce {
			return fmt.Errorf("%s exists (use --force to overwrite)", out)
		}
		if err := os.Remove(out); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	runID := recordRunID
	switch runID {
	case "":
		runID = exec.ID
	case "new":
		runID = uuid.NewString()
	}
	tw, err := trace.NewFileWriter(out, runID)
	if err != nil {
		return err
	}
	defer tw.Close()

	err = tw.RecordEach(exec, func(n *flow.Node) error {
		logger.Debug("recorded node", "id", n.ID, "kind", n.Kind)
		if delay <= 0 {
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(delay):
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", out, err)
	}
	fmt.Printf("✓ Recorded %d nodes of %s to %s\n", len(exec.Nodes), tw.RunID(), out)
	return nil
}

func init() {
	recordCmd.Flags().StringVar(&recordDelay, "delay", "0s", "Pause after each node (e.g. 500ms)")
	recordCmd.Flags().StringVar(&recordRunID, "run-id", "", `Run id for the stream (default: the trace's; "new" for a fresh UUID)`)
	recordCmd.Flags().BoolVar(&recordForce, "force", false, "Overwrite an existing output file")
	rootCmd.AddCommand(recordCmd)
}
