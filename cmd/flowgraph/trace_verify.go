package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
)

var traceVerifyCmd = &cobra.Command{
	Use:   "verify [trace.jsonl]",
	Short: "Verify trace file integrity (hash chain + signature)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceVerify,
}

func runTraceVerify(cmd *cobra.Command, args []string) error {
	path, err := resolveTrace(args[0])
	if err != nil {
		return err
	}
	result, err := trace.VerifyFile(path)
	if err != nil {
		return err
	}

	if !result.Valid {
		fmt.Printf("✗ Chain broken at event %d\n", result.BrokenAt)
		if result.Error != "" {
			fmt.Printf("  %s\n", result.Error)
		}
		return fmt.Errorf("chain verification failed")
	}

	fmt.Printf("✓ Chain integrity: %d events, no breaks\n", result.EventCount)

	if result.Signed {
		switch {
		case result.SignatureOK:
			fmt.Printf("✓ Signature valid\n")
		case result.SignatureNoKey:
			fmt.Printf("⚠ Signature present but no %s set to verify\n", trace.SigningKeyEnv)
		default:
			fmt.Printf("✗ Signature invalid\n")
			return fmt.Errorf("signature verification failed")
		}
	}
	return nil
}

func init() {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace file operations",
	}
	traceCmd.AddCommand(traceVerifyCmd)
	rootCmd.AddCommand(traceCmd)
}
