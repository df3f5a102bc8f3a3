package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
)

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [trace]",
	Short: "Validate a trace and the graph built from it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := resolveTrace(args[0])
	if err != nil {
		return err
	}

	exec, errs := trace.ValidateFile(path)
	printValidationWarnings(errs)
	if flow.HasErrors(errs) {
		n := countValidationErrors(errs)
		fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n\n", n)
		i := 0
		for _, e := range errs {
			if e.Severity == "warning" {
				continue
			}
			i++
			fmt.Fprintf(os.Stderr, "  %d. [%s] %s\n", i, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(os.Stderr, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", n)
	}

	b := graph.Build(exec, graphOptions()...)
	if err := graph.Validate(b.Graph()); err != nil {
		fmt.Fprintf(os.Stderr, "  [graph] %v\n", err)
		return fmt.Errorf("graph validation failed")
	}
	fmt.Printf("✓ %s is valid (%d nodes, %d stages and branches)\n", runName(exec), len(exec.Nodes), b.Graph().Len())
	return nil
}

func countValidationErrors(errs []*flow.ValidationError) int {
	n := 0
	for _, e := range errs {
		if e.Severity != "warning" {
			n++
		}
	}
	return n
}

func printValidationWarnings(errs []*flow.ValidationError) {
	for _, w := range errs {
		if w.Severity != "warning" {
			continue
		}
		fmt.Fprintf(os.Stderr, "  ⚠ [%s] %s\n", w.Phase, w.Message)
		if w.Path != "" {
			fmt.Fprintf(os.Stderr, "    at: %s\n", w.Path)
		}
	}
}

// --- schema ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the JSON Schema of flowgraph/v0 trace documents to stdout",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	data, err := flow.GenerateJSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	var out json.RawMessage = data
	formatted, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(string(formatted))
	return nil
}

func init() {
	schemaCmd.AddCommand(schemaExportCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
}
