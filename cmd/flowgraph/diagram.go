package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/diagram"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/report"
)

var (
	diagramFormat string
	diagramFuture string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [trace]",
	Short: "Draw the stage graph of a run (mermaid or ascii)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := scanTrace(args[0])
		if err != nil {
			return err
		}
		g := b.Graph()
		if diagramFuture != "" {
			last, err := scanTrace(diagramFuture)
			if err != nil {
				return fmt.Errorf("--future: %w", err)
			}
			g = graph.Union(g, graph.Placeholders(last.Graph()))
		}
		out, err := diagram.Generate(g, runName(b.Execution()), diagram.Format(diagramFormat))
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

var (
	reportStyle string
	reportWidth int
	reportRaw   bool
)

var reportCmd = &cobra.Command{
	Use:   "report [trace]",
	Short: "Summarise a run as markdown rendered for the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := scanTrace(args[0])
		if err != nil {
			return err
		}
		md := report.Markdown(b)
		if reportRaw {
			fmt.Print(md)
			return nil
		}
		out, err := report.Render(md, reportStyle, reportWidth)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	diagramCmd.Flags().StringVar(&diagramFormat, "format", string(diagram.FormatASCII), "Diagram format: mermaid or ascii")
	diagramCmd.Flags().StringVar(&diagramFuture, "future", "", "Completed run whose remaining stages are drawn as placeholders")

	reportCmd.Flags().StringVar(&reportStyle, "style", "", "glamour style: dark, light, notty (default: detect)")
	reportCmd.Flags().IntVar(&reportWidth, "width", 100, "Word wrap width")
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "Print the markdown without rendering")

	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(reportCmd)
}
