package main

import (
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/flowgraph/pkg/ecosystem/tui"
	"github.com/ormasoftchile/flowgraph/pkg/explorer"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [trace]",
	Short: "Browse the graph of a run interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveTrace(args[0])
		if err != nil {
			return err
		}
		e, err := explorer.New(explorer.Loader(tui.FileLoader(path)), graphOptions()...)
		if err != nil {
			return err
		}
		return e.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}
