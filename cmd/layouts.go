// Package cmd provides command-line interface for sector layouts.
// This file contains the command listing the layouts known to sectorstream.
package cmd

import (
	"github.com/hansbonini/sectorstream/pkg/stream"
	"github.com/spf13/cobra"
)

// layoutsCmd prints every registered sector layout as YAML.
var layoutsCmd = &cobra.Command{
	Use:   "layouts",
	Short: "List the available sector layouts",
	Long: `List the available sector layouts as YAML.

The output contains the built-in CD-ROM layouts followed by those loaded with
--layouts, and can itself be used as a --layouts file.

Example:
  sectorstream layouts
  sectorstream layouts --layouts custom.yaml > all.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		return stream.WriteLayouts(cmd.OutOrStdout(), registry.Layouts())
	},
}

func init() {
	rootCmd.AddCommand(layoutsCmd)
}
