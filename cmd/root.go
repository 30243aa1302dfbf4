// Package cmd provides command-line interface functionality for sectorstream.
// sectorstream reads raw CD-ROM images as logical payload streams, skipping
// the per-sector sync, header and error correction bytes.
package cmd

import (
	"os"

	"github.com/hansbonini/sectorstream/pkg/common"
	"github.com/hansbonini/sectorstream/pkg/stream"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
// It provides the main entry point for the sectorstream application.
var rootCmd = &cobra.Command{
	Use:   "sectorstream",
	Short: "Read raw CD-ROM images as logical payload streams",
	Long: `sectorstream - Read raw CD-ROM images (2352-byte sectors) as logical
payload streams.

Supported sector layouts:
  - mode1     (16 byte lead-in, 2048 byte payload, 288 byte EDC/ECC)
  - mode2     (16 byte lead-in, 2336 byte payload)
  - xa-form1  (24 byte lead-in, 2048 byte payload, 280 byte EDC/ECC)
  - xa-form2  (24 byte lead-in, 2324 byte payload, 4 byte EDC)
  - any layout defined in a --layouts yaml file

Images may be stored raw or compressed (.gz, .zip, .7z, .zst, .lz4, .sz).

Examples:
  sectorstream cd extract original.bin payload.iso
  sectorstream cd extract --mode xa-form2 --start-sector 1500 --sectors 300 original.bin movie.str
  sectorstream cd info original.bin.7z
  sectorstream cd patch --offset 37632 original.bin sector16.raw
  sectorstream layouts --layouts custom.yaml

Use 'sectorstream [command] --help' for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		common.SetVerboseMode(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main() and serves as the entry point for command execution.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		common.LogError("%v", err)
		os.Exit(1)
	}
}

// loadRegistry returns the default layouts plus those from the --layouts file.
func loadRegistry(cmd *cobra.Command) (*stream.Registry, error) {
	registry := stream.DefaultRegistry()

	path, err := cmd.Flags().GetString("layouts")
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToLoadLayouts, err)
	}
	if path == "" {
		return registry, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToOpenLayouts, err)
	}
	defer f.Close()

	layouts, err := stream.LoadLayouts(f)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToLoadLayouts, err)
	}
	for _, l := range layouts {
		if err := registry.Register(l); err != nil {
			return nil, common.FormatError(common.ErrFailedToLoadLayouts, err)
		}
	}
	common.LogInfo(common.InfoLayoutsLoaded, len(layouts), path)
	return registry, nil
}

// init initializes the root command with flags and configuration settings.
func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output with debug logging")
	rootCmd.PersistentFlags().String("layouts", "", "YAML file with additional sector layouts")
}
