// Package cmd contains all CLI commands for the mergekit binary.
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cmdaudit "github.com/klytics/mergekit/cmd/audit"
	"github.com/klytics/mergekit/cmd/completion"
	cmdconfig "github.com/klytics/mergekit/cmd/config"
	"github.com/klytics/mergekit/cmd/extract"
	"github.com/klytics/mergekit/cmd/merge"
	"github.com/klytics/mergekit/cmd/serve"
	cmdupdate "github.com/klytics/mergekit/cmd/update"
	"github.com/klytics/mergekit/cmd/validate"
	"github.com/klytics/mergekit/cmd/version"
	cmdwatch "github.com/klytics/mergekit/cmd/watch"
	"github.com/klytics/mergekit/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mergekit",
		Short: "Config-driven Excel extraction, update and PowerPoint merge",
		Long: `MergeKit — spreadsheets in, presentations out.

Locates configured data regions in .xlsx workbooks, extracts them to a
canonical JSON document, writes edited data back without disturbing layout,
and merges extracted values into .pptx templates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	// Register subcommands
	rootCmd.AddCommand(extract.NewCommand())
	rootCmd.AddCommand(cmdupdate.NewCommand())
	rootCmd.AddCommand(merge.NewCommand())
	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdaudit.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		output.WriteError("%s", err)
		os.Exit(1)
	}
}
