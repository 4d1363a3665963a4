// Package version provides the version command for the mergekit CLI.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/release"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewCommand returns the version subcommand.
func NewCommand() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the mergekit version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("mergekit %s\n", Version)

			if !check {
				return nil
			}
			info, err := release.CheckLatest(Version)
			if err != nil {
				return err
			}
			if info == nil {
				fmt.Println("You are up to date.")
				return nil
			}
			fmt.Print(release.FormatNotice(Version, info))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
