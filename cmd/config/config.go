// Package config provides the "mergekit config" commands for managing settings.
package config

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/config"
	"github.com/klytics/mergekit/internal/output"
)

// NewCommand creates the "config" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mergekit configuration",
		Long:  "View, set and validate configuration stored in ~/.mergekit/config.yaml.",
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newSiteTemplateCmd())

	return cmd
}

func newInitCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Run the interactive setup wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes {
				if err := config.WizardNonInteractive(); err != nil {
					return err
				}
				fmt.Printf("Config written to %s\n", config.ConfigPath())
				return nil
			}
			return config.Wizard(nil)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if jsonFlag {
				return output.NewWriter().WriteJSON(cfg)
			}
			return output.NewWriter().WriteText(config.ShowConfig())
		},
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			fmt.Println(config.Get(args[0]))
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and report issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			if _, err := config.Load(); err != nil {
				return err
			}
			issues := config.Validate()

			if jsonFlag {
				return output.NewWriter().WriteJSON(issues)
			}

			red := color.New(color.FgRed)
			yellow := color.New(color.FgYellow)
			errors := 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errors++
					red.Printf("error: %s: %s\n", issue.Key, issue.Message)
				case "warning":
					yellow.Printf("warning: %s: %s\n", issue.Key, issue.Message)
				default:
					fmt.Printf("info: %s: %s\n", issue.Key, issue.Message)
				}
				if issue.Fix != "" {
					fmt.Printf("  fix: %s\n", issue.Fix)
				}
			}
			if errors > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Println("Configuration reset to defaults.")
			return nil
		},
	}
}

func newSiteTemplateCmd() *cobra.Command {
	var (
		orgName string
		domain  string
	)

	cmd := &cobra.Command{
		Use:   "site-template",
		Short: "Print a site-wide configuration template",
		Long:  "Prints a YAML template for the machine-wide config administrators deploy to " + config.SiteConfigPath() + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.NewWriter().WriteText(config.GenerateSiteTemplate(orgName, domain))
		},
	}

	cmd.Flags().StringVar(&orgName, "org", "Example Corp", "Organization name")
	cmd.Flags().StringVar(&domain, "domain", "example.com", "Organization domain")
	return cmd
}
