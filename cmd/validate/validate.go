// Package validate provides the "mergekit validate" command.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/mapping"
)

// NewCommand returns the validate subcommand.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mapping.json|mapping.yaml>",
		Short: "Check a mapping configuration for structural problems",
		Long: `Parses the mapping configuration and reports every structural problem at
once: unknown kinds, bad search ranges, duplicate subtable names, invalid
value types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			cfg, err := mapping.Load(args[0])

			var ve *mapping.ValidationError
			if errors.As(err, &ve) {
				if jsonFlag {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					_ = enc.Encode(map[string]any{"valid": false, "problems": ve.Problems})
				} else {
					red := color.New(color.FgRed)
					red.Printf("Invalid: %d problem(s)\n", len(ve.Problems))
					for _, p := range ve.Problems {
						fmt.Printf("  - %s\n", p)
					}
				}
				os.Exit(1)
			}
			if err != nil {
				return err
			}

			subtables := 0
			for _, sheet := range cfg.Sheets {
				subtables += len(sheet.Subtables)
			}

			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"valid":     true,
					"sheets":    len(cfg.Sheets),
					"subtables": subtables,
				})
			}

			green := color.New(color.FgGreen)
			green.Printf("Valid: %d sheet(s), %d subtable(s)\n", len(cfg.Sheets), subtables)
			return nil
		},
	}
	return cmd
}
