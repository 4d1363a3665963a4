// Package merge provides the "mergekit merge" command.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/pptx"
	"github.com/klytics/mergekit/internal/xlsx"
)

// NewCommand returns the merge subcommand.
func NewCommand() *cobra.Command {
	var (
		mappingPath string
		dataPath    string
		outPath     string
		listFields  bool
	)

	cmd := &cobra.Command{
		Use:   "merge <template.pptx> [workbook.xlsx]",
		Short: "Merge extracted workbook data into a PowerPoint template",
		Long: `Fills {{merge.field}} placeholders in the template with values extracted
from the workbook (or taken from a previously extracted data document).
Fields address values as sheet.subtable.field, with sheet.subtable.N.field
for table rows.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			templatePath := args[0]

			if listFields {
				return printFields(templatePath, jsonFlag)
			}

			data, err := resolveData(args, mappingPath, dataPath)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = strings.TrimSuffix(templatePath, ".pptx") + ".merged.pptx"
			}

			result, err := pptx.MergeFile(templatePath, pptx.Flatten(data), outPath)
			if err != nil {
				return err
			}

			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			green := color.New(color.FgGreen)
			green.Printf("Merged %d field(s) into %s\n", result.Applied, outPath)
			if result.Missing > 0 {
				yellow := color.New(color.FgYellow)
				yellow.Printf("Missing values for: %s\n", strings.Join(result.MissingNames, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "Mapping configuration (required with a workbook argument)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "Use an existing extracted data document instead of a workbook")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output .pptx path (default <template>.merged.pptx)")
	cmd.Flags().BoolVar(&listFields, "fields", false, "List the template's merge fields and exit")

	return cmd
}

// resolveData extracts fresh data from a workbook argument or loads a
// previously extracted document.
func resolveData(args []string, mappingPath, dataPath string) (map[string]map[string]any, error) {
	if dataPath != "" {
		raw, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, fmt.Errorf("could not read data document %s: %w", dataPath, err)
		}
		var doc struct {
			Data map[string]map[string]any `json:"data"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("invalid data document %s: %w", dataPath, err)
		}
		return doc.Data, nil
	}

	if len(args) < 2 {
		return nil, fmt.Errorf("pass a workbook argument or --data — there is nothing to merge")
	}
	if mappingPath == "" {
		return nil, fmt.Errorf("--mapping is required when extracting from a workbook")
	}

	cfg, err := mapping.Load(mappingPath)
	if err != nil {
		return nil, err
	}
	wb, err := xlsx.OpenFile(args[1])
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	result, err := extract.New(cfg).Run(wb)
	if err != nil {
		return nil, err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return result.Data, nil
}

func printFields(templatePath string, jsonFlag bool) error {
	deck, err := pptx.InspectFile(templatePath)
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deck)
	}

	bold := color.New(color.Bold)
	for _, slide := range deck.Slides {
		bold.Printf("Slide %d\n", slide.Number)
		if len(slide.Fields) == 0 {
			fmt.Println("  (no merge fields)")
			continue
		}
		for _, f := range slide.Fields {
			fmt.Printf("  {{%s}}\n", f)
		}
	}
	return nil
}
