// Package update provides the "mergekit update" command.
package update

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/config"
	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/imaging"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/update"
	"github.com/klytics/mergekit/internal/xlsx"
)

// NewCommand returns the update subcommand.
func NewCommand() *cobra.Command {
	var (
		mappingPath string
		dataPath    string
		outPath     string
		imagesDir   string
		auditLog    string
	)

	cmd := &cobra.Command{
		Use:   "update <workbook.xlsx>",
		Short: "Write a data document back into a workbook",
		Long: `Applies an extracted-and-edited JSON data document to the workbook in
place, preserving formatting, formulas, merged cells and images around the
configured regions. The updated file carries an update_log worksheet
recording every change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			path, err := resolveMappingPath(mappingPath)
			if err != nil {
				return err
			}
			cfg, err := mapping.Load(path)
			if err != nil {
				return err
			}

			payload, err := loadData(dataPath)
			if err != nil {
				return err
			}

			images, err := loadImages(imagesDir)
			if err != nil {
				return err
			}

			wb, err := xlsx.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			result, err := update.New(cfg).Run(wb, payload, images)
			if err != nil {
				return err
			}

			target := outPath
			if target == "" {
				target = args[0]
			}
			if err := wb.SaveAs(target); err != nil {
				return err
			}

			if auditLog != "" {
				if err := result.Log.WriteJSONL(auditLog); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not write audit log: %v\n", err)
				}
			}

			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printSummary(result, target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "Mapping configuration file (JSON or YAML, default from config)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "Data document (JSON) to apply")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the updated workbook here instead of in place")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "Directory holding images referenced by image-typed fields")
	cmd.Flags().StringVar(&auditLog, "audit-log", config.DefaultAuditLog(), "JSONL audit log file (empty to disable)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

// resolveMappingPath falls back to the configured default mapping file.
func resolveMappingPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg, err := config.Load(); err == nil && cfg.MappingPath != "" {
		return cfg.MappingPath, nil
	}
	return "", fmt.Errorf("no mapping file — pass --mapping or set mapping_path via 'mergekit config set'")
}

func loadData(path string) (map[string]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read data document %s: %w", path, err)
	}

	var doc struct {
		Data map[string]map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid data document %s: %w", path, err)
	}
	if doc.Data == nil {
		// Accept a bare sheet map without the data envelope.
		if err := json.Unmarshal(raw, &doc.Data); err != nil || doc.Data == nil {
			return nil, fmt.Errorf("data document %s has no \"data\" object", path)
		}
	}
	return doc.Data, nil
}

// loadImages reads every validated image in the directory into the side
// channel, keyed by its file name without extension.
func loadImages(dir string) (map[string]extract.Image, error) {
	if dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read images directory %s: %w", dir, err)
	}

	images := make(map[string]extract.Image)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("could not read image %s: %w", entry.Name(), err)
		}
		info, err := imaging.Validate(data)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", entry.Name(), err)
		}

		key := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		images[key] = extract.Image{Data: data, Extension: info.Extension}
	}
	return images, nil
}

func printSummary(result *update.Result, target string) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	green.Printf("Updated %s: %d cell(s) written", target, result.Summary.Success)
	if result.Summary.Warnings > 0 {
		yellow.Printf(", %d warning(s)", result.Summary.Warnings)
	}
	fmt.Println()

	for _, cellErr := range result.CellErrors {
		red.Printf("Failed: %s\n", cellErr)
	}
	if len(result.CellErrors) > 0 {
		fmt.Printf("Failed cells were marked %s — fix the input values and re-run.\n", update.Sentinel)
	}
}
