// Package extract provides the "mergekit extract" command.
package extract

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
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/output"
	"github.com/klytics/mergekit/internal/xlsx"
)

// NewCommand returns the extract subcommand.
func NewCommand() *cobra.Command {
	var (
		mappingPath string
		outPath     string
		imagesDir   string
	)

	cmd := &cobra.Command{
		Use:   "extract <workbook.xlsx>",
		Short: "Extract configured subtables from a workbook",
		Long: `Locates each configured subtable in the workbook, reads its data and
outputs a JSON document. Embedded images referenced by image-typed fields are
written to --images-dir when given.`,
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

			wb, err := xlsx.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			result, err := extract.New(cfg).Run(wb)
			if err != nil {
				return err
			}

			if imagesDir != "" && len(result.Images) > 0 {
				if err := writeImages(imagesDir, result.Images); err != nil {
					return err
				}
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("could not encode result: %w", err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, data, 0o644); err != nil {
					return fmt.Errorf("could not write %s: %w", outPath, err)
				}
			} else if err := output.NewWriter().WriteLn(string(data)); err != nil {
				return err
			}

			if !jsonFlag {
				printSummary(result, outPath, imagesDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "Mapping configuration file (JSON or YAML, default from config)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the data document to this file instead of stdout")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "", "Directory for extracted images")

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

func writeImages(dir string, images map[string]extract.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create images directory: %w", err)
	}
	for key, img := range images {
		name := strings.ReplaceAll(key, string(filepath.Separator), "_") + img.Extension
		if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
			return fmt.Errorf("could not write image %s: %w", name, err)
		}
	}
	return nil
}

func printSummary(result *extract.Result, outPath, imagesDir string) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	subtables := 0
	for _, sheet := range result.Data {
		subtables += len(sheet)
	}
	green.Fprintf(os.Stderr, "Extracted %d subtable(s) from %d sheet(s)\n", subtables, len(result.Data))

	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Data written to %s\n", outPath)
	}
	if imagesDir != "" && len(result.Images) > 0 {
		fmt.Fprintf(os.Stderr, "%d image(s) written to %s\n", len(result.Images), imagesDir)
	}
	for _, warning := range result.Warnings {
		yellow.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
}
