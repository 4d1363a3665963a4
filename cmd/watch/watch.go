// Package watch provides the "mergekit watch" command.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/config"
	"github.com/klytics/mergekit/internal/extract"
	"github.com/klytics/mergekit/internal/mapping"
	"github.com/klytics/mergekit/internal/watch"
	"github.com/klytics/mergekit/internal/xlsx"
)

// NewCommand returns the watch subcommand.
func NewCommand() *cobra.Command {
	var (
		mappingPath string
		outDir      string
		recursive   bool
	)

	cmd := &cobra.Command{
		Use:   "watch <directory>...",
		Short: "Re-extract workbooks whenever they change",
		Long: `Watches the given directories for .xlsx changes and re-runs extraction on
each modified workbook, writing <workbook>.json next to it (or into --out-dir).
Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mapping.Load(mappingPath)
			if err != nil {
				return err
			}

			appCfg, err := config.Load()
			if err != nil {
				return err
			}

			engine := extract.New(cfg)
			handler := func(path string) error {
				return extractToJSON(engine, path, outDir)
			}

			w, err := watch.New(watch.Options{
				Paths:     args,
				Recursive: recursive,
				Debounce:  time.Duration(appCfg.Watch.DebounceMs) * time.Millisecond,
			}, handler)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "Mapping configuration file (JSON or YAML)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for extracted data documents (default: next to the workbook)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch subdirectories too")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func extractToJSON(engine *extract.Engine, workbookPath, outDir string) error {
	wb, err := xlsx.OpenFile(workbookPath)
	if err != nil {
		return err
	}
	defer wb.Close()

	result, err := engine.Run(wb)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode result: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(workbookPath), ".xlsx") + ".json"
	target := filepath.Join(filepath.Dir(workbookPath), base)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("could not create output directory: %w", err)
		}
		target = filepath.Join(outDir, base)
	}
	return os.WriteFile(target, data, 0o644)
}
