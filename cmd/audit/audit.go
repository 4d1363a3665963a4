// Package audit provides the "mergekit audit" commands for viewing update logs.
package audit

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	auditpkg "github.com/klytics/mergekit/internal/audit"
	"github.com/klytics/mergekit/internal/config"
	"github.com/klytics/mergekit/internal/output"
)

// NewCommand creates the "audit" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View and manage update audit logs",
		Long:  "View the JSONL audit log written by update runs, filter it, and clear it.",
	}

	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

func newLogCmd() *cobra.Command {
	var (
		last      int
		operation string
		status    string
		since     string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			entries, err := auditpkg.ReadJSONL(file)
			if err != nil {
				return err
			}

			var sinceTime time.Time
			if since != "" {
				sinceTime, err = time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q (want YYYY-MM-DD)", since)
				}
			}

			entries = auditpkg.Filter(entries, sinceTime, time.Time{}, operation, status)
			if last > 0 && len(entries) > last {
				entries = entries[len(entries)-last:]
			}

			if jsonFlag {
				return output.NewWriter().WriteJSON(entries)
			}

			if len(entries) == 0 {
				fmt.Println("No audit entries found.")
				return nil
			}

			var buf strings.Builder
			w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOPERATION\tCELL\tSTATUS\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Operation, e.Cell, e.Status, e.Details)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return output.NewWriter().PageOrPrint(buf.String())
		},
	}

	cmd.Flags().IntVar(&last, "last", 50, "Show only the last N entries")
	cmd.Flags().StringVar(&operation, "operation", "", "Filter by operation substring")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (INFO, SUCCESS, WARNING, ERROR)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&file, "file", config.DefaultAuditLog(), "Audit log file")

	return cmd
}

func newClearCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Truncate the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.Truncate(file, 0); err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("could not clear audit log: %w", err)
			}
			fmt.Println("Audit log cleared.")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", config.DefaultAuditLog(), "Audit log file")
	return cmd
}
