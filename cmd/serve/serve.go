// Package serve provides the "mergekit serve" command.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/mergekit/internal/config"
	"github.com/klytics/mergekit/internal/server"
)

// NewCommand returns the serve subcommand.
func NewCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction/update/merge HTTP API",
		Long: `Starts an HTTP server exposing POST /api/v1/extract, /api/v1/update and
/api/v1/merge as multipart endpoints, plus GET /healthz. Stops cleanly on
SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			srv := server.New(server.Options{
				Addr:            addr,
				MaxUploadMB:     cfg.Server.MaxUploadMB,
				ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Listening on %s\n", addr)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
