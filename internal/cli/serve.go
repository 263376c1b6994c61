package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zoobzio/areabook/contacts"
	"github.com/zoobzio/areabook/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the contact list API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := server.DefaultConfig()
			if configPath != "" {
				loaded, err := server.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			srv := server.New(cfg, contacts.NewStore(cfg.DataDir), logger)
			defer func() { _ = srv.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}
