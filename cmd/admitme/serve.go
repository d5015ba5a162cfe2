package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				app.Logger.Error("close database", "error", err)
			}
		}()

		if autoMigrate {
			if err := app.Migrate(ctx); err != nil {
				return err
			}
		}

		server, err := app.Server()
		if err != nil {
			return err
		}

		addr := fmt.Sprintf(":%d", app.Config.Port)
		errCh := make(chan error, 1)
		go func() {
			app.Logger.Info("starting admitme", "addr", addr, "env", app.Config.AppEnv)
			errCh <- server.Serve(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		app.Logger.Info("shutting down admitme")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply migrations before serving")
}
