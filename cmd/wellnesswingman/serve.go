package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DigitumDei/WellnessWingman-sub001/cmd/config"
)

var shutdownTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API and the background analysis pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		container, err := config.NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		logger := container.Logger.Logger

		recovered := container.Recovery.RunInBackground(ctx)
		go func() {
			if report, ok := <-recovered; ok {
				logger.Info("startup recovery finished",
					"reset", len(report.Reset), "requeued", len(report.Requeued), "failed", len(report.Failed))
			}
		}()

		app := config.NewApp(container)
		serveErr := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.App.ListenAddr)
			serveErr <- app.Listen(cfg.App.ListenAddr)
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case err = <-serveErr:
			if err != nil {
				logger.Error("server stopped", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpErr := app.ShutdownWithContext(shutdownCtx)
		return errors.Join(err, httpErr, container.Close(shutdownCtx))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "How long to wait for in-flight analysis on shutdown")
}
