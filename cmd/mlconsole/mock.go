package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sajagmathur/mlconsole/internal/config"
	"github.com/sajagmathur/mlconsole/internal/metrics"
	"github.com/sajagmathur/mlconsole/internal/mockapi"
)

var mockServeCmd = &cobra.Command{
	Use:   "mock-serve",
	Short: "Start the mock MLOps backend",
	Long:  "Starts an in-memory backend implementing the console API with seeded fixture data, for local development and demos.",
	RunE:  runMockServe,
}

func init() {
	rootCmd.AddCommand(mockServeCmd)
}

func runMockServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m := metrics.New()
	server := mockapi.NewServer(cfg, m)

	srv := &http.Server{
		Addr:         cfg.MockAddr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Mock.ReadTimeout,
		WriteTimeout: cfg.Mock.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("mock backend starting", "addr", cfg.MockAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
