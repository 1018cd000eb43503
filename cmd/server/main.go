// Package main - Entry point for the restaurant-rank HTTP server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restaurant-rank/adapters/storage"
	"restaurant-rank/api"
	"restaurant-rank/internal/config"
	"restaurant-rank/internal/logging"
)

const version = "0.1.0"

var (
	addr    string
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:          "restaurant-rank-server",
	Short:        "Serve the restaurant ranking API over HTTP",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "server address")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (.json, .yaml or .hcl)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "file of RANKER_* variables to load")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()
	log := logging.Named("server")

	var store storage.Store
	if cfg.History.Enabled {
		store, err = storage.StoreFactory(storage.Backend(cfg.History.Backend), map[string]string{
			"path": cfg.History.Path,
		})
		if err != nil {
			return err
		}
		defer store.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api.NewServer(version, cfg, store)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("version", version), zap.Bool("history", store != nil))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
