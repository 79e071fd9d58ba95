package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philipparndt/goobj/internal/catalog"
	"github.com/philipparndt/goobj/internal/config"
	"github.com/philipparndt/goobj/internal/httpapi"
	"github.com/philipparndt/goobj/internal/logger"
	"github.com/philipparndt/goobj/internal/metrics"
	"github.com/philipparndt/goobj/internal/storage"
	"github.com/philipparndt/goobj/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveFlags struct {
	config string
	addr   string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the model upload and optimization service",
	Long: `Serve the HTTP API for optimizing models and managing the model catalog.
Settings come from goobj.yaml and GOOBJ_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.config, "config", "c", "", "config file (default: goobj.yaml in ., ~/.config/goobj, /etc/goobj)")
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address, overrides http.addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveFlags.config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if serveFlags.addr != "" {
		cfg.HTTP.Addr = serveFlags.addr
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn("Failed to close storage", zap.Error(err))
			}
		}()
	}

	m := metrics.New()
	svc := catalog.NewService(store,
		catalog.WithLogger(log.Named("catalog")),
		catalog.WithRecorder(m),
		catalog.WithPercentClamp(cfg.Optimizer.ClampPercent),
	)
	server := httpapi.NewServer(svc,
		httpapi.WithLogger(log.Named("http")),
		httpapi.WithMetricsHandler(m.Handler()),
		httpapi.WithMaxBodySize(cfg.HTTP.MaxBodySize),
		httpapi.WithDefaultReduction(cfg.Optimizer.DefaultReduction),
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	log.Info("Starting goobj service",
		zap.String("version", version.GetFullVersion()),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
