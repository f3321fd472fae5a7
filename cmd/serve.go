package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/International-Combat-Archery-Alliance/fan-registration/api"
	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the registration form and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx, &lazySSMResolver{})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stdout, cfg.Env)

	tp, err := setupTracing(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pipeline, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fanAPI := api.NewAPI(pipeline, logger, cfg.Env, cfg.StripePublishableKey, cfg.AllowedOrigin)
	handler, err := fanAPI.Handler()
	if err != nil {
		return fmt.Errorf("failed to build http handler: %w", err)
	}

	s := &http.Server{
		Handler:           otelhttp.NewHandler(handler, serviceName),
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", slog.String("addr", s.Addr), slog.String("notifier", string(cfg.Notifier)))
		serveErr <- s.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = s.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("Failed to shut down server", slog.String("error", err.Error()))
	}

	err = pipeline.Close(shutdownCtx)
	if err != nil {
		logger.Error("Failed to drain notifications", slog.String("error", err.Error()))
	}

	err = tp.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("Failed to flush traces", slog.String("error", err.Error()))
	}

	return nil
}
