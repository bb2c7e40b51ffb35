package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/kai/internal/logging"
	"github.com/ShayCichocki/kai/internal/metrics"
)

var metricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose Prometheus metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closeLog, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer closeLog()

		addr := metricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on %s/metrics\n", addr)
		return serveMetrics(ctx, addr, logger)
	},
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "Listen address (default: metrics.addr)")
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
