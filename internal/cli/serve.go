package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pfrederiksen/run-events/internal/cache"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/pfrederiksen/run-events/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregated events over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, os.Stdout)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	agg, err := buildAggregator(cfg)
	if err != nil {
		return err
	}
	c, err := buildCache(cfg, agg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Prewarm {
		go cache.Prewarm(ctx, c)
	}

	if cfg.RefreshCron != "" {
		scheduler, err := startRefreshSchedule(ctx, cfg.RefreshCron, c)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr: cfg.Listen,
		Handler: server.New(c, server.Options{
			StaticDir: cfg.StaticDir,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", logger.Fields{"listen": cfg.Listen})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startRefreshSchedule refreshes c on a standard 5-field cron schedule.
// Overlapping runs are skipped.
func startRefreshSchedule(ctx context.Context, spec string, c cache.Cache) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := scheduler.AddFunc(spec, func() {
		start := time.Now()
		count, err := c.Refresh(ctx)
		if err != nil {
			logger.Error("Scheduled refresh failed", nil, err)
			return
		}
		logger.Info("Scheduled refresh complete", logger.Fields{
			"events":      count,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("refresh_cron: %w", err)
	}

	scheduler.Start()
	logger.Info("Background refresh scheduled", logger.Fields{"schedule": spec})
	return scheduler, nil
}
