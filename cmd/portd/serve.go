package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/config"
	"github.com/websoft9/portd/internal/httpapi"
	"github.com/websoft9/portd/internal/registry"
	"github.com/websoft9/portd/internal/sweep"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background expiration sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			return runServe(cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on; defaults to PORTD_HTTP_ADDR")
	return cmd
}

func runServe(cfg *config.Config, addr string) error {
	events := httpapi.NewEventBus()

	reg, err := openRegistry(cfg, registry.WithNotifier(events.Notify))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer reg.Close()

	api := httpapi.New(reg, events, httpapi.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Log:                log.Logger,
	})

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: api,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := newScheduler(cfg, reg)
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("sweep scheduler stopped")
		}
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("portd HTTP API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down portd")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	log.Info().Msg("portd exited")
	return nil
}

// newScheduler picks the asynq/Redis-backed scheduler when a Redis address
// is configured, and falls back to a plain time.Ticker otherwise.
func newScheduler(cfg *config.Config, reg *registry.Registry) sweep.Scheduler {
	sweeper := sweep.NewSweeper(reg, log.Logger)
	if cfg.RedisAddr != "" {
		return sweep.NewAsynqScheduler(sweeper, cfg.RedisAddr, sweep.DefaultInterval)
	}
	return sweep.NewTickerScheduler(sweeper, sweep.DefaultInterval)
}
