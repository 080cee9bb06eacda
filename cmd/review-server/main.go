package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/downloader"
	"shopreviews/internal/adapters/launcher"
	"shopreviews/internal/adapters/localstorage"
	"shopreviews/internal/config"
	"shopreviews/internal/core/ports"
	"shopreviews/internal/httpapi"
	"shopreviews/internal/service"
)

func main() {
	cfg, err := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "review-server").Logger()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	logger = logger.Level(cfg.LogLevel)

	browsers, err := launcher.New(cfg.Driver, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("select browser driver")
	}
	opts, err := service.OptionsFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("orchestrator options")
	}

	// Artifacts are only written when a data directory is configured.
	var (
		dl      ports.Downloader
		storage ports.Storage
	)
	if cfg.DataDir != "" {
		dl = downloader.NewHTTPDownloader(cfg.UserAgent)
		storage = localstorage.NewLocalStorage(cfg.DataDir)
	}
	orchestrator := service.NewOrchestrator(browsers, dl, storage, opts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs := service.NewManager(ctx, service.NewMemoryRegistry(), orchestrator, service.ManagerOptionsFromConfig(cfg), logger)
	api := httpapi.New(jobs, httpapi.Options{
		Driver:          browsers.Name(),
		ProxyConfigured: cfg.ProxyURL != "",
		StreamInterval:  cfg.StreamInterval,
		FrameInterval:   cfg.FrameInterval,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("driver", browsers.Name()).
			Bool("proxy", cfg.ProxyURL != "").Str("data_dir", cfg.DataDir).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	jobs.Wait()
}
