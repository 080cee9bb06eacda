package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/downloader"
	"shopreviews/internal/adapters/export"
	"shopreviews/internal/adapters/launcher"
	"shopreviews/internal/adapters/localstorage"
	"shopreviews/internal/config"
	"shopreviews/internal/core/domain"
	"shopreviews/internal/service"
)

func main() {
	cfg, cfgErr := config.Load()

	url := flag.String("url", "", "Product page URL to scrape")
	maxPages := flag.Int("max-pages", cfg.MaxPagesDefault, "Maximum review pages to visit")
	dataDir := flag.String("data-dir", "./data", "Base directory for storing job artifacts")
	driver := flag.String("driver", cfg.Driver, "Browser driver: playwright or rod")
	headful := flag.Bool("headful", false, "Show the browser window (needed to solve a CAPTCHA by hand)")
	out := flag.String("out", "", "Also write reviews to this file (.xlsx, .csv or .json)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger().Level(cfg.LogLevel)
	if cfgErr != nil {
		logger.Fatal().Err(cfgErr).Msg("load config")
	}

	if *url == "" {
		fmt.Println("Usage: review-cli -url <product-url> [-max-pages N] [-data-dir <path>] [-driver playwright|rod] [-headful] [-out reviews.xlsx]")
		fmt.Println("\nExample:")
		fmt.Println("  review-cli -url https://shop.example.com/view/product/1729384756102938475 -max-pages 5 -headful")
		os.Exit(1)
	}

	productID, err := service.ExtractProductID(*url)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid URL")
	}
	var format export.Format
	if *out != "" {
		if format, err = export.ParseFormat(strings.TrimPrefix(filepath.Ext(*out), ".")); err != nil {
			logger.Fatal().Err(err).Str("out", *out).Msg("unsupported output file")
		}
	}

	browsers, err := launcher.New(strings.ToLower(*driver), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("select browser driver")
	}
	cfg.Headless = cfg.Headless && !*headful
	opts, err := service.OptionsFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("orchestrator options")
	}

	logger.Info().Str("url", *url).Str("driver", browsers.Name()).Str("data_dir", *dataDir).
		Bool("headless", cfg.Headless).Msg("review scraper")

	orchestrator := service.NewOrchestrator(
		browsers,
		downloader.NewHTTPDownloader(cfg.UserAgent),
		localstorage.NewLocalStorage(*dataDir),
		opts,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id, err := service.NewJobID()
	if err != nil {
		logger.Fatal().Err(err).Msg("job id")
	}
	job := domain.NewJob(id, *url, productID, max(1, *maxPages), 0, nil)
	result, err := orchestrator.RunJob(ctx, job)
	if err != nil {
		logger.Error().Err(err).Str("message", job.Message()).Msg("job failed")
		os.Exit(1)
	}

	if *out != "" {
		data, err := export.Render(format, job.Reviews())
		if err != nil {
			logger.Fatal().Err(err).Msg("render reviews")
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			logger.Fatal().Err(err).Msg("write reviews")
		}
	}

	snap := job.Snapshot()
	fmt.Println("\n=== Job Summary ===")
	fmt.Printf("Job ID:       %s\n", result.JobID)
	fmt.Printf("Product:      %s\n", productID)
	fmt.Printf("Title:        %s\n", snap.ProductTitle)
	fmt.Printf("Success:      %t\n", result.Success)
	fmt.Printf("Reviews:      %d\n", result.ReviewCount)
	fmt.Printf("Pages:        %d\n", result.Pages)
	fmt.Printf("Artifacts:    %s\n", result.ArtifactsPath)
	if *out != "" {
		fmt.Printf("Export:       %s\n", *out)
	}
	fmt.Printf("Completed At: %s\n", result.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
}
