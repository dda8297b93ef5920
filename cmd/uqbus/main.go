package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"uqbus/internal/config"
	"uqbus/internal/gtfs"
	"uqbus/internal/realtime"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Optional .env for local overrides; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "uqbus.yml", "Path to YAML config file")
	staticDir := flag.String("static-dir", "", "Directory of static GTFS tables (overrides config)")
	cacheDir := flag.String("cache-dir", "", "Directory for live feed cache files (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
		os.Exit(0)
	}()

	loader := gtfs.NewLoader(cfg.StaticDir, logger)
	index := gtfs.BuildIndex(loader, gtfs.Scope{
		RouteToken:     cfg.HubRouteToken,
		StopToken:      cfg.HubStopToken,
		ExcludedStopID: cfg.ExcludedStopID,
		WindowMinutes:  cfg.WindowMinutes,
	}, logger)

	live := realtime.NewManager(realtime.Options{
		BaseURL:           cfg.FeedBaseURL,
		CacheDir:          cfg.CacheDir,
		MinRefreshSeconds: cfg.MinRefreshSeconds,
		FetchTimeout:      time.Duration(cfg.FetchTimeoutSecs) * time.Second,
		RouteIDs:          cfg.LiveRouteIDs,
		StopIDs:           cfg.LiveStopIDs,
	}, logger)
	live.Init(ctx)

	app := newApp(cfg, index, live, os.Stdin, os.Stdout, logger)
	app.run(ctx)
}
