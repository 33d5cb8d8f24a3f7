package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"vibetrader/internal/app"
	"vibetrader/internal/config"
	"vibetrader/internal/logger"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file path (defaults to $VIBETRADER_CONFIG or configs/config.yaml)")
		once    = flag.Bool("once", false, "run a single cycle and exit")
	)
	flag.Parse()

	// .env is optional; real deployments export the variables directly.
	_ = godotenv.Load()

	path := *cfgPath
	if path == "" {
		path = os.Getenv("VIBETRADER_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, platform=%s, symbols=%v)",
		cfg.App.Env, cfg.Exchange.Platform, cfg.App.Symbols)

	trader, err := app.New(cfg, path)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	defer trader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := trader.Run(ctx, *once); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
