package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fb360/internal/genclient"
	"fb360/internal/gpano"
	"fb360/internal/imageproc"
	"fb360/internal/models"
	"fb360/internal/server"
	"fb360/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		sugar.Fatalw("failed to load config", "error", err)
	}

	if err := os.MkdirAll(cfg.GeneratedDir, 0755); err != nil {
		sugar.Fatalw("failed to create output directory", "error", err)
	}

	proc := imageproc.NewProcessor()

	store, err := storage.NewStorage(cfg.GalleryDir, proc.CreateThumbnail, sugar)
	if err != nil {
		sugar.Fatalw("failed to init gallery storage", "error", err)
	}

	gen := genclient.NewClient(cfg.OpenRouterBaseURL, cfg.APIKey, cfg.Model,
		time.Duration(cfg.GenerateTimeoutSec)*time.Second)
	injector := gpano.NewExifTool(sugar)

	if !gen.Configured() {
		sugar.Warn("OPENROUTER_API_KEY not set, AI generation disabled")
	}
	if !injector.Available() {
		sugar.Warn("exiftool not found, GPano metadata will not be injected")
	}

	srv := server.NewServer(cfg, store, proc, gen, injector, sugar)

	go func() {
		sugar.Infow("server listening", "addr", cfg.ServerAddr)
		if err := srv.Start(); err != nil {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	sugar.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
}
