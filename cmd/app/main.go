package main

import (
	"context"
	"log"

	"github.com/bubelovv/team-tracker/internal/app"
	"github.com/bubelovv/team-tracker/internal/config"
	"github.com/bubelovv/team-tracker/internal/logger"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync()

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("init app failed", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		zapLogger.Fatal("app stopped", zap.Error(err))
	}
}
