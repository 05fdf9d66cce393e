package main

import (
	"context"
	"os/signal"
	"syscall"

	"cryptoboard/config"
	"cryptoboard/internal/dashboard"
	"cryptoboard/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run dashboard until interrupted
	if err := dashboard.Run(ctx, cfg, log); err != nil {
		log.Fatal("dashboard failed", zap.Error(err))
	}
}
