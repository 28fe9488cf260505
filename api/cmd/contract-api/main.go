package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"contract-lens/api/internal/app"
	"contract-lens/api/internal/config"
	"contract-lens/api/internal/handle"
	"contract-lens/api/internal/httpserver"
	"contract-lens/api/internal/logx"
)

func main() {
	cfg := config.Load()

	logger, err := logx.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer func() { _ = a.Close() }()

	mux := http.NewServeMux()
	handle.New(a.Service, handle.Options{
		Log:       logger,
		Timeout:   cfg.RequestTimeout,
		PromptDir: cfg.PromptDir,
		Ping:      a.DB.PingContext,
	}).Register(mux)

	if err := httpserver.Run(ctx, ":"+cfg.Port, mux, logger); err != nil {
		logger.Error("http server", zap.Error(err))
	}
}
