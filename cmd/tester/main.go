package main

import (
	"KidPathTester/internal/bridge"
	"KidPathTester/internal/config"
	"KidPathTester/internal/server/ui"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	var logger *zap.Logger
	var err error
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
		gin.SetMode(gin.ReleaseMode)
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow(
		"Starting tester",
		"DebugMode", cfg.DebugMode,
		"APIBase", cfg.APIBase,
		"BindAddr", cfg.BindAddr,
	)

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bridge.New(cfg.APIBase, sugar, bridge.WithHealthPath(cfg.HealthPath))
	srv := ui.New(cfg, b, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Не удалось запустить UI", "error", err)
		return
	}
	sugar.Infow("Тестер запущен", "url", "http://"+srv.Addr()+"/")

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		sugar.Warnw("UI stop error", "error", err)
	}
	sugar.Infow("Тестер остановлен")
}
