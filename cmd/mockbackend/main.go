package main

import (
	"KidPathTester/internal/backend/echo"
	"KidPathTester/internal/config"
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Echo-бэкенд для ручной проверки тестера без настоящего AI-сервиса.
// По умолчанию слушает 127.0.0.1:3000, т.е. совпадает с API_BASE тестера.
func main() {
	cfg := config.NewConfig()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := echo.NewServer(cfg.MockBindAddr, sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("Не удалось запустить echo-бэкенд", "error", err)
		return
	}

	<-ctx.Done()
	_ = srv.Stop(context.Background())
}
