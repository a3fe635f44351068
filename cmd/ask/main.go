package main

import (
	"KidPathTester/internal/bridge"
	"KidPathTester/internal/config"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Разовый вызов бэкенда из консоли: печатает сырой ответ ровно так, как его показал бы UI.
//
//	go run ./cmd/ask -text "Привет"
//	go run ./cmd/ask -voice rec.wav
//	go run ./cmd/ask -photo dog.png
func main() {
	text := flag.String("text", "", "сообщение для /text")
	voice := flag.String("voice", "", "путь к аудиофайлу для /voice")
	photo := flag.String("photo", "", "путь к изображению для /photo")
	health := flag.Bool("health", false, "проверить доступность бэкенда")

	cfg := config.NewConfig()

	// В консоль идёт только ответ, логи нужны лишь в режиме дебага
	sugar := zap.NewNop().Sugar()
	if cfg.DebugMode {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		defer func() { _ = logger.Sync() }()
		sugar = logger.Sugar()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bridge.New(cfg.APIBase, sugar, bridge.WithHealthPath(cfg.HealthPath))

	var out string
	switch {
	case *health:
		out = b.CheckHealth(ctx)
	case *voice != "":
		out = b.SendVoice(ctx, *voice)
	case *photo != "":
		out = b.SendPhoto(ctx, *photo)
	case flagSet("text"):
		out = b.SendText(ctx, *text)
	default:
		flag.Usage()
		os.Exit(2)
	}
	fmt.Println(out)
}

// flagSet сообщает, был ли флаг передан явно (пустой -text "" тоже валиден).
func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
