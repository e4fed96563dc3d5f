package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/voxelgen/internal/app"
	"github.com/annel0/voxelgen/internal/config"
	"github.com/annel0/voxelgen/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или VOXELGEN_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.Configure(cfg.Logging.Options()); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🌍 Запуск сервера генерации вокселей...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка инициализации: %v", err)
		os.Exit(1)
	}

	runErr := a.Run(ctx)
	if err := a.Close(); err != nil {
		logging.Warn("Ошибки при остановке: %v", err)
	}
	if runErr != nil {
		logging.Error("❌ Сервер завершился с ошибкой: %v", runErr)
		os.Exit(1)
	}
	logging.Info("👋 Сервер остановлен")
}
