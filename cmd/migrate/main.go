package main

import (
	"ai-master-bot/internal/config"
	"ai-master-bot/internal/database"
	"ai-master-bot/internal/logger"
	"context"
	"flag"
	"log"
	"time"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Путь к файлу конфигурации")
	down := flag.Bool("down", false, "Откатить миграции")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zl, err := logger.New(cfg.Logger, false)
	if err != nil {
		log.Fatalf("Ошибка создания логгера: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// Подключаемся к базе данных
	db, err := database.NewConnection(cfg.Database, zl)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Выполняем миграцию
	if *down {
		err = database.Rollback(ctx, db, zl)
	} else {
		err = database.Migrate(ctx, db, zl)
	}
	if err != nil {
		log.Fatalf("Ошибка выполнения миграции: %v", err)
	}
}
