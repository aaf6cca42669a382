package main

import (
	"ai-master-bot/internal/app"
	"flag"
	"log"
)

func main() {
	runMigrations := flag.Bool("migrate", true, "Запустить миграции базы данных")
	rollbackMigrations := flag.Bool("rollback", false, "Откатить миграции базы данных")
	configPath := flag.String("config", "./config/config.yaml", "Путь к файлу конфигурации")
	verbose := flag.Bool("verbose", false, "Включить подробное логирование")
	flag.Parse()

	// Отсутствующий файл конфигурации app.Run возвращает как ошибку
	if err := app.Run(*configPath, *runMigrations, *rollbackMigrations, *verbose); err != nil {
		log.Fatalf("бот остановлен с ошибкой: %v", err)
	}
}
