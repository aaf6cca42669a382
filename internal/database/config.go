package database

import (
	"ai-master-bot/internal/config"
	"ai-master-bot/internal/models"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // драйвер для PostgreSQL
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // локальная таблица без сервера
)

// NewConnection создает новое подключение к базе данных
func NewConnection(cfg config.Database, logger *zap.Logger) (*sqlx.DB, error) {
	driver, dsn := dataSource(cfg)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		logger.Error("Ошибка подключения к базе данных", zap.Error(err), zap.String("driver", driver))
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}

	if driver == "sqlite" {
		// SQLite сериализует запись, одно соединение исключает SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Ошибка проверки подключения к базе данных", zap.Error(err))
		return nil, fmt.Errorf("не удалось проверить подключение к базе данных: %w", err)
	}

	logger.Info("Успешное подключение к базе данных", zap.String("driver", driver))
	return db, nil
}

func dataSource(cfg config.Database) (string, string) {
	if cfg.Driver == "sqlite" {
		return "sqlite", cfg.DSN
	}
	if cfg.DSN != "" {
		return "postgres", cfg.DSN
	}
	return "postgres", fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

// storageError помечает ошибку драйвера как недоступность хранилища
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}
