package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var postgresUp = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_id     BIGINT PRIMARY KEY,
        first_name  TEXT NOT NULL DEFAULT '',
        username    TEXT NOT NULL DEFAULT '',
        joined_at   TIMESTAMPTZ NOT NULL,
        referrer_id BIGINT NULL,
        bonus_taken INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS referrals (
        id          BIGSERIAL PRIMARY KEY,
        referrer_id BIGINT NOT NULL,
        user_id     BIGINT NOT NULL,
        created_at  TIMESTAMPTZ NOT NULL,
        UNIQUE (referrer_id, user_id),
        CHECK (referrer_id <> user_id)
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS referrals_user_id_key ON referrals (user_id)`,
	`CREATE INDEX IF NOT EXISTS referrals_referrer_id_idx ON referrals (referrer_id)`,
}

var sqliteUp = []string{
	`CREATE TABLE IF NOT EXISTS users (
        user_id     INTEGER PRIMARY KEY,
        first_name  TEXT NOT NULL DEFAULT '',
        username    TEXT NOT NULL DEFAULT '',
        joined_at   TIMESTAMP NOT NULL,
        referrer_id INTEGER NULL,
        bonus_taken INTEGER NOT NULL DEFAULT 0
    )`,
	`CREATE TABLE IF NOT EXISTS referrals (
        id          INTEGER PRIMARY KEY AUTOINCREMENT,
        referrer_id INTEGER NOT NULL,
        user_id     INTEGER NOT NULL,
        created_at  TIMESTAMP NOT NULL,
        UNIQUE (referrer_id, user_id),
        CHECK (referrer_id <> user_id)
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS referrals_user_id_key ON referrals (user_id)`,
	`CREATE INDEX IF NOT EXISTS referrals_referrer_id_idx ON referrals (referrer_id)`,
}

var down = []string{
	`DROP TABLE IF EXISTS referrals`,
	`DROP TABLE IF EXISTS users`,
}

// Migrate создает таблицы users и referrals для драйвера подключения
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	statements := postgresUp
	if db.DriverName() == "sqlite" {
		statements = sqliteUp
	}

	if err := execAll(ctx, db, statements); err != nil {
		logger.Error("Ошибка выполнения миграций", zap.Error(err))
		return err
	}

	logger.Info("Миграции успешно выполнены", zap.String("driver", db.DriverName()))
	return nil
}

// Rollback удаляет таблицы, созданные Migrate
func Rollback(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if err := execAll(ctx, db, down); err != nil {
		logger.Error("Ошибка отката миграций", zap.Error(err))
		return err
	}

	logger.Info("Миграции откачены")
	return nil
}

func execAll(ctx context.Context, db *sqlx.DB, statements []string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return storageError("begin migration", err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit migration", err)
	}
	return nil
}
