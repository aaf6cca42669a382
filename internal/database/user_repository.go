package database

import (
	"ai-master-bot/internal/models"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// UserRepository хранит аккаунты пользователей (таблица users)
type UserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewUserRepository создает новый репозиторий пользователей
func NewUserRepository(db *sqlx.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Upsert создает пользователя при первом контакте и обновляет имя и username
// при последующих. joined_at не меняется, referrer_id записывается только
// если он еще пустой.
func (r *UserRepository) Upsert(ctx context.Context, user models.User, referrerID *int64) error {
	if referrerID != nil && *referrerID == user.UserID {
		referrerID = nil
	}

	query := r.db.Rebind(`
        INSERT INTO users (user_id, first_name, username, joined_at, referrer_id)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET
            first_name = excluded.first_name,
            username = excluded.username,
            referrer_id = COALESCE(users.referrer_id, excluded.referrer_id)
    `)

	_, err := r.db.ExecContext(ctx, query, user.UserID, user.FirstName, user.Username, r.now().UTC(), referrerID)
	if err != nil {
		r.logger.Error("Ошибка при создании/обновлении пользователя",
			zap.Error(err),
			zap.Int64("user_id", user.UserID),
		)
		return storageError("upsert user", err)
	}

	return nil
}

// GetByID возвращает пользователя или models.ErrUserNotFound
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	query := r.db.Rebind(`
        SELECT user_id, first_name, username, joined_at, referrer_id, bonus_taken
        FROM users WHERE user_id = ?
    `)

	err := r.db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, models.ErrUserNotFound
		}
		r.logger.Error("Ошибка при получении пользователя",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return models.User{}, storageError("get user", err)
	}

	return user, nil
}

// ClaimBonus переводит bonus_taken из 0 в 1. Возвращает true, только если
// флаг изменил именно этот вызов.
func (r *UserRepository) ClaimBonus(ctx context.Context, userID int64) (bool, error) {
	query := r.db.Rebind(`UPDATE users SET bonus_taken = 1 WHERE user_id = ? AND bonus_taken = 0`)

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Ошибка при отметке бонуса",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return false, storageError("claim bonus", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageError("claim bonus", err)
	}

	return rows == 1, nil
}
