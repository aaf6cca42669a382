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

// ReferralRepository ведет реестр реферальных связей (таблица referrals)
type ReferralRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewReferralRepository создает новый реестр рефералов
func NewReferralRepository(db *sqlx.DB, logger *zap.Logger) *ReferralRepository {
	return &ReferralRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Attribute закрепляет referredID за referrerID. Первая успешная привязка
// окончательна: повторные вызовы, в том числе с другим пригласившим,
// возвращают AlreadyAttributed. Оба пользователя должны существовать.
func (r *ReferralRepository) Attribute(ctx context.Context, referrerID, referredID int64) (models.AttributionResult, error) {
	if referrerID == referredID {
		return models.SelfReferral, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Ошибка при начале транзакции", zap.Error(err))
		return models.AttributionUnknown, storageError("begin attribution", err)
	}
	defer tx.Rollback() // Откатываем транзакцию, если не дошли до Commit

	var referrers int
	err = tx.GetContext(ctx, &referrers, tx.Rebind(`SELECT COUNT(*) FROM users WHERE user_id = ?`), referrerID)
	if err != nil {
		return models.AttributionUnknown, r.fail("check referrer", err, referrerID, referredID)
	}
	if referrers == 0 {
		return models.ReferrerUnknown, nil
	}

	var current sql.NullInt64
	err = tx.GetContext(ctx, &current, tx.Rebind(`SELECT referrer_id FROM users WHERE user_id = ?`), referredID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AttributionUnknown, models.ErrUserNotFound
		}
		return models.AttributionUnknown, r.fail("load referred user", err, referrerID, referredID)
	}
	if current.Valid {
		return models.AlreadyAttributed, nil
	}

	// Условие referrer_id IS NULL защищает от гонки двух параллельных привязок
	result, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE users SET referrer_id = ? WHERE user_id = ? AND referrer_id IS NULL`),
		referrerID, referredID,
	)
	if err != nil {
		return models.AttributionUnknown, r.fail("set referrer", err, referrerID, referredID)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return models.AttributionUnknown, r.fail("set referrer", err, referrerID, referredID)
	} else if rows == 0 {
		return models.AlreadyAttributed, nil
	}

	result, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO referrals (referrer_id, user_id, created_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`),
		referrerID, referredID, r.now().UTC(),
	)
	if err != nil {
		return models.AttributionUnknown, r.fail("insert referral", err, referrerID, referredID)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return models.AttributionUnknown, r.fail("insert referral", err, referrerID, referredID)
	} else if rows == 0 {
		return models.AlreadyAttributed, nil
	}

	if err := tx.Commit(); err != nil {
		return models.AttributionUnknown, r.fail("commit attribution", err, referrerID, referredID)
	}

	r.logger.Info("Реферал засчитан",
		zap.Int64("referrer_id", referrerID),
		zap.Int64("user_id", referredID),
	)

	return models.Credited, nil
}

// CountReferrals возвращает число засчитанных приглашений пользователя
func (r *ReferralRepository) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM referrals WHERE referrer_id = ?`), referrerID)
	if err != nil {
		r.logger.Error("Ошибка при подсчете рефералов",
			zap.Error(err),
			zap.Int64("referrer_id", referrerID),
		)
		return 0, storageError("count referrals", err)
	}

	return count, nil
}

// GetReferrer возвращает пригласившего или nil
func (r *ReferralRepository) GetReferrer(ctx context.Context, userID int64) (*int64, error) {
	var referrer sql.NullInt64
	err := r.db.GetContext(ctx, &referrer, r.db.Rebind(`SELECT referrer_id FROM users WHERE user_id = ?`), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Ошибка при получении пригласившего",
			zap.Error(err),
			zap.Int64("user_id", userID),
		)
		return nil, storageError("get referrer", err)
	}

	if !referrer.Valid {
		return nil, nil
	}
	return &referrer.Int64, nil
}

func (r *ReferralRepository) fail(op string, err error, referrerID, referredID int64) error {
	r.logger.Error("Ошибка при привязке реферала",
		zap.String("op", op),
		zap.Error(err),
		zap.Int64("referrer_id", referrerID),
		zap.Int64("user_id", referredID),
	)
	return storageError(op, err)
}
