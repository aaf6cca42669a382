package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// TelegramClient - интерфейс для отправки экранов пользователю
type TelegramClient interface {
	SendScreen(chatID int64, screen models.Screen) error
	AnswerCallback(callbackID, text string) error
}

// Accounts - хранилище пользователей
type Accounts interface {
	Upsert(ctx context.Context, user models.User, referrerID *int64) error
	ClaimBonus(ctx context.Context, userID int64) (bool, error)
}

// Ledger - реферальный учёт
type Ledger interface {
	Attribute(ctx context.Context, referrerID, referredID int64) (models.AttributionResult, error)
	CountReferrals(ctx context.Context, referrerID int64) (int, error)
}

// BonusHook вызывается один раз на каждого приглашённого пользователя.
type BonusHook func(ctx context.Context, referrerID, referredID int64) error

func noBonus(context.Context, int64, int64) error { return nil }

// Options - параметры диспетчера
type Options struct {
	Workers    int
	WorkDelay  time.Duration
	Remediator Remediator
	Bonus      BonusHook
}

// Service - диспетчер: превращает входящие обновления в события машины
// состояний и отрисовывает результат
type Service struct {
	telegram   TelegramClient
	logger     *zap.Logger
	machine    *conversation.Machine
	users      Accounts
	referrals  Ledger
	screens    screens.Builder
	scheduler  gocron.Scheduler
	remediator Remediator
	bonus      BonusHook
	workDelay  time.Duration
	workers    int
}
