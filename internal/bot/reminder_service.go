package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/screens"
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ReminderService отвечает за отправку напоминаний пользователям,
// которые получили отчёт о работе, но так и не нажали кнопку оплаты
type ReminderService struct {
	machine  *conversation.Machine
	telegram TelegramClient
	screens  screens.Builder
	logger   *zap.Logger
	clock    clockwork.Clock
	interval time.Duration // период проверки
	after    time.Duration // время ожидания оплаты до напоминания
}

// NewReminderService создает новый сервис напоминаний
func NewReminderService(
	machine *conversation.Machine,
	telegram TelegramClient,
	builder screens.Builder,
	logger *zap.Logger,
	clock clockwork.Clock,
	interval, after time.Duration,
) *ReminderService {
	return &ReminderService{
		machine:  machine,
		telegram: telegram,
		screens:  builder,
		logger:   logger,
		clock:    clock,
		interval: interval,
		after:    after,
	}
}

// Start регистрирует периодическую проверку в планировщике
func (s *ReminderService) Start(scheduler gocron.Scheduler) error {
	s.logger.Info("Запуск сервиса напоминаний",
		zap.Duration("interval", s.interval),
		zap.Duration("after", s.after),
	)

	_, err := scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.CheckAndSendReminders(context.Background())
		}),
		gocron.WithName("payment-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// CheckAndSendReminders находит пользователей, ожидающих оплаты дольше
// допустимого, и отправляет каждому одно напоминание. Возвращает число
// отправленных напоминаний.
func (s *ReminderService) CheckAndSendReminders(ctx context.Context) int {
	s.logger.Debug("Проверка пользователей для отправки напоминаний")

	waiting, err := s.machine.AwaitingPayment(ctx)
	if err != nil {
		s.logger.Error("Ошибка при получении пользователей для напоминаний", zap.Error(err))
		return 0
	}

	cutoff := s.clock.Now().Add(-s.after)
	sent := 0
	for _, st := range waiting {
		if st.ReminderSent || st.UpdatedAt.After(cutoff) {
			continue
		}
		if s.sendReminder(ctx, st.UserID, cutoff) {
			sent++
		}
	}

	if sent > 0 {
		s.logger.Info("Напоминания отправлены", zap.Int("count", sent))
	}
	return sent
}

// sendReminder сначала помечает напоминание, затем отправляет его, чтобы
// параллельная проверка не отправила его дважды
func (s *ReminderService) sendReminder(ctx context.Context, userID int64, cutoff time.Time) bool {
	marked, err := s.machine.MarkReminded(ctx, userID, cutoff)
	if err != nil {
		s.logger.Error("Ошибка при отметке напоминания",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return false
	}
	if !marked {
		return false
	}

	// бот работает в личных чатах, chat_id совпадает с user_id
	sc := s.screens.Build(screens.Reminder, screens.Context{UserID: userID})
	if err := s.telegram.SendScreen(userID, sc); err != nil {
		s.logger.Error("Ошибка при отправке напоминания",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return false
	}

	s.logger.Info("Напоминание успешно отправлено", zap.Int64("user_id", userID))
	return true
}
