package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/intake"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const workTimeout = time.Minute

// Remediator выполняет ремонт после того, как пользователь дал доступ,
// и возвращает короткий отчёт.
type Remediator interface {
	Remediate(ctx context.Context, st conversation.State) (string, error)
}

// SimulatedRemediator ничего не чинит, а лишь формирует отчёт по категории
// проблемы.
type SimulatedRemediator struct{}

func (SimulatedRemediator) Remediate(_ context.Context, st conversation.State) (string, error) {
	switch st.Category {
	case intake.Startup:
		return "вимкнули зайвий автозапуск", nil
	case intake.Browser:
		return "оптимізували браузер", nil
	default:
		return "вимкнули зайвий автозапуск / оптимізували браузер", nil
	}
}

// startWork - планирует разовую задачу ремонта для текущей сессии
func (s *Service) startWork(chatID int64, st conversation.State) error {
	start := gocron.OneTimeJobStartImmediately()
	if s.workDelay > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(s.workDelay))
	}

	_, err := s.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(s.finishWork, chatID, st),
		gocron.WithName(fmt.Sprintf("work:%d:%s", st.UserID, st.SessionID)),
		gocron.WithTags(workTag(st.UserID)),
	)
	if err != nil {
		s.logger.Error("ошибка при планировании работы",
			zap.Error(err),
			zap.Int64("user_id", st.UserID),
			zap.String("session_id", st.SessionID),
		)
		return fmt.Errorf("schedule work: %w", err)
	}

	s.logger.Info("работа запланирована",
		zap.Int64("user_id", st.UserID),
		zap.String("session_id", st.SessionID),
		zap.Duration("delay", s.workDelay),
	)
	return nil
}

// abandonWork - выводит пользователя из WORKING, если задачу не удалось
// поставить: WorkDone для этой сессии уже никто не пришлёт
func (s *Service) abandonWork(ctx context.Context, update models.Update, cause error) error {
	if _, err := s.machine.Apply(ctx, update.UserID, conversation.Back{}); err != nil {
		s.logger.Error("не удалось сбросить сессию",
			zap.Error(err),
			zap.Int64("user_id", update.UserID),
		)
		cause = errors.Join(cause, err)
	}

	// на нажатие кнопки уже ответили при отрисовке
	sc := s.screens.Build(screens.Fallback, screens.Context{})
	if err := s.telegram.SendScreen(update.ChatID, sc); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// finishWork - выполняет ремонт и возвращает событие WorkDone в машину.
// Если пользователь за это время ушёл из сессии, машина отклонит событие.
func (s *Service) finishWork(chatID int64, st conversation.State) {
	ctx, cancel := context.WithTimeout(context.Background(), workTimeout)
	defer cancel()

	report, err := s.remediator.Remediate(ctx, st)
	if err != nil {
		s.logger.Error("ошибка при выполнении работы",
			zap.Error(err),
			zap.Int64("user_id", st.UserID),
			zap.String("session_id", st.SessionID),
		)
		report = "роботу завершено частково, деталі надішле майстер"
	}

	out, err := s.machine.Apply(ctx, st.UserID, conversation.WorkDone{SessionID: st.SessionID, Report: report})
	if err != nil {
		s.logger.Error("ошибка при завершении работы",
			zap.Error(err),
			zap.Int64("user_id", st.UserID),
		)
		return
	}
	if out.Rejected {
		s.logger.Info("результат работы устарел",
			zap.Int64("user_id", st.UserID),
			zap.String("session_id", st.SessionID),
		)
		return
	}

	for _, id := range out.Screens {
		ctxScreen := s.screenContext(ctx, workUpdate(chatID, st.UserID), out, id)
		s.send(chatID, s.screens.Build(id, ctxScreen))
	}
}

func workUpdate(chatID, userID int64) models.Update {
	return models.Update{UserID: userID, ChatID: chatID}
}

func workTag(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
