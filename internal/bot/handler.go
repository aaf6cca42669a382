package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const referralPrefix = "ref_"

// Надписи меню, которые пользователь может отправить текстом
var menuLabels = []struct {
	prefix string
	phrase string
	event  conversation.Event
}{
	{"🧰", "Почати діагностику", conversation.StartDiagnosis{}},
	{"📘", "Як проходить діагностика", conversation.ShowInfo{Topic: conversation.TopicHowItWorks}},
	{"💰", "Вартість", conversation.ShowInfo{Topic: conversation.TopicPrices}},
	{"🆘", "Допомога", conversation.ShowInfo{Topic: conversation.TopicHelp}},
}

// HandleUpdate - основной обработчик входящих обновлений
func (s *Service) HandleUpdate(ctx context.Context, update models.Update) error {
	switch update.Kind {
	case models.KindCommand:
		switch update.Command {
		case "start":
			return s.handleStart(ctx, update)
		case "help":
			return s.apply(ctx, update, conversation.ShowInfo{Topic: conversation.TopicHelp})
		default:
			return s.render(ctx, update, conversation.Outcome{Screens: []models.ScreenID{screens.UseMenu}})
		}

	case models.KindButtonPress:
		ev, ok := callbackEvent(update.Payload)
		if !ok {
			s.logger.Warn("неизвестные данные кнопки",
				zap.Int64("user_id", update.UserID),
				zap.String("data", update.Payload),
			)
			return s.answer(update, screens.UnknownActionText)
		}
		return s.apply(ctx, update, ev)

	default:
		if ev, ok := menuEvent(update.Payload); ok {
			return s.apply(ctx, update, ev)
		}
		return s.apply(ctx, update, conversation.FreeText{Text: update.Payload})
	}
}

// handleStart - регистрирует пользователя, засчитывает приглашение и
// возвращает в главное меню
func (s *Service) handleStart(ctx context.Context, update models.Update) error {
	user := models.User{
		UserID:    update.UserID,
		FirstName: update.FirstName,
		Username:  update.Username,
	}
	if err := s.users.Upsert(ctx, user, nil); err != nil {
		s.logger.Error("ошибка при сохранении пользователя",
			zap.Error(err),
			zap.Int64("user_id", update.UserID),
		)
		return s.fallback(update, err)
	}

	if referrerID, ok := parseReferral(update.Payload); ok {
		s.attribute(ctx, referrerID, update)
	}

	return s.apply(ctx, update, conversation.StartCommand{})
}

// attribute - засчитывает приглашение. Ошибки учёта не мешают открыть меню.
func (s *Service) attribute(ctx context.Context, referrerID int64, update models.Update) {
	result, err := s.referrals.Attribute(ctx, referrerID, update.UserID)
	if err != nil {
		s.logger.Error("ошибка при учёте приглашения",
			zap.Error(err),
			zap.Int64("referrer_id", referrerID),
			zap.Int64("user_id", update.UserID),
		)
		return
	}

	s.logger.Info("обработано приглашение",
		zap.Int64("referrer_id", referrerID),
		zap.Int64("user_id", update.UserID),
		zap.Stringer("result", result),
	)
	if result != models.Credited {
		return
	}

	claimed, err := s.users.ClaimBonus(ctx, update.UserID)
	if err != nil {
		s.logger.Error("ошибка при отметке бонуса",
			zap.Error(err),
			zap.Int64("user_id", update.UserID),
		)
	} else if claimed {
		if err := s.bonus(ctx, referrerID, update.UserID); err != nil {
			s.logger.Error("ошибка при начислении бонуса",
				zap.Error(err),
				zap.Int64("referrer_id", referrerID),
			)
		}
	}

	total, err := s.referrals.CountReferrals(ctx, referrerID)
	if err != nil {
		s.logger.Warn("не удалось посчитать приглашения", zap.Error(err), zap.Int64("referrer_id", referrerID))
		total = 1
	}

	s.send(referrerID, s.screens.Credited(update.FullName(), total))
	s.send(update.ChatID, s.screens.Welcomed())
}

// apply - передает событие машине состояний и отрисовывает результат
// уже после того, как блокировка пользователя снята
func (s *Service) apply(ctx context.Context, update models.Update, ev conversation.Event) error {
	out, err := s.machine.Apply(ctx, update.UserID, ev)
	if err != nil {
		s.logger.Error("ошибка при переходе состояния",
			zap.Error(err),
			zap.Int64("user_id", update.UserID),
			zap.String("event", fmt.Sprintf("%T", ev)),
		)
		return s.fallback(update, err)
	}

	err = s.render(ctx, update, out)

	// отчёт о работе должен прийти после экрана "работаю"
	if out.StartWork {
		if werr := s.startWork(update.ChatID, out.State); werr != nil {
			return errors.Join(err, s.abandonWork(ctx, update, werr))
		}
	}
	return err
}

func (s *Service) render(ctx context.Context, update models.Update, out conversation.Outcome) error {
	toast := ""
	var errs []error
	for _, id := range out.Screens {
		// отклонённое нажатие кнопки показываем всплывающим ответом
		if id == screens.UnknownAction && update.CallbackID != "" {
			toast = screens.UnknownActionText
			continue
		}

		sc := s.screens.Build(id, s.screenContext(ctx, update, out, id))
		if err := s.telegram.SendScreen(update.ChatID, sc); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.answer(update, toast); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) screenContext(ctx context.Context, update models.Update, out conversation.Outcome, id models.ScreenID) screens.Context {
	c := screens.Context{
		UserID:    update.UserID,
		FirstName: update.FirstName,
		Summary:   out.State.Summary,
		Package:   out.State.Package,
		Report:    out.Report,
	}
	if id == screens.MainMenu || id == screens.Referral {
		n, err := s.referrals.CountReferrals(ctx, update.UserID)
		if err != nil {
			s.logger.Warn("не удалось посчитать приглашения", zap.Error(err), zap.Int64("user_id", update.UserID))
		}
		c.Referrals = n
	}
	return c
}

// fallback - мягкая реакция на сбой хранилища: подсказка вместо текста ошибки
func (s *Service) fallback(update models.Update, cause error) error {
	sc := s.screens.Build(screens.Fallback, screens.Context{})
	if err := s.telegram.SendScreen(update.ChatID, sc); err != nil {
		return errors.Join(cause, err)
	}
	if err := s.answer(update, ""); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (s *Service) answer(update models.Update, text string) error {
	if update.CallbackID == "" {
		return nil
	}
	return s.telegram.AnswerCallback(update.CallbackID, text)
}

func (s *Service) send(chatID int64, sc models.Screen) {
	if err := s.telegram.SendScreen(chatID, sc); err != nil {
		s.logger.Error("ошибка при отправке сообщения",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("screen", string(sc.ID)),
		)
	}
}

// parseReferral - разбирает payload команды /start вида ref_<id>
func parseReferral(payload string) (int64, bool) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(payload), referralPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func callbackEvent(data string) (conversation.Event, bool) {
	switch data {
	case screens.DataDiagStart:
		return conversation.StartDiagnosis{}, true
	case screens.DataHowItWorks:
		return conversation.ShowInfo{Topic: conversation.TopicHowItWorks}, true
	case screens.DataPrices:
		return conversation.ShowInfo{Topic: conversation.TopicPrices}, true
	case screens.DataHelp:
		return conversation.ShowInfo{Topic: conversation.TopicHelp}, true
	case screens.DataReferral:
		return conversation.ShowInfo{Topic: conversation.TopicReferral}, true
	case screens.DataBack:
		return conversation.Back{}, true
	case screens.DataConsent:
		return conversation.AcceptConsent{}, true
	case screens.DataAccess:
		return conversation.GrantAccess{}, true
	case screens.DataPay:
		return conversation.Pay{}, true
	}

	if code, ok := strings.CutPrefix(data, screens.DataPackage); ok {
		// неизвестный пакет отклонит сама машина
		return conversation.ChoosePackage{Package: models.ParsePackage(code)}, true
	}
	return nil, false
}

func menuEvent(text string) (conversation.Event, bool) {
	raw := strings.TrimSpace(text)
	for _, label := range menuLabels {
		if strings.HasPrefix(raw, label.prefix) || strings.Contains(raw, label.phrase) {
			return label.event, true
		}
	}
	return nil, false
}
