package app

import (
	"ai-master-bot/internal/api"
	"ai-master-bot/internal/bot"
	"ai-master-bot/internal/config"
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/database"
	"ai-master-bot/internal/grpc"
	"ai-master-bot/internal/intake"
	"ai-master-bot/internal/logger"
	"ai-master-bot/internal/screens"
	"ai-master-bot/internal/telegram"
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func Run(configPath string, runMigrations, rollback, verbose bool) error {
	// Загружаем конфигурацию
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logger, verbose)
	if err != nil {
		return fmt.Errorf("не удалось создать логгер: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключаемся к базе данных
	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if rollback {
		return database.Rollback(ctx, db, log)
	}
	if runMigrations {
		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	// Инициализируем репозитории
	userRepo := database.NewUserRepository(db, log)
	referralRepo := database.NewReferralRepository(db, log)

	// Хранилище состояний диалога: Redis, если задан, иначе память процесса
	var store conversation.Store = conversation.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		client, err := conversation.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("не удалось подключиться к Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
			return err
		}
		defer client.Close()
		store = conversation.NewRedisStore(client, cfg.Redis.TTL, log)
		log.Info("состояния диалогов хранятся в Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Warn("Redis не задан, состояния диалогов хранятся в памяти")
	}

	clock := clockwork.NewRealClock()
	machine := conversation.NewMachine(store, intake.New(classifierRules(cfg.Classifier)), clock, log)

	// Инициализируем Telegram клиент
	tgClient, err := telegram.NewTelegramClient(cfg.Telegram.Token, cfg.Telegram.Debug, log)
	if err != nil {
		log.Error("ошибка создания Telegram клиента", zap.Error(err))
		return err
	}

	botName := cfg.Telegram.BotName
	if botName == "" {
		botName = tgClient.UserName()
	}
	builder := screens.Builder{BotName: botName}

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return fmt.Errorf("ошибка создания планировщика: %w", err)
	}

	botService := bot.NewService(tgClient, log, machine, userRepo, referralRepo, builder, scheduler, bot.Options{
		Workers:   cfg.Telegram.Workers,
		WorkDelay: cfg.Work.Duration,
	})

	// Инициализируем сервис напоминаний
	reminderService := bot.NewReminderService(machine, tgClient, builder, log, clock, cfg.Reminder.Interval, cfg.Reminder.After)
	if err := reminderService.Start(scheduler); err != nil {
		return fmt.Errorf("ошибка запуска сервиса напоминаний: %w", err)
	}
	scheduler.Start()

	var health *grpc.HealthServer
	if cfg.GRPC.HealthAddr != "" {
		health = grpc.NewHealthServer(log)
		if err := health.Listen(cfg.GRPC.HealthAddr); err != nil {
			return err
		}
	}

	var webhookServer *api.WebhookServer
	switch cfg.Telegram.Mode {
	case "webhook":
		webhookServer = api.NewWebhookServer(log, tgClient, cfg.Server.Port, cfg.Telegram.Debug)
		webhookServer.Start()
		if err := tgClient.SetWebhook(strings.TrimRight(cfg.Telegram.WebhookURL, "/") + api.WebhookPath); err != nil {
			log.Error("ошибка установки вебхука", zap.Error(err))
			return err
		}
	default:
		if err := tgClient.StartPolling(ctx); err != nil {
			log.Error("ошибка запуска бота", zap.Error(err))
			return err
		}
	}

	if health != nil {
		health.SetServing(true)
	}
	log.Info("бот запущен", zap.String("mode", cfg.Telegram.Mode), zap.String("bot", botName))

	// Блокируемся до сигнала остановки
	runErr := botService.Start(ctx, tgClient.Updates())

	log.Info("остановка бота")
	if health != nil {
		health.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if webhookServer != nil {
		if err := webhookServer.Stop(shutdownCtx); err != nil {
			log.Error("ошибка остановки HTTP-сервера", zap.Error(err))
		}
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error("ошибка остановки планировщика", zap.Error(err))
	}
	if health != nil {
		health.Stop()
	}

	return runErr
}

func classifierRules(cfg config.Classifier) []intake.Rule {
	if len(cfg.Rules) == 0 {
		return nil
	}
	rules := make([]intake.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, intake.Rule{
			Category: intake.Category(strings.ToUpper(r.Category)),
			Keywords: r.Keywords,
			Summary:  r.Summary,
		})
	}
	return rules
}
