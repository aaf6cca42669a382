package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"ai-master-bot/internal/utils"
	"context"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	shardBuffer     = 64
	payloadLogLimit = 64
)

// NewService - создает новый экземпляр диспетчера
func NewService(
	telegram TelegramClient,
	logger *zap.Logger,
	machine *conversation.Machine,
	users Accounts,
	referrals Ledger,
	builder screens.Builder,
	scheduler gocron.Scheduler,
	opts Options,
) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Remediator == nil {
		opts.Remediator = SimulatedRemediator{}
	}
	if opts.Bonus == nil {
		opts.Bonus = noBonus
	}

	return &Service{
		telegram:   telegram,
		logger:     logger,
		machine:    machine,
		users:      users,
		referrals:  referrals,
		screens:    builder,
		scheduler:  scheduler,
		remediator: opts.Remediator,
		bonus:      opts.Bonus,
		workDelay:  opts.WorkDelay,
		workers:    opts.Workers,
	}
}

// Start - раздаёт обновления воркерам и блокируется, пока канал не закрыт
// или не отменён контекст. Обновления одного пользователя всегда попадают
// в один воркер и обрабатываются в порядке поступления.
func (s *Service) Start(ctx context.Context, updates <-chan models.Update) error {
	shards := make([]chan models.Update, s.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan models.Update, shardBuffer)
		wg.Add(1)
		go func(in <-chan models.Update) {
			defer wg.Done()
			s.worker(ctx, in)
		}(shards[i])
	}

	s.logger.Info("диспетчер запущен", zap.Int("workers", s.workers))

	defer func() {
		for _, shard := range shards {
			close(shard)
		}
		wg.Wait()
		s.logger.Info("диспетчер остановлен")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case shards[shardOf(update.UserID, s.workers)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (s *Service) worker(ctx context.Context, in <-chan models.Update) {
	for update := range in {
		s.logger.Debug("получено обновление",
			zap.Int64("user_id", update.UserID),
			zap.Int("kind", int(update.Kind)),
			zap.String("payload", utils.Truncate(update.Payload, payloadLogLimit)),
		)

		if err := s.HandleUpdate(ctx, update); err != nil {
			s.logger.Error("ошибка при обработке обновления",
				zap.Error(err),
				zap.Int64("user_id", update.UserID),
			)
		}
	}
}

func shardOf(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}
