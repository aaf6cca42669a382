package bot

import (
	"ai-master-bot/internal/config"
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/database"
	"ai-master-bot/internal/intake"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sentScreen struct {
	chatID int64
	screen models.Screen
}

type fakeTelegram struct {
	mu      sync.Mutex
	sent    []sentScreen
	answers map[string]string
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{answers: make(map[string]string)}
}

func (f *fakeTelegram) SendScreen(chatID int64, sc models.Screen) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentScreen{chatID: chatID, screen: sc})
	return nil
}

func (f *fakeTelegram) AnswerCallback(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[callbackID] = text
	return nil
}

func (f *fakeTelegram) screens(chatID int64) []models.ScreenID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []models.ScreenID
	for _, s := range f.sent {
		if s.chatID == chatID {
			ids = append(ids, s.screen.ID)
		}
	}
	return ids
}

func (f *fakeTelegram) last(chatID int64) models.Screen {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].chatID == chatID {
			return f.sent[i].screen
		}
	}
	return models.Screen{}
}

func (f *fakeTelegram) answer(callbackID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.answers[callbackID]
	return text, ok
}

type harness struct {
	svc       *Service
	tg        *fakeTelegram
	machine   *conversation.Machine
	users     *database.UserRepository
	referrals *database.ReferralRepository
	clock     *clockwork.FakeClock
	bonuses   int
}

func newHarness(t *testing.T, store conversation.Store) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := database.NewConnection(config.Database{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "bot.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, logger))

	scheduler, err := gocron.NewScheduler()
	require.NoError(t, err)
	scheduler.Start()
	t.Cleanup(func() { _ = scheduler.Shutdown() })

	h := &harness{
		tg:        newFakeTelegram(),
		users:     database.NewUserRepository(db, logger),
		referrals: database.NewReferralRepository(db, logger),
		clock:     clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.machine = conversation.NewMachine(store, intake.New(nil), h.clock, logger)
	h.svc = NewService(h.tg, logger, h.machine, h.users, h.referrals,
		screens.Builder{BotName: "ai_master_bot"}, scheduler,
		Options{
			Workers: 4,
			Bonus: func(context.Context, int64, int64) error {
				h.bonuses++
				return nil
			},
		})
	return h
}

func command(userID int64, payload string) models.Update {
	return models.Update{UserID: userID, ChatID: userID, Kind: models.KindCommand, Command: "start", Payload: payload, FirstName: "Олена"}
}

func press(userID int64, data, callbackID string) models.Update {
	return models.Update{UserID: userID, ChatID: userID, Kind: models.KindButtonPress, Payload: data, CallbackID: callbackID}
}

func text(userID int64, payload string) models.Update {
	return models.Update{UserID: userID, ChatID: userID, Kind: models.KindFreeText, Payload: payload}
}

func (h *harness) handle(t *testing.T, u models.Update) {
	t.Helper()
	require.NoError(t, h.svc.HandleUpdate(context.Background(), u))
}

func (h *harness) phase(t *testing.T, userID int64) conversation.Phase {
	t.Helper()
	st, err := h.machine.State(context.Background(), userID)
	require.NoError(t, err)
	return st.Phase
}

func TestStartWithReferralCreditsOnce(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	h.handle(t, command(100, ""))
	assert.Equal(t, []models.ScreenID{screens.MainMenu}, h.tg.screens(100))

	h.handle(t, command(200, "ref_100"))
	assert.Equal(t, []models.ScreenID{screens.MainMenu, "referral_credited"}, h.tg.screens(100))
	assert.Equal(t, []models.ScreenID{"referral_welcome", screens.MainMenu}, h.tg.screens(200))
	assert.Contains(t, h.tg.sent[1].screen.Text, "Олена")
	assert.Equal(t, 1, h.bonuses)

	h.handle(t, command(200, "ref_100"))
	assert.Len(t, h.tg.screens(100), 2, "second start must not notify the referrer")
	assert.Equal(t, 1, h.bonuses)

	n, err := h.referrals.CountReferrals(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h.handle(t, command(100, ""))
	assert.Contains(t, h.tg.last(100).Text, "<b>1</b>")
}

func TestStartWithoutCreditNotifiesNobody(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"self", "ref_300"},
		{"unknown referrer", "ref_999"},
		{"not digits", "ref_abc"},
		{"empty id", "ref_"},
		{"other payload", "promo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, conversation.NewMemoryStore())
			h.handle(t, command(300, tt.payload))

			assert.Equal(t, []models.ScreenID{screens.MainMenu}, h.tg.screens(300))
			assert.Empty(t, h.tg.screens(999))
			assert.Zero(t, h.bonuses)

			referrer, err := h.referrals.GetReferrer(context.Background(), 300)
			require.NoError(t, err)
			assert.Nil(t, referrer)
		})
	}
}

func TestFunnelThroughDispatcher(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	const user = 42

	h.handle(t, command(user, ""))
	h.handle(t, press(user, screens.DataDiagStart, "c1"))
	assert.Equal(t, conversation.AwaitingProblemText, h.phase(t, user))

	h.handle(t, text(user, "повільно вмикається ПК"))
	assert.Equal(t, conversation.DiagnosisShown, h.phase(t, user))
	assert.Contains(t, h.tg.last(user).Text, "автозапуск")

	h.handle(t, press(user, "pkg_PRO_WIN", "c2"))
	st, err := h.machine.State(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, models.PackageProPlusOS, st.Package)
	assert.Contains(t, h.tg.last(user).Text, "PRO + Windows")

	h.handle(t, press(user, screens.DataConsent, "c3"))
	h.handle(t, press(user, screens.DataAccess, "c4"))

	require.Eventually(t, func() bool {
		return h.phase(t, user) == conversation.AwaitingPayment
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return h.tg.last(user).ID == screens.Payment
	}, 5*time.Second, 10*time.Millisecond)

	ids := h.tg.screens(user)
	assert.Equal(t, []models.ScreenID{
		screens.MainMenu, screens.DiagRequest, screens.Diagnosis, screens.Consent,
		screens.AccessRequest, screens.Working, screens.WorkReport, screens.Payment,
	}, ids)

	h.handle(t, press(user, screens.DataPay, "c5"))
	assert.Equal(t, screens.Paid, h.tg.last(user).ID)
	assert.Equal(t, conversation.Idle, h.phase(t, user))

	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		answer, ok := h.tg.answer(id)
		assert.True(t, ok, id)
		assert.Empty(t, answer, id)
	}
}

func TestBackAbandonsWork(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	h.svc.workDelay = 200 * time.Millisecond
	const user = 7

	h.handle(t, press(user, screens.DataDiagStart, ""))
	h.handle(t, text(user, "гальмує браузер"))
	h.handle(t, press(user, "pkg_BASIC", ""))
	h.handle(t, press(user, screens.DataConsent, ""))
	h.handle(t, press(user, screens.DataAccess, ""))
	h.handle(t, press(user, screens.DataBack, ""))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, conversation.Idle, h.phase(t, user))
	assert.NotContains(t, h.tg.screens(user), screens.WorkReport)
}

// brokenScheduler отказывается ставить задачи
type brokenScheduler struct {
	gocron.Scheduler
}

func (brokenScheduler) NewJob(gocron.JobDefinition, gocron.Task, ...gocron.JobOption) (gocron.Job, error) {
	return nil, errors.New("scheduler is down")
}

func TestWorkSchedulingFailureResetsSession(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	h.svc.scheduler = brokenScheduler{}
	const user = 8

	h.handle(t, press(user, screens.DataDiagStart, ""))
	h.handle(t, text(user, "повільний автозапуск"))
	h.handle(t, press(user, "pkg_BASIC", ""))
	h.handle(t, press(user, screens.DataConsent, ""))

	err := h.svc.HandleUpdate(context.Background(), press(user, screens.DataAccess, "cb-access"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler is down")

	got := h.tg.screens(user)
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, []models.ScreenID{screens.Working, screens.Fallback}, got[len(got)-2:])
	assert.Equal(t, conversation.Idle, h.phase(t, user))

	_, answered := h.tg.answer("cb-access")
	assert.True(t, answered)
}

func TestWorkingScreenOffersBack(t *testing.T) {
	sc := screens.Builder{}.Build(screens.Working, screens.Context{})
	require.NotEmpty(t, sc.Buttons)
	assert.Equal(t, screens.DataBack, sc.Buttons[len(sc.Buttons)-1][0].Data)
}

func TestRejectedPressIsAToast(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	h.handle(t, press(5, screens.DataPay, "cb-pay"))
	h.handle(t, press(5, "something_else", "cb-unknown"))
	h.handle(t, press(5, "pkg_GOLD", "cb-gold"))

	assert.Empty(t, h.tg.screens(5))
	for _, id := range []string{"cb-pay", "cb-unknown", "cb-gold"} {
		answer, ok := h.tg.answer(id)
		assert.True(t, ok)
		assert.Equal(t, screens.UnknownActionText, answer)
	}
	assert.Equal(t, conversation.Idle, h.phase(t, 5))
}

func TestFreeTextOutsideDiagnosisPointsToMenu(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	h.handle(t, text(9, "привіт"))
	assert.Equal(t, []models.ScreenID{screens.UseMenu}, h.tg.screens(9))
	assert.Equal(t, conversation.Idle, h.phase(t, 9))
}

func TestMenuLabelsAsText(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	h.handle(t, text(1, "💰 Вартість / пакети"))
	h.handle(t, text(1, "🆘 Допомога"))
	h.handle(t, text(1, "📘 Як проходить діагностика"))
	h.handle(t, text(1, "🧰 Почати діагностику"))

	assert.Equal(t, []models.ScreenID{screens.Prices, screens.Help, screens.HowItWorks, screens.DiagRequest}, h.tg.screens(1))
	assert.Equal(t, conversation.AwaitingProblemText, h.phase(t, 1))
}

func TestReferralScreenShowsLink(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	h.handle(t, press(77, screens.DataReferral, "r"))
	assert.Contains(t, h.tg.last(77).Text, "https://t.me/ai_master_bot?start=ref_77")
}

type brokenStore struct{}

func (brokenStore) Load(context.Context, int64) (conversation.State, bool, error) {
	return conversation.State{}, false, errors.New("dial tcp: connection refused")
}
func (brokenStore) Save(context.Context, conversation.State) error { return errors.New("down") }
func (brokenStore) Delete(context.Context, int64) error           { return errors.New("down") }
func (brokenStore) ListByPhase(context.Context, conversation.Phase) ([]conversation.State, error) {
	return nil, errors.New("down")
}

func TestStorageFailureShowsFallback(t *testing.T) {
	h := newHarness(t, brokenStore{})

	err := h.svc.HandleUpdate(context.Background(), press(3, screens.DataDiagStart, "cb"))
	require.ErrorIs(t, err, models.ErrStorageUnavailable)

	assert.Equal(t, []models.ScreenID{screens.Fallback}, h.tg.screens(3))
	_, answered := h.tg.answer("cb")
	assert.True(t, answered)
}

func TestStartShardsByUser(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())

	updates := make(chan models.Update)
	done := make(chan error, 1)
	go func() { done <- h.svc.Start(context.Background(), updates) }()

	users := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, u := range users {
		updates <- command(u, "")
	}
	for _, u := range users {
		updates <- press(u, screens.DataDiagStart, "")
	}
	for _, u := range users {
		updates <- text(u, "браузер гальмує")
	}
	close(updates)
	require.NoError(t, <-done)

	for _, u := range users {
		assert.Equal(t, conversation.DiagnosisShown, h.phase(t, u), "user %d", u)
		assert.Equal(t, []models.ScreenID{screens.MainMenu, screens.DiagRequest, screens.Diagnosis}, h.tg.screens(u))
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.svc.Start(ctx, make(chan models.Update)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestParseReferral(t *testing.T) {
	tests := []struct {
		payload string
		id      int64
		ok      bool
	}{
		{"ref_123", 123, true},
		{" ref_5 ", 5, true},
		{"ref_", 0, false},
		{"ref_-1", 0, false},
		{"ref_0", 0, false},
		{"ref_12a", 0, false},
		{"ref_99999999999999999999", 0, false},
		{"123", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseReferral(tt.payload)
		assert.Equal(t, tt.ok, ok, tt.payload)
		assert.Equal(t, tt.id, id, tt.payload)
	}
}

func TestCallbackEvent(t *testing.T) {
	ev, ok := callbackEvent("pkg_PRO_WIN")
	require.True(t, ok)
	assert.Equal(t, conversation.ChoosePackage{Package: models.PackageProPlusOS}, ev)

	ev, ok = callbackEvent("pkg_standard")
	require.True(t, ok)
	assert.Equal(t, conversation.ChoosePackage{Package: models.PackageStandard}, ev)

	ev, ok = callbackEvent(screens.DataReferral)
	require.True(t, ok)
	assert.Equal(t, conversation.ShowInfo{Topic: conversation.TopicReferral}, ev)

	_, ok = callbackEvent("take_order:1")
	assert.False(t, ok)
}
