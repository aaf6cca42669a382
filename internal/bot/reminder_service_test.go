package bot

import (
	"ai-master-bot/internal/conversation"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func awaitPayment(t *testing.T, h *harness, userID int64) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range []conversation.Event{
		conversation.StartDiagnosis{},
		conversation.FreeText{Text: "гальмує браузер"},
		conversation.ChoosePackage{Package: models.PackageBasic},
		conversation.AcceptConsent{},
		conversation.GrantAccess{},
	} {
		_, err := h.machine.Apply(ctx, userID, ev)
		require.NoError(t, err)
	}
	st, err := h.machine.State(ctx, userID)
	require.NoError(t, err)
	_, err = h.machine.Apply(ctx, userID, conversation.WorkDone{SessionID: st.SessionID, Report: "ok"})
	require.NoError(t, err)
}

func TestRemindersAreSentOnce(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	reminders := NewReminderService(h.machine, h.tg, screens.Builder{}, zaptest.NewLogger(t), h.clock, time.Minute, 24*time.Hour)
	ctx := context.Background()

	awaitPayment(t, h, 1)
	h.clock.Advance(12 * time.Hour)
	awaitPayment(t, h, 2)

	assert.Zero(t, reminders.CheckAndSendReminders(ctx))

	h.clock.Advance(13 * time.Hour)
	assert.Equal(t, 1, reminders.CheckAndSendReminders(ctx))
	assert.Equal(t, []models.ScreenID{screens.Reminder}, h.tg.screens(1))
	assert.Empty(t, h.tg.screens(2))

	assert.Zero(t, reminders.CheckAndSendReminders(ctx))

	h.clock.Advance(12 * time.Hour)
	assert.Equal(t, 1, reminders.CheckAndSendReminders(ctx))
	assert.Equal(t, []models.ScreenID{screens.Reminder}, h.tg.screens(2))
	assert.Len(t, h.tg.screens(1), 1)
}

func TestReminderSkipsPaidUsers(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	reminders := NewReminderService(h.machine, h.tg, screens.Builder{}, zaptest.NewLogger(t), h.clock, time.Minute, time.Hour)

	awaitPayment(t, h, 1)
	_, err := h.machine.Apply(context.Background(), 1, conversation.Pay{})
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	assert.Zero(t, reminders.CheckAndSendReminders(context.Background()))
}

func TestReminderStartRegistersJob(t *testing.T) {
	h := newHarness(t, conversation.NewMemoryStore())
	reminders := NewReminderService(h.machine, h.tg, screens.Builder{}, zaptest.NewLogger(t), h.clock, time.Hour, time.Hour)

	scheduler, err := gocron.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = scheduler.Shutdown() })

	require.NoError(t, reminders.Start(scheduler))
	require.Len(t, scheduler.Jobs(), 1)
	assert.Equal(t, "payment-reminders", scheduler.Jobs()[0].Name())
}
