package conversation

import (
	"ai-master-bot/internal/intake"
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/screens"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Outcome describes what one event did.
type Outcome struct {
	State State
	// Path lists every phase entered, including transient ones.
	Path     []Phase
	Screens  []models.ScreenID
	Report   string
	Rejected bool
	// StartWork asks the dispatcher to run remediation for State.SessionID.
	StartWork bool
}

// Changed reports whether the event moved the user.
func (o Outcome) Changed() bool {
	return len(o.Path) > 0
}

// Machine owns every user's State. Events for one user are serialized;
// different users proceed in parallel.
type Machine struct {
	store      Store
	classifier *intake.Classifier
	clock      clockwork.Clock
	logger     *zap.Logger
	locks      *keyedMutex
}

func NewMachine(store Store, classifier *intake.Classifier, clock clockwork.Clock, logger *zap.Logger) *Machine {
	return &Machine{
		store:      store,
		classifier: classifier,
		clock:      clock,
		logger:     logger,
		locks:      newKeyedMutex(),
	}
}

// Apply runs ev for userID. On a storage error the stored state is left as
// it was and the error wraps models.ErrStorageUnavailable.
func (m *Machine) Apply(ctx context.Context, userID int64, ev Event) (Outcome, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	current, err := m.load(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}

	out := m.transition(current, ev)
	if !out.Changed() {
		return out, nil
	}

	out.State.UpdatedAt = m.clock.Now()
	if err := out.State.Validate(); err != nil {
		// a transition produced an inconsistent state; keep the old one
		return Outcome{}, fmt.Errorf("transition %T from %s: %w", ev, current.Phase, err)
	}

	if out.State.Phase == Idle {
		err = m.store.Delete(ctx, userID)
	} else {
		err = m.store.Save(ctx, out.State)
	}
	if err != nil {
		m.logger.Error("ошибка сохранения состояния диалога",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("phase", string(out.State.Phase)),
		)
		return Outcome{}, fmt.Errorf("save state: %w: %w", models.ErrStorageUnavailable, err)
	}

	m.logger.Debug("переход состояния",
		zap.Int64("user_id", userID),
		zap.String("from", string(current.Phase)),
		zap.Any("path", out.Path),
		zap.String("session_id", out.State.SessionID),
	)

	return out, nil
}

// State returns the current state of userID.
func (m *Machine) State(ctx context.Context, userID int64) (State, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.load(ctx, userID)
}

// MarkReminded flags a payment reminder for userID if the user has been
// waiting for payment since before cutoff and was not reminded yet.
func (m *Machine) MarkReminded(ctx context.Context, userID int64, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	st, err := m.load(ctx, userID)
	if err != nil {
		return false, err
	}
	if st.Phase != AwaitingPayment || st.ReminderSent || st.UpdatedAt.After(cutoff) {
		return false, nil
	}

	st.ReminderSent = true
	if err := m.store.Save(ctx, st); err != nil {
		return false, fmt.Errorf("save state: %w: %w", models.ErrStorageUnavailable, err)
	}
	return true, nil
}

// AwaitingPayment lists users currently sitting on the payment screen.
func (m *Machine) AwaitingPayment(ctx context.Context) ([]State, error) {
	states, err := m.store.ListByPhase(ctx, AwaitingPayment)
	if err != nil {
		return nil, fmt.Errorf("list states: %w: %w", models.ErrStorageUnavailable, err)
	}
	return states, nil
}

func (m *Machine) load(ctx context.Context, userID int64) (State, error) {
	st, ok, err := m.store.Load(ctx, userID)
	if err != nil {
		return State{}, fmt.Errorf("load state: %w: %w", models.ErrStorageUnavailable, err)
	}
	if !ok {
		return NewState(userID), nil
	}
	return st, nil
}

// transition is the fixed transition table. It never touches the store.
func (m *Machine) transition(st State, ev Event) Outcome {
	switch e := ev.(type) {
	case StartCommand, Back:
		return moved(st.reset(), screens.MainMenu)

	case ShowInfo:
		return Outcome{State: st, Screens: []models.ScreenID{infoScreen(e.Topic)}}

	case StartDiagnosis:
		if st.Phase != Idle {
			return rejected(st)
		}
		next := st.reset()
		next.Phase = AwaitingProblemText
		next.SessionID = uuid.NewString()
		return moved(next, screens.DiagRequest)

	case FreeText:
		if st.Phase != AwaitingProblemText {
			return Outcome{State: st, Screens: []models.ScreenID{screens.UseMenu}, Rejected: true}
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return Outcome{State: st, Screens: []models.ScreenID{screens.DiagRequest}, Rejected: true}
		}
		next := st
		next.Phase = DiagnosisShown
		next.Category = m.classifier.Classify(text)
		next.Summary = m.classifier.Summary(next.Category)
		return moved(next, screens.Diagnosis)

	case ChoosePackage:
		if st.Phase != DiagnosisShown || !e.Package.Valid() {
			return rejected(st)
		}
		next := st
		next.Phase = PackageChosen
		next.Package = e.Package
		return moved(next, screens.Consent)

	case AcceptConsent:
		if st.Phase != PackageChosen {
			return rejected(st)
		}
		next := st
		next.Phase = ConsentGiven
		return moved(next, screens.AccessRequest)

	case GrantAccess:
		if st.Phase != ConsentGiven {
			return rejected(st)
		}
		next := st
		next.Phase = Working
		out := moved(next, screens.Working)
		out.Path = []Phase{AccessGranted, Working}
		out.StartWork = true
		return out

	case WorkDone:
		if st.Phase != Working || e.SessionID != st.SessionID {
			// stale completion of an abandoned session: nothing to show
			return Outcome{State: st, Rejected: true}
		}
		next := st
		next.Phase = AwaitingPayment
		next.ReminderSent = false
		out := moved(next, screens.WorkReport, screens.Payment)
		out.Report = e.Report
		return out

	case Pay:
		if st.Phase != AwaitingPayment {
			return rejected(st)
		}
		return moved(st.reset(), screens.Paid)

	default:
		return rejected(st)
	}
}

func moved(next State, ids ...models.ScreenID) Outcome {
	return Outcome{State: next, Path: []Phase{next.Phase}, Screens: ids}
}

func rejected(st State) Outcome {
	return Outcome{State: st, Screens: []models.ScreenID{screens.UnknownAction}, Rejected: true}
}

func infoScreen(topic InfoTopic) models.ScreenID {
	switch topic {
	case TopicHowItWorks:
		return screens.HowItWorks
	case TopicPrices:
		return screens.Prices
	case TopicReferral:
		return screens.Referral
	default:
		return screens.Help
	}
}
