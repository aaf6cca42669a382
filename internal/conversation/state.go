// Package conversation tracks where each user is in the intake funnel and
// applies one transition per inbound event.
package conversation

import (
	"ai-master-bot/internal/intake"
	"ai-master-bot/internal/models"
	"fmt"
	"time"
)

type Phase string

const (
	Idle                Phase = "IDLE"
	AwaitingProblemText Phase = "AWAITING_PROBLEM_TEXT"
	DiagnosisShown      Phase = "DIAGNOSIS_SHOWN"
	PackageChosen       Phase = "PACKAGE_CHOSEN"
	ConsentGiven        Phase = "CONSENT_GIVEN"
	AccessGranted       Phase = "ACCESS_GRANTED"
	Working             Phase = "WORKING"
	AwaitingPayment     Phase = "AWAITING_PAYMENT"
)

var phaseOrder = map[Phase]int{
	Idle:                0,
	AwaitingProblemText: 1,
	DiagnosisShown:      2,
	PackageChosen:       3,
	ConsentGiven:        4,
	AccessGranted:       5,
	Working:             6,
	AwaitingPayment:     7,
}

// Reached reports whether p is at or past target in the funnel.
func (p Phase) Reached(target Phase) bool {
	return phaseOrder[p] >= phaseOrder[target]
}

func (p Phase) valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// State is one user's position in the funnel.
type State struct {
	UserID       int64           `json:"user_id"`
	Phase        Phase           `json:"phase"`
	Package      models.Package  `json:"package,omitempty"`
	Category     intake.Category `json:"category,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ReminderSent bool            `json:"reminder_sent,omitempty"`
}

// NewState is the state of a user the machine has never seen.
func NewState(userID int64) State {
	return State{UserID: userID, Phase: Idle}
}

// Validate checks the field/phase invariants.
func (s State) Validate() error {
	if !s.Phase.valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.Package != "" && !s.Phase.Reached(PackageChosen) {
		return fmt.Errorf("package %s set in phase %s", s.Package, s.Phase)
	}
	if s.Package != "" && !s.Package.Valid() {
		return fmt.Errorf("invalid package %q", s.Package)
	}
	if s.Summary != "" && !s.Phase.Reached(DiagnosisShown) {
		return fmt.Errorf("diagnosis summary set in phase %s", s.Phase)
	}
	return nil
}

func (s State) reset() State {
	return State{UserID: s.UserID, Phase: Idle}
}
