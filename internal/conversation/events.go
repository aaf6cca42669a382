package conversation

import "ai-master-bot/internal/models"

// Event is one inbound action. The set is closed: only types in this file
// implement it.
type Event interface {
	event()
}

// InfoTopic names an informational screen that does not move the funnel.
type InfoTopic string

const (
	TopicHowItWorks InfoTopic = "how_it_works"
	TopicPrices     InfoTopic = "prices"
	TopicHelp       InfoTopic = "help"
	TopicReferral   InfoTopic = "referral"
)

type (
	// StartCommand is /start; it resets everything.
	StartCommand struct{}
	// Back returns to the main menu from any phase.
	Back           struct{}
	StartDiagnosis struct{}
	FreeText       struct{ Text string }
	ChoosePackage  struct{ Package models.Package }
	AcceptConsent  struct{}
	GrantAccess    struct{}
	// WorkDone is produced by the dispatcher once remediation for SessionID
	// has finished.
	WorkDone struct {
		SessionID string
		Report    string
	}
	Pay      struct{}
	ShowInfo struct{ Topic InfoTopic }
)

func (StartCommand) event()   {}
func (Back) event()           {}
func (StartDiagnosis) event() {}
func (FreeText) event()       {}
func (ChoosePackage) event()  {}
func (AcceptConsent) event()  {}
func (GrantAccess) event()    {}
func (WorkDone) event()       {}
func (Pay) event()            {}
func (ShowInfo) event()       {}
