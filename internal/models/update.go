package models

// UpdateKind tells what an inbound update carries.
type UpdateKind int

const (
	KindCommand UpdateKind = iota
	KindButtonPress
	KindFreeText
)

// Update is one inbound event from the chat transport.
type Update struct {
	UserID    int64
	ChatID    int64
	Kind      UpdateKind
	Command   string // without the leading slash, KindCommand only
	Payload   string // command arguments, callback data or message text
	FirstName string
	LastName  string
	Username  string

	// CallbackID is set for button presses so the transport can acknowledge them.
	CallbackID string
}

// FullName joins first and last name the way Telegram shows them.
func (u Update) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
