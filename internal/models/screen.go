package models

// ScreenID names an outbound screen.
type ScreenID string

// Button is one inline keyboard button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Screen is what the dispatcher asks the transport to render.
type Screen struct {
	ID      ScreenID
	Text    string
	Buttons [][]Button
}
