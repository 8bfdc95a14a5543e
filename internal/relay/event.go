package relay

// Sender identifies the participant behind an inbound event.
type Sender struct {
	ID          int64
	DisplayName string
	// Address is the chat that replies go to.
	Address int64
}

// Input is one of Command, ButtonPress, CallbackPayload or FreeText.
type Input interface {
	isInput()
}

// Command is an explicit registered slash command.
type Command struct {
	Name    string
	Payload string
}

// ButtonPress is reply-keyboard text that matched a known button label.
type ButtonPress struct {
	Label string
}

// CallbackPayload is an inline button press.
type CallbackPayload struct {
	Action string
	Data   string
}

// FreeText is any other text, including unregistered slash tokens such as /cancel.
type FreeText struct {
	Text string
}

func (Command) isInput()         {}
func (ButtonPress) isInput()     {}
func (CallbackPayload) isInput() {}
func (FreeText) isInput()        {}

// Event is one classified inbound update.
type Event struct {
	Sender Sender
	Input  Input
}

// Button is an inline button. Action and Data come back as a CallbackPayload.
type Button struct {
	Text   string
	Action string
	Data   string
}

// Message is one outbound message. Keyboard and Buttons are mutually exclusive.
type Message struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
	Buttons        [][]Button
}

// MenuEntry is one line of a per-chat command menu.
type MenuEntry struct {
	Command     string
	Description string
}
