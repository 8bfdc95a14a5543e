package relay

import (
	"strings"
	"unicode"
)

// Scope restricts who may run a command.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeAdmin
	ScopeUser
)

// Action names a relay entry point.
type Action string

const (
	ActionStart     Action = "start"
	ActionSubscribe Action = "subscribe"
	ActionHelp      Action = "help"
	ActionGoodbye   Action = "goodbye"
	ActionArtist    Action = "artist"
	ActionUsers     Action = "users"
	ActionChat      Action = "chat"
	ActionBroadcast Action = "broadcast"
	ActionRemind    Action = "remind"
	ActionPending   Action = "pending_payments"
	ActionConfirm   Action = "confirm_payment"
)

// Callback actions carried by inline buttons.
const (
	CallbackChat    = "chat"
	CallbackSearch  = "search"
	CallbackConfirm = "confirm"
)

// Reply keyboard labels.
const (
	LabelSubscribe = "Subscribe"
	LabelHelp      = "Help"
	LabelExit      = "Exit"
	LabelArtist    = "Chat with Your Favorite BTS Artist 🌟"
)

// CommandDef binds a slash name and/or button labels to an action.
// A def without an Action only appears in menus.
type CommandDef struct {
	Name        string
	Description string
	Scope       Scope
	Labels      []string
	Action      Action
	InMenu      bool
}

// Commands is the command table shared by the transport adapter and the engine.
type Commands struct {
	defs []CommandDef
}

// NewCommands builds the table. botName appears in the /start description.
func NewCommands(botName string) *Commands {
	return &Commands{defs: []CommandDef{
		{Name: "start", Description: "Register with " + botName, Scope: ScopeAll, Action: ActionStart, InMenu: true},
		{Name: "subscribe", Description: "Subscribe to chat with your favorite BTS artist", Scope: ScopeUser, Labels: []string{LabelSubscribe}, Action: ActionSubscribe, InMenu: true},
		{Name: "help", Description: "Get support from BTS admins", Scope: ScopeUser, Labels: []string{LabelHelp}, Action: ActionHelp, InMenu: true},
		{Name: "users", Description: "(Admin) List all users", Scope: ScopeAdmin, Action: ActionUsers, InMenu: true},
		{Name: "chat", Description: "(Admin) Chat with a user", Scope: ScopeAdmin, Action: ActionChat, InMenu: true},
		{Name: "broadcast", Description: "(Admin) Broadcast a message to all users", Scope: ScopeAdmin, Action: ActionBroadcast, InMenu: true},
		{Name: "remind", Description: "(Admin) Send subscription reminders", Scope: ScopeAdmin, Action: ActionRemind, InMenu: true},
		{Name: "exit", Description: "(Admin) Exit a chat session", Scope: ScopeAdmin, InMenu: true},
		{Name: "pending_payments", Description: "(Admin) View pending payments", Scope: ScopeAdmin, Action: ActionPending, InMenu: true},
		{Name: "confirm_payment", Description: "(Admin) Confirm a payment", Scope: ScopeAdmin, Action: ActionConfirm, InMenu: true},
		{Labels: []string{LabelExit}, Scope: ScopeAll, Action: ActionGoodbye},
		{Labels: []string{LabelArtist}, Scope: ScopeAll, Action: ActionArtist},
	}}
}

// Lookup finds a dispatchable slash command by name.
func (c *Commands) Lookup(name string) (CommandDef, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	for _, d := range c.defs {
		if d.Name != "" && d.Name == name && d.Action != "" {
			return d, true
		}
	}
	return CommandDef{}, false
}

// LookupLabel finds the def a reply keyboard label is an alias for.
func (c *Commands) LookupLabel(label string) (CommandDef, bool) {
	for _, d := range c.defs {
		for _, l := range d.Labels {
			if l == label {
				return d, true
			}
		}
	}
	return CommandDef{}, false
}

// Names lists every dispatchable slash command name.
func (c *Commands) Names() []string {
	var names []string
	for _, d := range c.defs {
		if d.Name != "" && d.Action != "" {
			names = append(names, d.Name)
		}
	}
	return names
}

// Menu returns the command menu shown to admins or to regular users.
func (c *Commands) Menu(admin bool) []MenuEntry {
	var menu []MenuEntry
	for _, d := range c.defs {
		if !d.InMenu {
			continue
		}
		if d.Scope == ScopeAll || (d.Scope == ScopeAdmin) == admin {
			menu = append(menu, MenuEntry{Command: d.Name, Description: d.Description})
		}
	}
	return menu
}

// Classify resolves raw message text into an Input. Only registered commands
// become Command; everything starting with "/" otherwise stays FreeText so
// active sessions can consume tokens like /cancel and /exit.
func (c *Commands) Classify(text string) Input {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") {
		head, payload := trimmed, ""
		if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
			head, payload = trimmed[:i], strings.TrimSpace(trimmed[i:])
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(head, "/"), "@")
		if def, ok := c.Lookup(name); ok {
			return Command{Name: def.Name, Payload: payload}
		}
		return FreeText{Text: trimmed}
	}
	if _, ok := c.LookupLabel(trimmed); ok {
		return ButtonPress{Label: trimmed}
	}
	return FreeText{Text: text}
}
