// Package relay implements the bot's conversation logic: the command table,
// the per-participant state machine, admin relay sessions and batch sends.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/session"
	"github.com/m3rciful/fanrelay/internal/storage"
)

const component = "relay"

// Messenger delivers outbound messages. Implementations must be safe for concurrent use.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg Message) error
	SetCommands(ctx context.Context, chatID int64, menu []MenuEntry) error
}

// Config carries the operator settings the engine needs.
type Config struct {
	AdminIDs       []int64
	PaymentContact string
	RelayContact   string
	BotName        string
	AdminLabel     string
	Price          string
	// TermDays is the subscription length.
	TermDays int
	// RemindWithinDays selects subscriptions ending within this many days,
	// expired ones included. Zero means DefaultRemindWithinDays.
	RemindWithinDays int
	// BroadcastRate caps batch sends per second. Zero disables pacing.
	BroadcastRate float64
	// Location decides which calendar day "today" is.
	Location *time.Location
}

// Defaults applied to a zero Config.
const (
	DefaultTermDays         = 30
	DefaultRemindWithinDays = 3
)

func (c *Config) normalize() {
	if c.BotName == "" {
		c.BotName = "@BTS0BOT_BOT"
	}
	if c.AdminLabel == "" {
		c.AdminLabel = "BTS Admin"
	}
	if c.Price == "" {
		c.Price = "$50"
	}
	if c.TermDays <= 0 {
		c.TermDays = DefaultTermDays
	}
	if c.RemindWithinDays <= 0 {
		c.RemindWithinDays = DefaultRemindWithinDays
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine routes classified events. It is safe for concurrent use; events of
// one participant are processed strictly in order.
type Engine struct {
	cfg      Config
	texts    texts
	store    storage.Store
	sessions session.Store
	out      Messenger
	commands *Commands
	limiter  *rate.Limiter
	now      func() time.Time
}

// New builds an engine.
func New(cfg Config, store storage.Store, sessions session.Store, out Messenger, opts ...Option) *Engine {
	cfg.normalize()
	e := &Engine{
		cfg:      cfg,
		texts:    texts{cfg: cfg},
		store:    store,
		sessions: sessions,
		out:      out,
		commands: NewCommands(cfg.BotName),
		now:      time.Now,
	}
	if cfg.BroadcastRate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.BroadcastRate), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Commands returns the command table used for classification.
func (e *Engine) Commands() *Commands { return e.commands }

// IsAdmin reports whether id is on the admin allowlist.
func (e *Engine) IsAdmin(id int64) bool {
	return slices.Contains(e.cfg.AdminIDs, id)
}

// Handle processes one event under the sender's lock.
// Store failures are answered and logged here; the returned error reports a
// failed reply to the sender.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	unlock := e.sessions.Lock(ev.Sender.ID)
	defer unlock()

	switch in := ev.Input.(type) {
	case Command:
		return e.handleCommand(ctx, ev.Sender, in)
	case ButtonPress:
		return e.handleText(ctx, ev.Sender, in.Label, true)
	case FreeText:
		return e.handleText(ctx, ev.Sender, in.Text, false)
	case CallbackPayload:
		return e.handleCallback(ctx, ev.Sender, in)
	default:
		return fmt.Errorf("relay: unsupported input %T", ev.Input)
	}
}

func (e *Engine) handleCommand(ctx context.Context, s Sender, in Command) error {
	def, ok := e.commands.Lookup(in.Name)
	if !ok {
		return e.handleText(ctx, s, "/"+in.Name, false)
	}
	isNew, err := e.touch(ctx, s)
	if err != nil {
		return e.failure(ctx, s, "touch", err)
	}
	return e.dispatch(ctx, s, def, in.Payload, isNew)
}

// handleText applies session precedence: an admin relay session, then an
// admin search, then a pending help request. Otherwise the participant is
// registered and the text is treated as a button or as menu fallback.
func (e *Engine) handleText(ctx context.Context, s Sender, text string, isButton bool) error {
	if e.IsAdmin(s.ID) {
		switch st := e.sessions.Admin(s.ID); st.Mode {
		case session.ModeChatting:
			return e.relayToTarget(ctx, s, st.Target, text)
		case session.ModeSearching:
			return e.searchUsers(ctx, s, text)
		}
	}
	if e.sessions.HelpPending(s.ID) {
		return e.forwardHelp(ctx, s, text)
	}

	isNew, err := e.touch(ctx, s)
	if err != nil {
		return e.failure(ctx, s, "touch", err)
	}
	if isNew {
		return e.greet(ctx, s)
	}
	if isButton {
		if def, ok := e.commands.LookupLabel(text); ok {
			return e.dispatch(ctx, s, def, "", false)
		}
	}
	return e.chooseOption(ctx, s, text)
}

func (e *Engine) dispatch(ctx context.Context, s Sender, def CommandDef, payload string, isNew bool) error {
	switch {
	case def.Scope == ScopeAdmin && !e.IsAdmin(s.ID):
		return e.deny(ctx, s, def, msgNotAuthorized)
	case def.Scope == ScopeUser && e.IsAdmin(s.ID):
		return e.deny(ctx, s, def, msgAdminsExcluded)
	}

	switch def.Action {
	case ActionStart:
		return e.start(ctx, s)
	case ActionSubscribe:
		if isNew {
			return e.greet(ctx, s)
		}
		return e.subscribe(ctx, s)
	case ActionHelp:
		return e.promptHelp(ctx, s)
	case ActionGoodbye:
		return e.reply(ctx, s, Message{Text: msgGoodbye, RemoveKeyboard: true})
	case ActionArtist:
		return e.artist(ctx, s)
	case ActionUsers:
		return e.listUsers(ctx, s)
	case ActionChat:
		return e.chooseChatTarget(ctx, s)
	case ActionBroadcast:
		return e.broadcastCommand(ctx, s, payload)
	case ActionRemind:
		return e.remindCommand(ctx, s)
	case ActionPending:
		return e.pendingPayments(ctx, s)
	case ActionConfirm:
		return e.confirmCommand(ctx, s, payload)
	}
	return e.reply(ctx, s, Message{Text: msgUnsupported})
}

func (e *Engine) deny(ctx context.Context, s Sender, def CommandDef, text string) error {
	logger.Info(ctx, component, "relay.denied",
		slog.String("status", "denied"),
		slog.String("command", string(def.Action)),
	)
	return e.reply(ctx, s, Message{Text: text})
}

// touch registers unknown participants and refreshes known ones.
// It reports whether the participant was new.
func (e *Engine) touch(ctx context.Context, s Sender) (bool, error) {
	exists, err := e.store.UserExists(ctx, s.ID)
	if err != nil {
		return false, err
	}
	if err := e.store.UpsertUser(ctx, model.User{TelegramID: s.ID, Username: storedName(s), ChatID: s.Address}); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := e.store.LogInteraction(ctx, s.ID, "handshake"); err != nil {
		logger.Warn(ctx, component, "relay.log_interaction", logger.Err(err))
	}
	logger.Info(ctx, component, "relay.register", slog.String("status", "ok"))
	e.installMenu(ctx, s)
	return true, nil
}

func (e *Engine) installMenu(ctx context.Context, s Sender) {
	if err := e.out.SetCommands(ctx, s.Address, e.commands.Menu(e.IsAdmin(s.ID))); err != nil {
		logger.Warn(ctx, component, "relay.set_commands", logger.Err(err))
	}
}

// keyboard returns the reply keyboard of a regular user. Admins get none.
func (e *Engine) keyboard(ctx context.Context, id int64) [][]string {
	if e.IsAdmin(id) {
		return nil
	}
	kb := [][]string{{LabelSubscribe}, {LabelHelp}, {LabelExit}}
	paid, err := e.store.HasPaid(ctx, id)
	if err != nil {
		logger.Warn(ctx, component, "relay.keyboard", logger.Err(err))
		return kb
	}
	if paid {
		kb = append([][]string{{LabelArtist}}, kb...)
	}
	return kb
}

func (e *Engine) reply(ctx context.Context, s Sender, msg Message) error {
	err := e.out.Send(ctx, s.Address, msg)
	metrics.ObserveDelivery("reply", err)
	if err != nil {
		return fmt.Errorf("relay: reply to %d: %w", s.ID, err)
	}
	return nil
}

// failure logs a store error and gives the participant a generic answer.
func (e *Engine) failure(ctx context.Context, s Sender, op string, err error) error {
	kind := "store"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = "timeout"
	}
	logger.Error(ctx, component, "relay.store_fail",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("error_kind", kind),
		logger.Err(err),
	)
	return e.reply(ctx, s, Message{Text: msgTryAgain})
}

func (e *Engine) today() time.Time {
	return model.DateOf(e.now().In(e.cfg.Location))
}

func storedName(s Sender) string {
	if s.DisplayName == "" {
		return model.PlaceholderName
	}
	return s.DisplayName
}

func greetingName(s Sender) string {
	if s.DisplayName == "" {
		return "User"
	}
	return s.DisplayName
}
