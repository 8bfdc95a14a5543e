// Package bot adapts telebot updates and calls to the relay engine.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/fanrelay/core/logger"
	tg "github.com/m3rciful/fanrelay/core/telegram"
	"github.com/m3rciful/fanrelay/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/fanrelay/core/telegram/helpers"
	"github.com/m3rciful/fanrelay/core/telegram/keyboard"
	"github.com/m3rciful/fanrelay/core/telegram/router"
	"github.com/m3rciful/fanrelay/internal/relay"
	"github.com/m3rciful/fanrelay/internal/session"
)

// ErrNotRunning is returned by outbound calls while no bot runtime is attached.
var ErrNotRunning = errors.New("bot: runtime not attached")

// Handler consumes classified events. *relay.Engine implements it.
type Handler interface {
	Handle(ctx context.Context, ev relay.Event) error
	Commands() *relay.Commands
}

// Adapter is the telebot side of the relay: it turns updates into events and
// implements relay.Messenger over the live runtime.
//
// Events are handed to the engine through a per-identity queue, so one
// participant's inputs are handled in arrival order while different
// participants proceed in parallel. The runtime must deliver updates to the
// routes sequentially for that order to be the arrival order.
type Adapter struct {
	rt    atomic.Pointer[tg.Runtime]
	queue *session.Queue
}

// New builds a detached adapter.
func New() *Adapter {
	return &Adapter{queue: session.NewQueue()}
}

// Attach binds the adapter to a started runtime.
func (a *Adapter) Attach(_ context.Context, rt tg.Runtime) error {
	a.rt.Store(&rt)
	return nil
}

// Detach waits for queued events, then drops the runtime. Later sends fail
// with ErrNotRunning.
func (a *Adapter) Detach(_ context.Context, _ tg.Runtime) error {
	a.queue.Wait()
	a.rt.Store(nil)
	return nil
}

// Wait blocks until every queued event has been handled.
func (a *Adapter) Wait() {
	a.queue.Wait()
}

// Close stops accepting events and drains the queue.
func (a *Adapter) Close() {
	a.queue.Close()
}

// Routes wires every registered command, plain text and inline buttons to h.
func (a *Adapter) Routes(h Handler) []tg.Route {
	cmds := h.Commands()
	onMessage := func(c tele.Context) error {
		ev, ok := MessageEvent(cmds, c)
		if !ok {
			return nil
		}
		return a.enqueue(tghelpers.BuildContext(c), h, ev)
	}
	onCallback := func(c tele.Context) error {
		ev, ok := CallbackEvent(c)
		if !ok {
			return nil
		}
		return a.enqueue(tghelpers.BuildContext(c), h, ev)
	}

	routes := router.CommandRoutes(cmds.Names(), onMessage)
	return append(routes, router.TextRoute(onMessage), router.CallbackRoute(onCallback))
}

func (a *Adapter) enqueue(ctx context.Context, h Handler, ev relay.Event) error {
	return a.queue.Submit(ev.Sender.ID, func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "tg", "handler.panic",
					slog.String("status", "fail"),
					slog.Any("panic", r),
				)
			}
		}()
		if err := h.Handle(ctx, ev); err != nil {
			logger.Error(ctx, "tg", "relay.handle",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
	})
}

// Throttled tells a rate-limited participant that the message was dropped.
// The notice is queued behind the participant's pending events.
func (a *Adapter) Throttled(c tele.Context) error {
	s, ok := senderOf(c)
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return a.queue.Submit(s.ID, func() {
		if err := a.Send(ctx, s.Address, relay.Message{Text: relay.MsgSlowDown}); err != nil {
			logger.Warn(ctx, "tg", "rate_limit.notice",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
	})
}

// MessageEvent classifies a text message with cmds.
func MessageEvent(cmds *relay.Commands, c tele.Context) (relay.Event, bool) {
	s, ok := senderOf(c)
	if !ok {
		return relay.Event{}, false
	}
	return relay.Event{Sender: s, Input: cmds.Classify(c.Text())}, true
}

// CallbackEvent converts an inline button press.
func CallbackEvent(c tele.Context) (relay.Event, bool) {
	cb := c.Callback()
	s, ok := senderOf(c)
	if cb == nil || !ok {
		return relay.Event{}, false
	}
	key, payload := callbacks.ParseCallbackData(cb)
	return relay.Event{Sender: s, Input: relay.CallbackPayload{Action: key, Data: payload}}, true
}

func senderOf(c tele.Context) (relay.Sender, bool) {
	u := c.Sender()
	if u == nil {
		return relay.Sender{}, false
	}
	s := relay.Sender{ID: u.ID, DisplayName: strings.TrimSpace(u.Username), Address: u.ID}
	if chat := c.Chat(); chat != nil {
		s.Address = chat.ID
	}
	return s, true
}

// Send delivers msg through the sender pool.
func (a *Adapter) Send(ctx context.Context, chatID int64, msg relay.Message) error {
	rt := a.rt.Load()
	if rt == nil {
		return ErrNotRunning
	}
	var opts []any
	if markup := Markup(msg); markup != nil {
		opts = append(opts, markup)
	}
	return rt.Dispatcher.Do(ctx, "send", "sendMessage", func() error {
		_, err := rt.Bot.Send(tele.ChatID(chatID), msg.Text, opts...)
		return err
	})
}

// SetCommands installs menu as the command list of one chat.
func (a *Adapter) SetCommands(ctx context.Context, chatID int64, menu []relay.MenuEntry) error {
	rt := a.rt.Load()
	if rt == nil {
		return ErrNotRunning
	}
	cmds := make([]tele.Command, len(menu))
	for i, m := range menu {
		cmds[i] = tele.Command{Text: m.Command, Description: m.Description}
	}
	scope := tele.CommandScope{Type: tele.CommandScopeChat, ChatID: chatID}
	err := rt.Dispatcher.Do(ctx, "set_commands", "setMyCommands", func() error {
		return rt.Bot.SetCommands(cmds, scope)
	})
	if err == nil {
		logger.Debug(ctx, "tg", "commands.installed",
			slog.Int64("target_chat", chatID),
			slog.Int("count", len(cmds)),
		)
	}
	return err
}

// Markup renders the keyboard part of msg. Inline buttons win over a reply keyboard.
func Markup(msg relay.Message) *tele.ReplyMarkup {
	switch {
	case len(msg.Buttons) > 0:
		rows := make([][]keyboard.InlineBtn, len(msg.Buttons))
		for i, row := range msg.Buttons {
			rows[i] = make([]keyboard.InlineBtn, len(row))
			for j, b := range row {
				rows[i][j] = keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Data}
			}
		}
		return keyboard.InlineButtonsRows(rows...)
	case len(msg.Keyboard) > 0:
		return keyboard.ReplyButtons(msg.Keyboard...)
	case msg.RemoveKeyboard:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
