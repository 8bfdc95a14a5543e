package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/session"
	"github.com/m3rciful/fanrelay/internal/storage"
)

const buttonsPerRow = 2

func (e *Engine) listUsers(ctx context.Context, s Sender) error {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return e.failure(ctx, s, "list_users", err)
	}
	if len(users) == 0 {
		return e.reply(ctx, s, Message{Text: msgNoUsers})
	}
	return e.reply(ctx, s, Message{Text: userList(users)})
}

func (e *Engine) chooseChatTarget(ctx context.Context, s Sender) error {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return e.failure(ctx, s, "list_users", err)
	}
	if len(users) == 0 {
		return e.reply(ctx, s, Message{Text: msgNoChatTargets})
	}
	rows := userButtons(users, CallbackChat)
	rows = append(rows, []Button{{Text: msgSearchButton, Action: CallbackSearch}})
	return e.reply(ctx, s, Message{Text: msgSelectUser, Buttons: rows})
}

func (e *Engine) handleCallback(ctx context.Context, s Sender, in CallbackPayload) error {
	if !e.IsAdmin(s.ID) {
		logger.Info(ctx, component, "relay.denied",
			slog.String("status", "denied"),
			slog.String("callback", in.Action),
		)
		return e.reply(ctx, s, Message{Text: msgNotAuthorized})
	}

	switch in.Action {
	case CallbackSearch:
		e.sessions.SetAdmin(s.ID, session.Searching())
		return e.reply(ctx, s, Message{Text: msgSearchPrompt})
	case CallbackChat:
		id, err := parseID(in.Data)
		if err != nil {
			return e.reply(ctx, s, Message{Text: msgInvalidID})
		}
		return e.openChat(ctx, s, id)
	case CallbackConfirm:
		id, err := parseID(in.Data)
		if err != nil {
			return e.reply(ctx, s, Message{Text: msgInvalidID})
		}
		return e.confirmAndReport(ctx, s, id)
	}
	return e.reply(ctx, s, Message{Text: msgUnsupported})
}

func (e *Engine) openChat(ctx context.Context, s Sender, target int64) error {
	u, err := e.store.GetUser(ctx, target)
	if errors.Is(err, storage.ErrNotFound) {
		e.sessions.ClearAdmin(s.ID)
		return e.reply(ctx, s, Message{Text: userNotFound(target)})
	}
	if err != nil {
		return e.failure(ctx, s, "get_user", err)
	}
	e.sessions.SetAdmin(s.ID, session.Chatting(target))
	logger.Info(ctx, component, "relay.chat_open",
		slog.String("status", "ok"),
		slog.Int64("target_id", target),
	)
	return e.reply(ctx, s, Message{Text: chatOpened(u)})
}

// relayToTarget forwards admin text to the chat target. The session ends on
// /exit, on an unknown target and on a failed delivery.
func (e *Engine) relayToTarget(ctx context.Context, s Sender, target int64, text string) error {
	if strings.EqualFold(strings.TrimSpace(text), "/exit") {
		e.sessions.ClearAdmin(s.ID)
		logger.Info(ctx, component, "relay.chat_close",
			slog.String("status", "ok"),
			slog.Int64("target_id", target),
		)
		return e.reply(ctx, s, Message{Text: msgChatEnded})
	}

	u, err := e.store.GetUser(ctx, target)
	if errors.Is(err, storage.ErrNotFound) {
		e.sessions.ClearAdmin(s.ID)
		return e.reply(ctx, s, Message{Text: userNotFound(target)})
	}
	if err != nil {
		return e.failure(ctx, s, "get_user", err)
	}

	err = e.out.Send(ctx, u.ChatID, Message{Text: e.texts.relayed(text)})
	metrics.ObserveDelivery("relay", err)
	if err != nil {
		e.sessions.ClearAdmin(s.ID)
		logger.Warn(ctx, component, "relay.forward",
			slog.String("status", "fail"),
			slog.Int64("target_id", target),
			logger.Err(err),
		)
		return e.reply(ctx, s, Message{Text: relayFailed(target, err)})
	}
	logger.Debug(ctx, component, "relay.forward",
		slog.String("status", "ok"),
		slog.Int64("target_id", target),
	)
	return e.reply(ctx, s, Message{Text: relaySent(u.Username, text)})
}

func (e *Engine) searchUsers(ctx context.Context, s Sender, text string) error {
	query := strings.ToLower(strings.TrimSpace(text))
	if query == "/cancel" {
		e.sessions.ClearAdmin(s.ID)
		return e.reply(ctx, s, Message{Text: msgSearchCancelled})
	}

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return e.failure(ctx, s, "list_users", err)
	}
	matches := MatchUsers(users, query)
	if len(matches) == 0 {
		return e.reply(ctx, s, Message{Text: msgSearchNoMatch})
	}
	e.sessions.ClearAdmin(s.ID)
	return e.reply(ctx, s, Message{Text: msgSelectUser, Buttons: userButtons(matches, CallbackChat)})
}

// MatchUsers keeps users whose id or lowercased username contains query.
// query is expected in lower case.
func MatchUsers(users []model.User, query string) []model.User {
	var out []model.User
	for _, u := range users {
		if strings.Contains(strconv.FormatInt(u.TelegramID, 10), query) ||
			strings.Contains(strings.ToLower(u.Username), query) {
			out = append(out, u)
		}
	}
	return out
}

func (e *Engine) pendingPayments(ctx context.Context, s Sender) error {
	pending, err := e.store.ListPendingPayments(ctx)
	if err != nil {
		return e.failure(ctx, s, "list_pending", err)
	}
	if len(pending) == 0 {
		return e.reply(ctx, s, Message{Text: msgNoPending})
	}
	users := make([]model.User, len(pending))
	for i, p := range pending {
		users[i] = model.User{TelegramID: p.TelegramID, Username: p.Username}
	}
	return e.reply(ctx, s, Message{Text: msgPendingHeader, Buttons: userButtons(users, CallbackConfirm)})
}

func (e *Engine) confirmCommand(ctx context.Context, s Sender, payload string) error {
	arg := strings.TrimSpace(payload)
	if arg == "" {
		return e.reply(ctx, s, Message{Text: msgConfirmUsage})
	}
	id, err := parseID(strings.Fields(arg)[0])
	if err != nil {
		return e.reply(ctx, s, Message{Text: msgInvalidID})
	}
	return e.confirmAndReport(ctx, s, id)
}

func (e *Engine) confirmAndReport(ctx context.Context, s Sender, id int64) error {
	if err := e.ConfirmPayment(ctx, id); err != nil {
		logger.Error(ctx, component, "relay.confirm",
			slog.String("status", "fail"),
			slog.Int64("target_id", id),
			logger.Err(err),
		)
		return e.reply(ctx, s, Message{Text: msgConfirmFailed})
	}
	return e.reply(ctx, s, Message{Text: paymentConfirmed(id)})
}

// ConfirmPayment marks the subscription of id as paid and tells the user.
// The notice is best effort: a failed delivery is logged, not returned.
func (e *Engine) ConfirmPayment(ctx context.Context, id int64) error {
	if err := e.store.ConfirmPayment(ctx, id); err != nil {
		return fmt.Errorf("relay: confirm payment %d: %w", id, err)
	}
	logger.Info(ctx, component, "relay.confirm",
		slog.String("status", "ok"),
		slog.Int64("target_id", id),
	)

	u, err := e.store.GetUser(ctx, id)
	if err != nil {
		logger.Warn(ctx, component, "relay.confirm_notice",
			slog.String("status", "skipped"),
			slog.Int64("target_id", id),
			logger.Err(err),
		)
		return nil
	}
	err = e.out.Send(ctx, u.ChatID, Message{Text: msgPaymentNotice, Keyboard: e.keyboard(ctx, id)})
	metrics.ObserveDelivery("confirm", err)
	if err != nil {
		logger.Warn(ctx, component, "relay.confirm_notice",
			slog.String("status", "fail"),
			slog.Int64("target_id", id),
			logger.Err(err),
		)
	}
	return nil
}

func userButtons(users []model.User, action string) [][]Button {
	var rows [][]Button
	for i := 0; i < len(users); i += buttonsPerRow {
		end := min(i+buttonsPerRow, len(users))
		row := make([]Button, 0, end-i)
		for _, u := range users[i:end] {
			row = append(row, Button{
				Text:   userLabel(u.Username, u.TelegramID),
				Action: action,
				Data:   strconv.FormatInt(u.TelegramID, 10),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
