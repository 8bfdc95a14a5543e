package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
	"github.com/m3rciful/fanrelay/core/telegram/sender"
	"github.com/m3rciful/fanrelay/internal/model"
)

// BatchReport tallies a broadcast or reminder run.
type BatchReport struct {
	ID      string
	Total   int
	Sent    int
	Failed  int
	Skipped int
}

func (r BatchReport) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("batch_id", r.ID),
		slog.Int("total", r.Total),
		slog.Int("sent", r.Sent),
		slog.Int("failed", r.Failed),
		slog.Int("skipped", r.Skipped),
	}
}

// Broadcast sends text to every known user. Per-user delivery failures are
// counted and logged. The error is non-nil only when the user list cannot be
// read or ctx ends mid-batch.
func (e *Engine) Broadcast(ctx context.Context, text string) (BatchReport, error) {
	report := BatchReport{ID: uuid.NewString()}
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("relay: broadcast: %w", err)
	}
	report.Total = len(users)

	msg := Message{Text: e.texts.broadcast(text)}
	for _, u := range users {
		if err := e.pace(ctx); err != nil {
			return report, err
		}
		if e.deliver(ctx, "broadcast", u.TelegramID, u.ChatID, msg) {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	logger.Info(ctx, component, "relay.broadcast", report.attrs()...)
	return report, nil
}

// Remind messages every user whose subscription ends within the configured
// window. Expired subscriptions stay due.
func (e *Engine) Remind(ctx context.Context) (BatchReport, error) {
	report := BatchReport{ID: uuid.NewString()}
	subs, err := e.store.ListSubscriptions(ctx)
	if err != nil {
		return report, fmt.Errorf("relay: remind: %w", err)
	}
	report.Total = len(subs)

	today := e.today()
	for _, sub := range subs {
		daysLeft := model.DaysBetween(today, sub.EndDate)
		if daysLeft > e.cfg.RemindWithinDays {
			report.Skipped++
			continue
		}
		u, err := e.store.GetUser(ctx, sub.TelegramID)
		if err != nil {
			logger.Warn(ctx, component, "relay.remind_lookup",
				slog.Int64("target_id", sub.TelegramID),
				logger.Err(err),
			)
			report.Skipped++
			continue
		}
		if err := e.pace(ctx); err != nil {
			return report, err
		}
		if e.deliver(ctx, "remind", u.TelegramID, u.ChatID, Message{Text: e.texts.reminder(sub, daysLeft)}) {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	logger.Info(ctx, component, "relay.remind", report.attrs()...)
	return report, nil
}

func (e *Engine) deliver(ctx context.Context, kind string, id, chatID int64, msg Message) bool {
	err := e.out.Send(ctx, chatID, msg)
	metrics.ObserveDelivery(kind, err)
	if err != nil {
		logger.Warn(ctx, component, "relay."+kind+"_delivery",
			slog.String("status", "fail"),
			slog.Int64("target_id", id),
			slog.String("error_kind", sender.Classify(err)),
			logger.Err(err),
		)
		return false
	}
	return true
}

func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return ctx.Err()
	}
	return e.limiter.Wait(ctx)
}

func (e *Engine) broadcastCommand(ctx context.Context, s Sender, payload string) error {
	text := strings.TrimSpace(payload)
	if text == "" {
		return e.reply(ctx, s, Message{Text: msgBroadcastUsage})
	}
	report, err := e.Broadcast(ctx, text)
	if err != nil {
		return e.failure(ctx, s, "broadcast", err)
	}
	if report.Total == 0 {
		return e.reply(ctx, s, Message{Text: msgBroadcastEmpty})
	}
	return e.reply(ctx, s, Message{Text: broadcastDone(report)})
}

func (e *Engine) remindCommand(ctx context.Context, s Sender) error {
	started := time.Now()
	report, err := e.Remind(ctx)
	if err != nil {
		return e.failure(ctx, s, "remind", err)
	}
	logger.Debug(ctx, component, "relay.remind_command", slog.Duration("duration", time.Since(started)))
	if report.Total == 0 {
		return e.reply(ctx, s, Message{Text: msgNoSubscriptions})
	}
	return e.reply(ctx, s, Message{Text: remindDone(report)})
}
