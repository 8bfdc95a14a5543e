package relay

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
)

func (e *Engine) greet(ctx context.Context, s Sender) error {
	return e.reply(ctx, s, Message{
		Text:     e.texts.greeting(greetingName(s)),
		Keyboard: e.keyboard(ctx, s.ID),
	})
}

func (e *Engine) start(ctx context.Context, s Sender) error {
	return e.greet(ctx, s)
}

func (e *Engine) chooseOption(ctx context.Context, s Sender, text string) error {
	if err := e.store.LogInteraction(ctx, s.ID, text); err != nil {
		return e.failure(ctx, s, "log_interaction", err)
	}
	return e.reply(ctx, s, Message{Text: msgChooseOption, Keyboard: e.keyboard(ctx, s.ID)})
}

// subscribe starts or resets the participant's term. Confirmation is cleared.
func (e *Engine) subscribe(ctx context.Context, s Sender) error {
	start := e.today()
	end := start.AddDate(0, 0, e.cfg.TermDays)
	if err := e.store.UpsertSubscription(ctx, s.ID, start, end); err != nil {
		logger.Error(ctx, component, "relay.subscribe",
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return e.reply(ctx, s, Message{Text: msgSubscribeFailed})
	}
	logger.Info(ctx, component, "relay.subscribe",
		slog.String("status", "ok"),
		slog.Time("end_date", end),
	)

	kb := e.keyboard(ctx, s.ID)
	if err := e.reply(ctx, s, Message{Text: e.texts.subscriptionOffer(), Keyboard: kb}); err != nil {
		return err
	}
	if err := e.reply(ctx, s, Message{Text: e.texts.paymentAdminOffline(), Keyboard: kb}); err != nil {
		return err
	}
	if err := e.store.LogInteraction(ctx, s.ID, "subscribe"); err != nil {
		logger.Warn(ctx, component, "relay.log_interaction", logger.Err(err))
	}
	return nil
}

func (e *Engine) promptHelp(ctx context.Context, s Sender) error {
	e.sessions.SetHelpPending(s.ID)
	return e.reply(ctx, s, Message{Text: msgHelpPrompt, RemoveKeyboard: true})
}

// forwardHelp delivers a help request to every admin. A failed delivery to
// one admin does not stop the others.
func (e *Engine) forwardHelp(ctx context.Context, s Sender, text string) error {
	if strings.EqualFold(strings.TrimSpace(text), "/cancel") {
		e.sessions.ClearHelp(s.ID)
		return e.reply(ctx, s, Message{Text: msgHelpCancelled, Keyboard: e.keyboard(ctx, s.ID)})
	}

	body := helpRequest(greetingName(s), s.ID, text)
	delivered := 0
	for _, admin := range e.cfg.AdminIDs {
		err := e.out.Send(ctx, admin, Message{Text: body})
		metrics.ObserveDelivery("help", err)
		if err != nil {
			logger.Warn(ctx, component, "relay.help_forward",
				slog.String("status", "fail"),
				slog.Int64("admin_id", admin),
				logger.Err(err),
			)
			continue
		}
		delivered++
	}
	logger.Info(ctx, component, "relay.help_forward",
		slog.String("status", "ok"),
		slog.Int("delivered", delivered),
		slog.Int("admins", len(e.cfg.AdminIDs)),
	)

	e.sessions.ClearHelp(s.ID)
	return e.reply(ctx, s, Message{Text: msgHelpSent, Keyboard: e.keyboard(ctx, s.ID)})
}

func (e *Engine) artist(ctx context.Context, s Sender) error {
	paid, err := e.store.HasPaid(ctx, s.ID)
	if err != nil {
		return e.failure(ctx, s, "has_paid", err)
	}
	if !paid {
		return e.reply(ctx, s, Message{Text: msgNoAccess, Keyboard: e.keyboard(ctx, s.ID)})
	}
	return e.reply(ctx, s, Message{Text: e.texts.artistContact(), Keyboard: e.keyboard(ctx, s.ID)})
}
