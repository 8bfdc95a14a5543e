// Package router binds domain handlers to telebot endpoints and emits one
// summary line per handled update.
package router

import (
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/fanrelay/core/telegram"
	"github.com/m3rciful/fanrelay/core/telegram/callbacks"
)

// CommandRoutes binds "/name" for every name to h. The command name is
// recorded as the handler so each command gets its own summary line.
func CommandRoutes(names []string, h tele.HandlerFunc) []tg.Route {
	if h == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(names))
	for _, name := range names {
		name = strings.TrimPrefix(strings.TrimSpace(name), "/")
		if name == "" {
			continue
		}
		handlerName := "command." + normalizeHandlerName(name)
		routes = append(routes, tg.Route{
			Endpoint: "/" + name,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, handlerName, time.Now(), func() error { return h(c) })
			},
		})
	}
	return routes
}

// TextRoute binds plain text messages, including unregistered slash commands, to h.
func TextRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnText,
		Handler: func(c tele.Context) error {
			return handleWithSummary(c, "text", time.Now(), func() error { return h(c) })
		},
	}
}

// CallbackRoute binds inline button presses to h. The callback is answered
// before h runs so the client stops its spinner.
func CallbackRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler: func(c tele.Context) error {
			start := time.Now()
			cb := c.Callback()
			if cb == nil {
				return nil
			}
			key, _ := callbacks.ParseCallbackData(cb)
			_ = c.Respond()
			return handleWithSummary(c, "callback."+normalizeHandlerName(key), start,
				func() error { return h(c) },
				slog.String("cb_key", key),
			)
		},
	}
}
