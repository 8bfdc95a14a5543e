package middleware

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
	tghelpers "github.com/m3rciful/fanrelay/core/telegram/helpers"
)

// MetricsMiddleware counts every update by the handler that served it and its outcome.
// Handler names are recorded by the router on the stored request context.
func MetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		err := next(c)
		handler := "unrouted"
		if ctx, ok := tghelpers.ContextFrom(c); ok {
			if name := logger.HandlerFrom(ctx); name != "" {
				handler = name
			}
		}
		outcome := "ok"
		if err != nil {
			outcome = "fail"
		}
		metrics.ObserveHandled(handler, outcome)
		return err
	}
}
