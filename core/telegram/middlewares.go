package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/fanrelay/core/config"
	"github.com/m3rciful/fanrelay/core/telegram/middleware"
)

// Throttle customizes the rate limit stage of the chain.
type Throttle struct {
	// Exempt users are never throttled.
	Exempt func(userID int64) bool
	// OnLimited runs for every dropped update.
	OnLimited tele.HandlerFunc
}

// DefaultMiddlewares builds the global middleware chain in the order it is applied.
// Recover sits outermost so panics in any other middleware are caught too.
func DefaultMiddlewares(cfg *coreconfig.Config, throttle Throttle) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MetricsMiddleware},
	}
	if cfg == nil {
		return mws
	}

	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return mws
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return append(mws, Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   exclude,
			Exempt:    throttle.Exempt,
			OnLimited: throttle.OnLimited,
		}),
	})
}
