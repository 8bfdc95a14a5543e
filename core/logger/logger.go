// Package logger is the structured slog setup shared by the bot runtime and
// the relay: one line per event, a fixed key order, update correlation ids and
// sampled debug output.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/fanrelay/core/buildinfo"
	coreconfig "github.com/m3rciful/fanrelay/core/config"
)

var (
	// L is the base logger. It discards output until InitLogger runs, so
	// packages and tests can log unconditionally.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))

	// Component loggers, rebound by InitLogger.
	DB    = L // database connections
	MIG   = L // schema migrations
	TG    = L // Telegram transport
	TWire = L // route wiring
)

var (
	initOnce sync.Once
	level    slog.LevelVar
	sampler  = newRatioSampler(1, 50)
	trace    bool

	sinkMu  sync.Mutex
	sink    *asyncWriter
	files   []io.Closer
	stopped bool
)

// settings is the resolved logging section of the config.
type settings struct {
	level   slog.Level
	format  logFormat
	order   []string
	profile string
	num     int
	den     int
	dir     string
	file    string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{level: slog.LevelInfo, format: formatJSON, profile: "prod", num: 1, den: 50}
	s.order = slices.Clone(defaultKeyOrder)
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		switch num, den := parseRatioSpec(ratio); {
		case num == 0 && den == 0:
			s.num, s.den = 0, 0
		case num > 0 && den > 0:
			s.num, s.den = num, den
		}
	}
	s.dir = strings.TrimSpace(lc.Dir)
	s.file = strings.TrimSpace(lc.BotFile)
	return s
}

// InitLogger installs the structured logger described by cfg. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		sampler.Set(s.num, s.den)
		trace = envFlag("TRACE") || envFlag("LOG_TRACE")

		writers := []io.Writer{os.Stdout}
		if f := openLogFile(s.dir, s.file); f != nil {
			writers = append(writers, f)
			files = append(files, f)
		}
		sink = newAsyncWriter(writers, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(L)
		DB, MIG, TG, TWire = Component("db"), Component("db.migrate"), Component("tg"), Component("tg.wire")

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return nil
}

func openLogFile(dir, name string) *os.File {
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return nil
	}
	return f
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Shutdown flushes pending lines and closes the log file. Safe to call twice.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if stopped {
		return nil
	}
	stopped = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes one line carrying event as its event attribute. A nil logg
// falls back to the logger stored in ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns L tagged with a component attribute.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// Err renders err under the "err" key. A nil error yields an empty value,
// which the handler drops.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "")
	}
	return slog.String("err", err.Error())
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}
