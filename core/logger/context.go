package logger

import (
	"context"
	"log/slog"
)

// Meta identifies the update a log line belongs to. Zero fields are omitted
// from the output.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

type (
	metaKey   struct{}
	loggerKey struct{}
)

// MetaFrom returns the metadata attached to ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

func updateMeta(ctx context.Context, edit func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	edit(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithRID attaches the correlation id of the current update.
func WithRID(ctx context.Context, rid string) context.Context {
	return updateMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta attaches the update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return updateMeta(ctx, func(m *Meta) {
		m.UpdateID, m.UserID, m.ChatID = updateID, userID, chatID
	})
}

// WithHandler names the handler serving the update. An empty name is ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return updateMeta(ctx, func(m *Meta) { m.Handler = handler })
}

func RIDFrom(ctx context.Context) string     { return MetaFrom(ctx).RID }
func HandlerFrom(ctx context.Context) string { return MetaFrom(ctx).Handler }
func UserIDFrom(ctx context.Context) int64   { return MetaFrom(ctx).UserID }
func ChatIDFrom(ctx context.Context) int64   { return MetaFrom(ctx).ChatID }
func UpdateIDFrom(ctx context.Context) int   { return MetaFrom(ctx).UpdateID }

// WithLogger makes log the logger returned by FromContext.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}
