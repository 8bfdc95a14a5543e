package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

var errNoWriter = errors.New("logger: writer not initialized")

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders each record as one kv or json line. Known keys
// come first in keyOrder, the rest follow alphabetically.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(slices.Clip(h.attrs), attrs...)
	return &next
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(slices.Clip(h.groups), name)
	return &next
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errNoWriter
	}
	jsonOut := h.cfg.format == formatJSON

	ln := entry{}
	ts := r.Time.UTC()
	ln["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	ln["level"] = normalizeLevel(r.Level.String())
	if jsonOut {
		ln["ts_unix_nano"] = ts.UnixNano()
	}

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		ln.add(prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		ln.add(prefix, a)
		return true
	})
	ln.addMeta(MetaFrom(ctx))
	ln.finish(r.Message, jsonOut)

	var (
		out []byte
		err error
	)
	if jsonOut {
		out, err = ln.json(h.cfg.keyOrder)
		if err != nil {
			return err
		}
	} else {
		out = ln.kv(h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(out, '\n'))
}

// entry holds the flattened fields of one line.
type entry map[string]any

func (e entry) add(prefix string, a slog.Attr) {
	key := a.Key
	switch {
	case prefix == "":
	case key == "":
		key = prefix
	default:
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, v, ok := fieldValue(key, a.Value.Resolve()); ok {
		e[k] = v
	}
}

// addMeta fills update identifiers that no attribute has set explicitly.
func (e entry) addMeta(m Meta) {
	fill := func(key string, val any, zero bool) {
		if _, set := e[key]; !set && !zero {
			e[key] = val
		}
	}
	fill("rid", m.RID, m.RID == "")
	fill("user_id", m.UserID, m.UserID == 0)
	fill("update_id", int64(m.UpdateID), m.UpdateID == 0)
	fill("chat_id", m.ChatID, m.ChatID == 0)
	fill("handler", m.Handler, m.Handler == "")
}

func (e entry) finish(msg string, jsonOut bool) {
	if rid, _ := e["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != rid {
			if jsonOut {
				e["rid_full"] = rid
			}
			e["rid"] = short
		}
	}
	if ev, _ := e["event"].(string); ev == "" {
		e["event"] = cmp.Or(msg, "unknown")
	}
	if comp, _ := e["component"].(string); comp == "" {
		e["component"] = "app"
	}
	if s, ok := e["status"].(string); ok && s != "" {
		e["status"] = normalizeStatus(s)
	}
	if o, ok := e["outcome"].(string); ok && o != "" {
		if v, valid := normalizeOutcome(o); valid {
			e["outcome"] = v
		} else {
			delete(e, "outcome")
		}
	}
	for k, v := range e {
		if v == nil || v == "" {
			delete(e, k)
		}
	}
}

func (e entry) keys(order []string) []string {
	out := make([]string, 0, len(e))
	known := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := e[k]; ok && !known[k] {
			out = append(out, k)
		}
		known[k] = true
	}
	var rest []string
	for k := range e {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func (e entry) json(order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range e.keys(order) {
		v, err := json.Marshal(e[k])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (e entry) kv(order []string) []byte {
	var buf []byte
	for i, k := range e.keys(order) {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(e[k])
		if strings.ContainsFunc(s, needsQuote) {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// fieldValue converts an attribute into its output key and value. Durations
// are written in whole milliseconds under a *_ms key.
func fieldValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	if key == "duration" {
		return "duration_ms"
	}
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}
