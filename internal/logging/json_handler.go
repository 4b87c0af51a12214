package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// jsonHandler writes one JSON object per record. Subject, catalog and
// correlation ids carried on the context are attached to every record unless
// the logger already bound them, so log shippers can join a resolution's lines
// without callers threading WithContext through every helper.
type jsonHandler struct {
	inner   slog.Handler
	bound   map[string]struct{}
	grouped bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return &jsonHandler{inner: slog.NewJSONHandler(w, &opts)}
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	if ctx == nil || h.grouped {
		return h.inner.Handle(ctx, record)
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return h.inner.Handle(ctx, record)
	}
	present := make(map[string]struct{}, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		present[canonicalKey(attr.Key)] = struct{}{}
		return true
	})
	record = record.Clone()
	for _, field := range fields {
		if _, ok := h.bound[field.Key]; ok {
			continue
		}
		if _, ok := present[field.Key]; ok {
			continue
		}
		record.AddAttrs(field)
	}
	return h.inner.Handle(ctx, record)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &jsonHandler{inner: h.inner.WithAttrs(attrs), grouped: h.grouped}
	next.bound = make(map[string]struct{}, len(h.bound)+len(attrs))
	for key := range h.bound {
		next.bound[key] = struct{}{}
	}
	if !h.grouped {
		for _, attr := range attrs {
			next.bound[canonicalKey(attr.Key)] = struct{}{}
		}
	}
	return next
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &jsonHandler{inner: h.inner.WithGroup(name), bound: h.bound, grouped: true}
}

// canonicalKey folds the request id spellings used by HTTP middleware and
// older call sites onto the correlation key.
func canonicalKey(key string) string {
	switch key {
	case "request_id", "requestId", "rid":
		return FieldCorrelationID
	}
	return key
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		attr.Key = canonicalKey(attr.Key)
	}
	switch attr.Key {
	case slog.TimeKey:
		if len(groups) > 0 {
			break
		}
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
		return attr
	case slog.LevelKey:
		if len(groups) > 0 {
			break
		}
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
		return attr
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
		return attr
	}
	// Wave and request timings read better as "1.2s" than as nanoseconds.
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}
