package services

import "context"

type contextKey string

const (
	subjectIDKey contextKey = "subject_id"
	catalogKey   contextKey = "catalog"
	requestIDKey contextKey = "request_id"
)

// WithSubjectID annotates context with the primary-source id being resolved.
func WithSubjectID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, subjectIDKey, id)
}

// SubjectIDFromContext extracts the subject id if present.
func SubjectIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(subjectIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithCatalog annotates context with the catalog a call is talking to.
func WithCatalog(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, catalogKey, name)
}

// CatalogFromContext returns the catalog name if present.
func CatalogFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(catalogKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
