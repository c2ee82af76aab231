package logger

import (
	"context"
	"log/slog"
)

const (
	fieldTenantKey = "tenant_key"
	fieldMessageID = "message_id"
	fieldJobKind   = "job_kind"
)

type (
	tenantKeyCtx struct{}
	messageIDCtx struct{}
	jobKindCtx   struct{}
)

// WithTenantKey stores the tenant key for log enrichment.
func WithTenantKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, tenantKeyCtx{}, key)
}

// WithMessageID stores the message correlation id for log enrichment.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDCtx{}, id)
}

// WithJobKind stores the job kind being processed.
func WithJobKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, jobKindCtx{}, kind)
}

// TenantKey returns the tenant key stored in ctx.
func TenantKey(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantKeyCtx{}).(string)
	return v, ok && v != ""
}

// MessageID returns the message id stored in ctx.
func MessageID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(messageIDCtx{}).(string)
	return v, ok && v != ""
}

// Extractors returns the context extractors used by the worker.
func Extractors() []ContextExtractor {
	return []ContextExtractor{
		stringExtractor(tenantKeyCtx{}, fieldTenantKey),
		stringExtractor(messageIDCtx{}, fieldMessageID),
		stringExtractor(jobKindCtx{}, fieldJobKind),
	}
}

func stringExtractor(key any, field string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			return slog.String(field, v), true
		}
		return slog.Attr{}, false
	}
}
