// Package logger provides structured logging with context extraction and Sentry integration.
//
// Loggers are log/slog loggers whose handler is wrapped in a context handler that
// pulls request-scoped values out of the context on every call. The worker
// stores the tenant key, the message id and the job kind in the context, so
// every line written while an attempt runs carries them:
//
//	log := logger.New(cfg.Log, logger.Extractors()...)
//
//	ctx = logger.WithTenantKey(ctx, req.TenantKey)
//	ctx = logger.WithMessageID(ctx, req.MessageID)
//	log.InfoContext(ctx, "email sent")
//	// {"level":"INFO","msg":"email sent","tenant_key":"...","message_id":"..."}
//
// # Sentry
//
// NewWithSentry additionally forwards warnings and errors to Sentry. An
// empty DSN degrades to stdout only. SentryTracker reports exceptions
// explicitly, tagged with the tenant and message from the context.
package logger
