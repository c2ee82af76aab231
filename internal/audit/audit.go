package audit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRecordFailed is returned when the system log row cannot be written.
var ErrRecordFailed = errors.New("audit: failed to record system log")

// System log classification, matching the application's system_logs enums.
const (
	CategoryMail = 1
	EventSend    = 30
	TypeFailure  = 301
)

// Execer runs a statement on the tenant shard.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Entry describes a terminal mail failure.
type Entry struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	// ClientID is the recipient's client, when known.
	ClientID string
	Message  string
	Context  map[string]any
}

// Logger writes mail failures to the tenant's system log and mirrors them
// to the process log.
type Logger struct {
	logger *slog.Logger
}

// New creates an audit Logger.
func New(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{logger: log}
}

const insertSystemLog = `
INSERT INTO system_logs (company_id, user_id, client_id, category_id, event_id, type_id, log, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, now())`

// RecordFailure inserts a MAIL/SEND/FAILURE system log row.
func (l *Logger) RecordFailure(ctx context.Context, db Execer, e Entry) error {
	attrs := []any{
		slog.String("company_id", e.CompanyID.String()),
		slog.String("client_id", e.ClientID),
		slog.String("message", e.Message),
	}
	for k, v := range e.Context {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.WarnContext(ctx, "mail delivery failed", attrs...)

	if _, err := db.Exec(ctx, insertSystemLog,
		e.CompanyID, e.UserID, e.ClientID, CategoryMail, EventSend, TypeFailure, e.Message,
	); err != nil {
		return errors.Join(ErrRecordFailed, err)
	}
	return nil
}
