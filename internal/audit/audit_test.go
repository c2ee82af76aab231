package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/internal/audit"
)

type execer struct {
	sql  string
	args []any
	err  error
}

func (e *execer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}

func TestLogger_RecordFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := audit.New(slog.New(slog.NewJSONHandler(&buf, nil)))
	db := &execer{}
	companyID, userID := uuid.New(), uuid.New()

	err := l.RecordFailure(context.Background(), db, audit.Entry{
		CompanyID: companyID,
		UserID:    userID,
		ClientID:  "client-7",
		Message:   "mailbox full",
		Context:   map[string]any{"attempt": 4},
	})
	require.NoError(t, err)

	assert.Contains(t, db.sql, "INSERT INTO system_logs")
	assert.Equal(t, []any{companyID, userID, "client-7", audit.CategoryMail, audit.EventSend, audit.TypeFailure, "mailbox full"}, db.args)
	assert.Contains(t, buf.String(), `"message":"mailbox full"`)
	assert.Contains(t, buf.String(), `"attempt":4`)
}

func TestLogger_RecordFailure_ExecError(t *testing.T) {
	t.Parallel()

	err := audit.New(nil).RecordFailure(context.Background(), &execer{err: errors.New("read only")}, audit.Entry{})
	require.ErrorIs(t, err, audit.ErrRecordFailed)
}
