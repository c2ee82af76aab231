package quota

import (
	"context"
	"log/slog"
)

// ResetTask clears all daily counters at midnight UTC.
type ResetTask struct {
	counter *Counter
	logger  *slog.Logger
}

// NewResetTask creates the scheduled reset task.
func NewResetTask(c *Counter, log *slog.Logger) *ResetTask {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ResetTask{counter: c, logger: log}
}

func (t *ResetTask) Name() string     { return "reset_email_quota" }
func (t *ResetTask) Schedule() string { return "0 0 * * *" }

// Handle resets the counters.
func (t *ResetTask) Handle(ctx context.Context) error {
	n, err := t.counter.ResetAll(ctx)
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "email quota reset", slog.Int("counters", n))
	return nil
}
