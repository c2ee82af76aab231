package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Failure describes a job run that returned an error or panicked.
type Failure struct {
	Err         error
	Task        string
	Queue       string
	JobID       int64
	Attempt     int
	MaxAttempts int
	Panic       bool
}

// Final reports whether River will not retry the job.
func (f Failure) Final() bool {
	return f.Attempt >= f.MaxAttempts
}

// FailureHook receives job failures.
type FailureHook func(ctx context.Context, f Failure)

// errorHandler implements river.ErrorHandler. It logs every failure and
// forwards it to the configured hook. Retry policy stays with River.
type errorHandler struct {
	logger *slog.Logger
	hook   FailureHook
}

func (h *errorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.report(ctx, failureFromRow(job, err, false))
	return nil
}

func (h *errorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	f := failureFromRow(job, fmt.Errorf("%w: %v", ErrTaskPanicked, panicVal), true)
	h.logger.ErrorContext(ctx, "task panicked",
		slog.String("task", f.Task),
		slog.Int64("job_id", f.JobID),
		slog.String("trace", trace),
	)
	h.report(ctx, f)
	return nil
}

func (h *errorHandler) report(ctx context.Context, f Failure) {
	h.logger.WarnContext(ctx, "job failed",
		slog.String("task", f.Task),
		slog.String("queue", f.Queue),
		slog.Int64("job_id", f.JobID),
		slog.Int("attempt", f.Attempt),
		slog.Int("max_attempts", f.MaxAttempts),
		slog.Bool("final", f.Final()),
		slog.Any("error", f.Err),
	)
	if h.hook != nil {
		h.hook(ctx, f)
	}
}

func failureFromRow(job *rivertype.JobRow, err error, panicked bool) Failure {
	f := Failure{Err: err, Panic: panicked}
	if job == nil {
		return f
	}
	f.Task = taskName(job.EncodedArgs)
	f.Queue = job.Queue
	f.JobID = job.ID
	f.Attempt = job.Attempt
	f.MaxAttempts = job.MaxAttempts
	return f
}
