package delivery

import (
	"context"
	"errors"

	"github.com/dmitrymomot/courier/pkg/id"
	"github.com/dmitrymomot/courier/pkg/job"
)

// Task adapts Job to the job manager.
type Task struct {
	job *Job
}

// NewTask wraps a Job as the send_email task.
func NewTask(j *Job) *Task {
	return &Task{job: j}
}

func (t *Task) Name() string { return TaskName }

// Handle runs one attempt.
func (t *Task) Handle(ctx context.Context, req Request) error {
	_, err := t.job.Attempt(ctx, req)
	return err
}

// Enqueue schedules the first attempt for req and returns its message id.
// Every attempt is its own job with a single queue attempt; retries are
// scheduled by the Job itself.
func Enqueue(ctx context.Context, e Enqueuer, req Request, opts ...job.EnqueueOption) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if req.MessageID == "" {
		req.MessageID = id.New()
	}
	req.Attempt = 1

	opts = append(opts, job.MaxAttempts(1))
	if err := e.Enqueue(ctx, TaskName, req, opts...); err != nil {
		return "", errors.Join(ErrEnqueue, err)
	}
	return req.MessageID, nil
}
