package job

import (
	"context"
	"log/slog"
)

type config struct {
	registry   *taskRegistry
	logger     *slog.Logger
	onFailure  FailureHook
	schedules  []scheduleConfig
	maxWorkers int
}

func newConfig() *config {
	return &config{
		registry: newTaskRegistry(),
	}
}

// Option configures the job manager.
type Option func(*config)

// WithTask registers anything with Name() and Handle(ctx, P). The payload
// type is passed explicitly:
//
//	job.WithTask[delivery.Request](delivery.NewTask(deliveryJob))
func WithTask[P any, T handler[P]](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), newTaskWrapper[P](task))
	}
}

// WithScheduledTask registers a periodic task. Schedule returns a
// five-field cron expression, e.g. "0 0 * * *" for the daily quota reset.
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
			handler:  task.Handle,
		})
	}
}

// WithLogger sets the logger shared by the manager and River. Nil keeps the
// discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets how many jobs run concurrently. Defaults to 100.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithFailureHook is called with every failed or panicked run, after it
// has been logged.
func WithFailureHook(h FailureHook) Option {
	return func(c *config) {
		c.onFailure = h
	}
}
