package job

import "time"

type enqueueConfig struct {
	scheduledAt time.Time
	maxAttempts int
}

// EnqueueOption adjusts how a single job is inserted.
type EnqueueOption func(*enqueueConfig)

// MaxAttempts caps River's own retries for the job. Delivery jobs run their
// own retry schedule and insert with MaxAttempts(1).
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// ScheduledIn delays the job by d from now.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		if d > 0 {
			c.scheduledAt = time.Now().Add(d)
		}
	}
}
