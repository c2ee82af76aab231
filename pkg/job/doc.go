// Package job runs background tasks on River, a Postgres-backed queue.
//
// Every task is stored under a single River kind ("courier:task") with the
// task name and a JSON payload. Handlers are registered by structural typing:
// anything with Name() string and Handle(ctx, P) error can be a task, and the
// payload type P is inferred from Handle.
//
// # Workers
//
//	manager, err := job.NewManager(pool,
//	    job.WithLogger(log),
//	    job.WithMaxWorkers(20),
//	    job.WithTask[delivery.Request](delivery.NewTask(deliveryJob)),
//	    job.WithScheduledTask(quota.NewResetTask(counter)),
//	    job.WithFailureHook(func(ctx context.Context, f job.Failure) {
//	        tracker.CaptureException(ctx, f.Err, map[string]string{"task": f.Task})
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := manager.Start(ctx); err != nil {
//	    return err
//	}
//	defer manager.Stop(context.Background())
//
// # Producers
//
// Code that only inserts work uses an Enqueuer, which runs River in
// insert-only mode:
//
//	enq, err := job.NewEnqueuer(pool)
//	err = enq.Enqueue(ctx, "send_email", req,
//	    job.MaxAttempts(1),
//	    job.ScheduledIn(30*time.Second),
//	)
//
// # Scheduled tasks
//
// WithScheduledTask registers tasks with Name(), Schedule() and Handle(ctx).
// Schedule returns a five-field cron expression parsed by robfig/cron.
//
// # Failures
//
// Every failed or panicked run is logged with task name, attempt and job
// id. A FailureHook receives the same data; retry policy stays with River
// and the MaxAttempts the job was inserted with.
//
// Healthcheck returns a readiness check that verifies the manager is
// running and the database is reachable.
package job
