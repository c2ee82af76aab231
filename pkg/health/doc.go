// Package health serves liveness and readiness probes for the worker.
//
// The worker has no public HTTP surface, so probes run on a small chi router
// of their own:
//
//	srv := health.NewServer(":8081", health.Checks{
//		"postgres": cluster.Healthcheck,
//		"redis":    redis.Healthcheck(client),
//		"jobs":     job.Healthcheck(manager),
//	}, health.WithLogger(log))
//	go srv.Serve(ctx)
//
// GET /health/live always answers 200. GET /health/ready runs every check
// concurrently and answers 503 if any fails. Plain text is the default;
// send Accept: application/json or ?format=json for the detailed report.
package health
