// Package redis opens the go-redis client shared by the quota counter, the
// telemetry stream, the credential-notice dedupe and the distributed cache.
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Open retries PING with a linear backoff until the server answers or the
// attempts run out. Healthcheck returns a readiness probe.
package redis
