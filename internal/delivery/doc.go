// Package delivery sends one email per job attempt.
//
// An attempt reloads the tenant, resolves the transport, runs the preflight
// gate and sends. Failures are classified: permanent ones are audited and
// reported to the entity the message belongs to, transient ones re-enqueue
// the message with the next attempt number after a randomized delay. After
// MaxAttempts the message fails permanently.
//
//	msgID, err := delivery.Enqueue(ctx, enqueuer, delivery.Request{
//		TenantKey: "acme",
//		To:        "client@example.org",
//		Subject:   "Invoice INV-42",
//		HTML:      html,
//		Settings:  settings,
//	})
package delivery
