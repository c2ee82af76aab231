// Package transport decides how a message leaves the platform.
//
// Resolver maps a tenant's sending method (default, gmail, office365,
// client_postmark, client_mailgun) to an attempt-scoped Config holding the
// from identity and any secrets. Misconfiguration never surfaces as an
// error: the resolver logs it and falls back to the default method, which
// cannot fail. Factory turns the Config into a mailer.Sender.
//
// Callers must Wipe the Config when the attempt ends.
package transport
