// Package failure classifies send errors into retry decisions and renders
// the recipient-facing message for terminal failures.
//
// Malformed messages, oversized attachments and provider codes 300, 406 and
// 413 stop delivery at once. Everything else is retried until the last
// attempt, where it becomes RecoverableExhausted.
package failure
