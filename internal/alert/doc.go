// Package alert emails account owners when their own sending method (OAuth
// mailbox or provider account) can no longer be used. Alerts are throttled
// per account with a Redis key and delivered through the regular send_email
// queue from the platform address.
package alert
