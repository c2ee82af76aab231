package delivery

import (
	"fmt"
	"time"
)

// Status is the result kind of one attempt.
type Status int

const (
	StatusSent Status = iota + 1
	StatusPermanentFailure
	StatusRetryScheduled
	StatusDropped
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusPermanentFailure:
		return "permanent_failure"
	case StatusRetryScheduled:
		return "retry_scheduled"
	case StatusDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Reasons for dropped messages.
const (
	ReasonTenantMissing = "tenant missing"
	ReasonPreflight     = "blocked by preflight"
)

// Outcome is what happened to an attempt.
type Outcome struct {
	Status Status
	// Reason is the failure message or drop reason.
	Reason string
	// Delay is set for StatusRetryScheduled.
	Delay time.Duration
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusRetryScheduled:
		return fmt.Sprintf("%s in %s", o.Status, o.Delay)
	case StatusPermanentFailure, StatusDropped:
		return fmt.Sprintf("%s: %s", o.Status, o.Reason)
	default:
		return o.Status.String()
	}
}

func Sent() Outcome                              { return Outcome{Status: StatusSent} }
func PermanentFailure(reason string) Outcome     { return Outcome{Status: StatusPermanentFailure, Reason: reason} }
func RetryScheduled(delay time.Duration) Outcome { return Outcome{Status: StatusRetryScheduled, Delay: delay} }
func Dropped(reason string) Outcome              { return Outcome{Status: StatusDropped, Reason: reason} }
