package failure

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// Class is the retry decision for a failed send.
type Class int

const (
	// Recoverable errors are retried while attempts remain.
	Recoverable Class = iota
	// RecoverableExhausted is a retryable error on the last attempt.
	RecoverableExhausted
	// NonRecoverable errors stop delivery immediately.
	NonRecoverable
)

func (c Class) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case RecoverableExhausted:
		return "recoverable_exhausted"
	case NonRecoverable:
		return "non_recoverable"
	default:
		return "unknown"
	}
}

// Reason narrows down why a send failed.
type Reason string

const (
	ReasonTransient  Reason = "transient"
	ReasonMalformed  Reason = "malformed"
	ReasonTooLarge   Reason = "too_large"
	ReasonSuppressed Reason = "suppressed"
)

// Verdict is the classification of one send error.
type Verdict struct {
	Class  Class
	Reason Reason
	// Detail is the raw error text.
	Detail string
	// ClientSide is true when the provider rejected the request with a 4xx.
	ClientSide bool
}

// Final reports whether delivery stops with this verdict.
func (v Verdict) Final() bool {
	return v.Class != Recoverable
}

// Provider codes with a fixed meaning across transports.
const (
	codeTooLargeOrSuppressed = 300
	codeBlockedRecipient     = 406
	codePayloadTooLarge      = 413
)

var codePattern = regexp.MustCompile(`(?i)\bcode:?\s*(\d{3})\b`)

// Classify decides what to do with a send error on the given attempt.
func Classify(err error, attempt, maxAttempts int) Verdict {
	v := Verdict{Class: Recoverable, Reason: ReasonTransient}
	if err == nil {
		return v
	}
	v.Detail = err.Error()

	pe, isProvider := mailer.AsProviderError(err)
	if isProvider {
		v.ClientSide = pe.ClientSide()
	}

	switch {
	case errors.Is(err, mailer.ErrMessageFormat):
		v.Class, v.Reason = NonRecoverable, ReasonMalformed
		return v
	case errors.Is(err, mailer.ErrAttachmentTooLarge):
		v.Class, v.Reason = NonRecoverable, ReasonTooLarge
		return v
	}

	switch code := errorCode(err, pe); code {
	case codeTooLargeOrSuppressed, codePayloadTooLarge:
		v.Class, v.Reason = NonRecoverable, ReasonTooLarge
		return v
	case codeBlockedRecipient:
		v.Class, v.Reason = NonRecoverable, ReasonSuppressed
		return v
	}

	if attempt >= maxAttempts {
		v.Class = RecoverableExhausted
	}
	return v
}

// errorCode prefers the structured provider code, then the HTTP status for
// 413, then a "code NNN" mention in the error text.
func errorCode(err error, pe *mailer.ProviderError) int {
	if pe != nil {
		if pe.Code > 0 {
			return pe.Code
		}
		if pe.Status == codePayloadTooLarge {
			return pe.Status
		}
	}
	if m := codePattern.FindStringSubmatch(err.Error()); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}
