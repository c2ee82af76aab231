package delivery

import "errors"

var (
	ErrNoTenant    = errors.New("delivery: request has no tenant key")
	ErrNoRecipient = errors.New("delivery: request has no recipient")
	ErrNoSubject   = errors.New("delivery: request has no subject")

	ErrTenantUnavailable      = errors.New("delivery: tenant could not be loaded")
	ErrRetryEnqueue           = errors.New("delivery: failed to schedule retry")
	ErrEnqueue                = errors.New("delivery: failed to enqueue message")
	ErrAttachmentsUnavailable = errors.New("delivery: attachment storage not configured")
	ErrAttachmentLoad         = errors.New("delivery: failed to load attachment")
)
