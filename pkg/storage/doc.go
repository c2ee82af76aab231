// Package storage reads email attachments from S3-compatible object storage.
//
//	store, err := storage.New(cfg)
//	data, err := storage.ReadAll(ctx, store, "acme/invoices/INV-1.pdf", 10<<20)
//
// Errors are reported as sentinels: ErrNotFound, ErrAccessDenied,
// ErrReadFailed and ErrObjectTooLarge.
package storage
