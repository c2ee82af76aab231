// Package notify tells business entities (invoices, quotes, credits,
// purchase orders, payments) that an email sent for them failed for good.
// Delivery only sees the Notifiable interface.
package notify
