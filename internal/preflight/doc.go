// Package preflight suppresses mail that must not be sent: disabled or
// flagged tenants, placeholder recipients, exhausted platform quota and,
// for unverified accounts, content the scanner rejects. A blocked message is
// dropped silently; it is not a delivery failure.
package preflight
