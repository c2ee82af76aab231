// Package audit records terminal mail failures in the tenant's system log.
package audit
