// Package tenant loads the company, account and owner a message is sent on
// behalf of.
//
// Companies live on database shards. Directory resolves a company key to its
// shard through the control database table company_lookups (cached) and
// returns a Store for that shard. The context is re-read on every delivery
// attempt; nothing here is cached except routing.
package tenant
