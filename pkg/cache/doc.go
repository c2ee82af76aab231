// Package cache provides generic key-value caches with TTL support.
//
// Memory is process local with an optional LRU bound, Redis is shared by
// every worker, and Layered puts the first in front of the second. The
// tenant directory uses a Layered cache for company-to-shard lookups:
//
//	lookups := cache.NewLayered[tenant.Lookup](
//		cache.NewMemory[tenant.Lookup](cache.MemoryConfig{MaxEntries: 10000}),
//		cache.NewRedis[tenant.Lookup](client, "courier:lookup", time.Hour),
//		5*time.Minute,
//	)
//
// GetOrSet computes missing values once per key even under concurrent
// misses.
package cache
