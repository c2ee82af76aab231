package db

import (
	"context"
)

// Shutdown returns a function that closes every pool of the cluster.
//
// Example:
//
//	hooks = append(hooks, db.Shutdown(cluster))
func Shutdown(c *Cluster) func(ctx context.Context) error {
	return func(context.Context) error {
		c.Close()
		return nil
	}
}
