// Package db manages PostgreSQL connectivity for the worker.
//
// A Cluster holds the control database pool and opens one pool per tenant
// shard on demand. Shard URLs come from DATABASE_SHARDS:
//
//	cluster, err := db.NewCluster(ctx, cfg.DB)
//	if err != nil {
//		return err
//	}
//	defer cluster.Close()
//
//	pool, err := cluster.Shard(ctx, "db-ninja-02")
//
// Migrate applies goose migrations from an fs.FS, typically an embed.FS
// compiled into the binary. WithTx wraps a function in a transaction.
package db
