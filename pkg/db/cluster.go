package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Cluster owns the control pool and lazily opened shard pools. The control
// database doubles as the default shard.
type Cluster struct {
	cfg     Config
	control *pgxpool.Pool

	mu     sync.Mutex
	shards map[string]*pgxpool.Pool
	closed bool
}

// NewCluster connects to the control database. Shard pools are opened on
// first use.
func NewCluster(ctx context.Context, cfg Config) (*Cluster, error) {
	control, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Cluster{
		cfg:     cfg,
		control: control,
		shards:  make(map[string]*pgxpool.Pool),
	}, nil
}

// Control returns the control database pool.
func (c *Cluster) Control() *pgxpool.Pool {
	return c.control
}

// Shard returns the pool for a named shard. An empty name resolves to the
// control database.
func (c *Cluster) Shard(ctx context.Context, name string) (*pgxpool.Pool, error) {
	if name == "" {
		return c.control, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClusterClosed
	}
	if pool, ok := c.shards[name]; ok {
		return pool, nil
	}

	url, ok := c.cfg.Shards[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShard, name)
	}
	pool, err := Connect(ctx, c.cfg.forURL(url))
	if err != nil {
		return nil, fmt.Errorf("shard %s: %w", name, err)
	}
	c.shards[name] = pool
	return pool, nil
}

// Healthcheck pings the control pool and every opened shard.
func (c *Cluster) Healthcheck(ctx context.Context) error {
	if err := c.control.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}

	c.mu.Lock()
	pools := make(map[string]*pgxpool.Pool, len(c.shards))
	for name, p := range c.shards {
		pools[name] = p
	}
	c.mu.Unlock()

	for name, p := range pools {
		if err := p.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, fmt.Errorf("shard %s: %w", name, err))
		}
	}
	return nil
}

// Close closes every pool.
func (c *Cluster) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, p := range c.shards {
		p.Close()
	}
	c.control.Close()
}
