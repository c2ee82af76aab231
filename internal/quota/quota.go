package quota

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCounterFailed = errors.New("quota: counter operation failed")
	ErrResetFailed   = errors.New("quota: reset failed")
)

const (
	defaultPrefix = "courier:quota"

	// keyTTL expires counters a missed reset would otherwise leave behind.
	keyTTL = 48 * time.Hour
)

type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// nodeWalker runs fn against every node that can hold counter keys.
type nodeWalker func(ctx context.Context, fn func(context.Context, redisClient) error) error

// Counter tracks platform-funded emails per account for the current day.
type Counter struct {
	client redisClient
	prefix string
	nodes  nodeWalker
}

// NewCounter creates a Redis-backed quota counter. With a cluster client
// ResetAll walks every master, since SCAN only sees one node.
func NewCounter(client redis.UniversalClient) *Counter {
	c := &Counter{client: client, prefix: defaultPrefix}
	if cc, ok := client.(*redis.ClusterClient); ok {
		c.nodes = func(ctx context.Context, fn func(context.Context, redisClient) error) error {
			return cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
				return fn(ctx, node)
			})
		}
	}
	return c
}

// Increment adds one sent email. INCR is atomic; a retry after a failed
// attempt may overcount, which is acceptable for an advisory quota.
func (c *Counter) Increment(ctx context.Context, accountKey string) (int64, error) {
	key := c.key(accountKey)
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Join(ErrCounterFailed, err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, keyTTL).Err(); err != nil {
			return n, errors.Join(ErrCounterFailed, err)
		}
	}
	return n, nil
}

// Count returns the emails sent today.
func (c *Counter) Count(ctx context.Context, accountKey string) (int, error) {
	v, err := c.client.Get(ctx, c.key(accountKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrCounterFailed, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Join(ErrCounterFailed, err)
	}
	return n, nil
}

// ResetAll deletes every counter and returns how many were removed.
func (c *Counter) ResetAll(ctx context.Context) (int, error) {
	walk := c.nodes
	if walk == nil {
		walk = func(ctx context.Context, fn func(context.Context, redisClient) error) error {
			return fn(ctx, c.client)
		}
	}

	var removed atomic.Int64
	err := walk(ctx, func(ctx context.Context, node redisClient) error {
		n, err := c.resetNode(ctx, node)
		removed.Add(int64(n))
		return err
	})
	if err != nil {
		return int(removed.Load()), errors.Join(ErrResetFailed, err)
	}
	return int(removed.Load()), nil
}

func (c *Counter) resetNode(ctx context.Context, node redisClient) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := node.Scan(ctx, cursor, c.prefix+":*", 500).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := node.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (c *Counter) key(accountKey string) string {
	return c.prefix + ":" + accountKey
}
