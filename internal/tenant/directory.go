package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/courier/pkg/cache"
)

// Lookup is the cached routing entry for a company.
type Lookup struct {
	Shard string `json:"shard"`
}

// Cluster is the subset of db.Cluster the directory needs.
type Cluster interface {
	Control() *pgxpool.Pool
	Shard(ctx context.Context, name string) (*pgxpool.Pool, error)
}

// Directory selects the shard holding a company and opens a Store on it.
type Directory struct {
	lookup func(ctx context.Context, key string) (string, error)
	open   func(ctx context.Context, shard string) (Store, error)
	cache  cache.Cache[Lookup]
	ttl    time.Duration
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithLookupTTL sets how long routing entries stay cached.
func WithLookupTTL(d time.Duration) DirectoryOption {
	return func(dir *Directory) {
		dir.ttl = d
	}
}

// NewDirectory creates a Directory over a database cluster. Lookups are
// cached in c.
func NewDirectory(cluster Cluster, c cache.Cache[Lookup], opts ...DirectoryOption) *Directory {
	d := &Directory{
		cache: c,
		ttl:   time.Hour,
		lookup: func(ctx context.Context, key string) (string, error) {
			return lookupShard(ctx, cluster.Control(), key)
		},
		open: func(ctx context.Context, shard string) (Store, error) {
			pool, err := cluster.Shard(ctx, shard)
			if err != nil {
				return nil, err
			}
			return NewRepository(pool), nil
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open returns the Store for the shard holding companyKey. It returns
// ErrCompanyNotFound when the company has no routing entry.
func (d *Directory) Open(ctx context.Context, companyKey string) (Store, error) {
	l, err := cache.GetOrSet(ctx, d.cache, "lookup:"+companyKey, func(ctx context.Context) (Lookup, time.Duration, error) {
		shard, err := d.lookup(ctx, companyKey)
		if err != nil {
			return Lookup{}, 0, err
		}
		return Lookup{Shard: shard}, d.ttl, nil
	})
	if err != nil {
		return nil, err
	}

	store, err := d.open(ctx, l.Shard)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	return store, nil
}

// Forget drops the cached routing entry, e.g. after a company moved shards.
func (d *Directory) Forget(ctx context.Context, companyKey string) error {
	return d.cache.Delete(ctx, "lookup:"+companyKey)
}

func lookupShard(ctx context.Context, control *pgxpool.Pool, key string) (string, error) {
	var shard string
	err := control.QueryRow(ctx,
		`SELECT shard FROM company_lookups WHERE company_key = $1`, key,
	).Scan(&shard)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrCompanyNotFound
	}
	if err != nil {
		return "", errors.Join(ErrLookupFailed, err)
	}
	return shard, nil
}
