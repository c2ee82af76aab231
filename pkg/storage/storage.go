package storage

import (
	"context"
	"io"
)

// Reader reads attachment objects. The worker never writes to the bucket;
// uploads belong to the application that enqueues mail.
type Reader interface {
	Head(ctx context.Context, key string) (*Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Object is object metadata.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Bucket    string `env:"STORAGE_BUCKET"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	// Endpoint is set for MinIO and other S3-compatible services.
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	PathStyle bool   `env:"STORAGE_PATH_STYLE" envDefault:"false"`
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) validate() error {
	if c.Bucket == "" || c.AccessKey == "" || c.SecretKey == "" {
		return ErrInvalidConfig
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return nil
}

// ReadAll reads the object at key, failing with ErrObjectTooLarge when it
// is larger than limit bytes. A limit <= 0 disables the check.
func ReadAll(ctx context.Context, r Reader, key string, limit int64) ([]byte, error) {
	rc, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	src := io.Reader(rc)
	if limit > 0 {
		src = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, wrapS3Error(err, ErrReadFailed)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrObjectTooLarge
	}
	return data, nil
}
