// Package storage keeps profile images either in an S3 compatible bucket
// or in a directory served by the app itself
package storage

import (
	"context"
	"fmt"
	"io"

	"bitwise74/todo-api/config"
)

type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, keys ...string) error
	URL(key string) string
}

// New picks the store configured in storage.type
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Type {
	case "s3":
		return NewS3(ctx, cfg.Storage)
	case "r2":
		return NewR2(ctx, cfg.Storage, cfg.Cloudflare.AccountID)
	case "local":
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
