// Package objectstore publishes episode audio and the feed.
package objectstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Object is a listing entry.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// PutOptions carries object metadata.
type PutOptions struct {
	ContentType  string
	CacheControl string
}

// Store is the object storage surface the publisher needs.
type Store interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

func joinURL(base, key string) string {
	if base == "" {
		return key
	}
	return base + "/" + key
}
