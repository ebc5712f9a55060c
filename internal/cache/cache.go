// Package cache stores classification results keyed by content hash so
// duplicate and reprocessed uploads skip the remote AI call entirely.
package cache

import (
	"context"

	"github.com/viafoto/viafoto/internal/classify"
)

// Stats summarizes the state of a store.
type Stats struct {
	Count      int   `json:"count"`
	ApproxSize int64 `json:"approx_size_bytes"`
}

// Store is the key-value contract consumed by the processing queue. Get
// returns (nil, nil) on a miss; a miss is not an error. Implementations
// must be safe under one writer and many concurrent readers.
type Store interface {
	Get(ctx context.Context, hash string) (*classify.Result, error)
	Put(ctx context.Context, hash string, result classify.Result) error
	Remove(ctx context.Context, hash string) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}
