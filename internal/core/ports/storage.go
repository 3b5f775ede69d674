package ports

import (
	"context"
	"io"
)

// Disk stores uploaded files under slash separated paths relative to its root.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}
