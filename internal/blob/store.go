package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a locator does not resolve to a stored blob.
var ErrNotFound = errors.New("blob not found")

// Metadata carries optional key/value annotations persisted with a blob.
// Backends that cannot store metadata ignore it.
type Metadata map[string]string

// Store is the blob storage contract consumed by the pipeline.
//
// Write returns a locator that Read accepts; for the bundled backends the
// locator is the key itself, which keeps artifact records portable across
// backends.
type Store interface {
	Read(ctx context.Context, locator string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, meta Metadata) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
