package blob

import (
	"context"
	"errors"
	"fmt"
)

// ReadVariant reads a key, falling back through its extension variants when
// the declared extension is missing from the store. Returns the bytes and the
// key that resolved.
func ReadVariant(ctx context.Context, store Store, key string) ([]byte, string, error) {
	var lastErr error
	for _, candidate := range VariantKeys(key) {
		data, err := store.Read(ctx, candidate)
		if err == nil {
			return data, candidate, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("blob: no variant of %s found: %w", key, lastErr)
}

// ReadMask reads the sibling mask for a base key. A missing mask returns
// (nil, "", nil); masks are optional.
func ReadMask(ctx context.Context, store Store, baseKey string) ([]byte, string, error) {
	key := MaskKey(baseKey)
	data, err := store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return data, key, nil
}
