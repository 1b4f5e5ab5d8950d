// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cache provides the generic key-value cache collaborator used to
// memoize per-page rating queries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache is a generic key-value store. Invalidation is explicit via Delete;
// backends may additionally apply a TTL as a safety net, but the TTL is
// never the primary invalidation mechanism.
type Cache interface {
	// Fetch returns the stored value and whether the key was present.
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	// Save stores a value under the key, overwriting any previous value.
	Save(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key derives a cache key from the generation salt, a namespace and a name.
// Changing the salt invalidates every entry at once.
func Key(salt, namespace, name string) string {
	hash := sha256.New()
	hash.Write([]byte(salt))
	hash.Write([]byte{0})
	hash.Write([]byte(namespace))
	hash.Write([]byte{0})
	hash.Write([]byte(name))
	return hex.EncodeToString(hash.Sum(nil))
}
