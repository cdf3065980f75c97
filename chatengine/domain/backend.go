package domain

import (
	"context"
	"time"
)

// Backend is the raw byte store the cache layer serialises into.
// Implementations must make a read after expiry report the key as missing.
type Backend interface {
	// Set stores value under key. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the stored bytes, or found=false if the key is missing or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a live entry is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys lists the live keys matching a glob pattern ("*" and "?").
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
