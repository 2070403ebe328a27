// Package gateway is the key-value persistence port used by the session store,
// together with its adapters (memory, file, Postgres, Redis).
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// UserDataKey is the single key under which the logged-in profile is kept.
const UserDataKey = "userData"

var (
	// ErrNotFound reports an absent key. It is not a fault.
	ErrNotFound = errors.New("gateway: not found")
	// ErrRead classifies I/O faults on Get.
	ErrRead = errors.New("gateway: read failed")
	// ErrWrite classifies I/O faults on Set and Remove.
	ErrWrite = errors.New("gateway: write failed")
	// ErrInvalidKey rejects empty keys.
	ErrInvalidKey = errors.New("gateway: invalid key")
)

// Gateway stores serialized records by key.
// Remove of an absent key succeeds.
type Gateway interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

func readErr(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRead, key, err)
}

func writeErr(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWrite, key, err)
}
