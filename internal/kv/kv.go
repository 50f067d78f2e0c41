// Package kv provides the durable key-value slot the local story store
// and job records persist into. Two backends exist: Redis for deployed
// instances and a plain file directory for single-node or offline use.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// KV is a minimal durable key-value slot.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
