// Package storage defines the durable key-value backend shop state is
// persisted to.
package storage

import "context"

// Backend names a KV implementation.
type Backend string

const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// KV is a string-keyed byte store. Get reports found=false for a missing
// key; an error always means the backend could not answer.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
