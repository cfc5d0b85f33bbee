package storage

import "context"

//go:generate moq -out kv_mock.go . KVStore

// KVStore defines interface for the durable key-value store underneath
// the Guardian. This is the lowest storage layer - it works with raw bytes
// and knows nothing about JSON or the meaning of keys.
type KVStore interface {
	// Get returns the raw value stored under key
	// Returns ErrKeyNotFound if the key does not exist
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the raw value under key, overwriting any previous value
	// Returns ErrQuotaExceeded if the write would push the store over
	// its configured byte budget
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key
	// Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys returns all keys currently present in the store
	Keys(ctx context.Context) ([]string, error)

	// Clear removes all keys from the store
	Clear(ctx context.Context) error
}
