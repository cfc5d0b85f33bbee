package storage

import "errors"

// Common client storage errors
var (
	// ErrKeyNotFound indicates that no value exists under the requested key
	ErrKeyNotFound = errors.New("key not found")

	// ErrQuotaExceeded indicates that the store is over its byte budget
	// and cleanup did not free enough space
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
