package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

// bucketKV is the single bucket holding all guarded key-value pairs
var bucketKV = []byte("kv")

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB

	// budgetBytes is the byte budget enforced on writes.
	// Zero means writes are never rejected for quota reasons.
	budgetBytes int64
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file, budgetBytes is the
// byte budget after which Set returns storage.ErrQuotaExceeded
func New(ctx context.Context, dbPath string, budgetBytes int64) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db, budgetBytes: budgetBytes}

	// Инициализируем bucket
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимый bucket если он не существует
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketKV); err != nil {
			return fmt.Errorf("failed to create kv bucket: %w", err)
		}
		return nil
	})
}
