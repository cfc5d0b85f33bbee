package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/homekeeper/internal/client/storage"
)

// Get returns the raw value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return fmt.Errorf("kv bucket not found")
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound
		}

		// Копируем данные: слайс из bbolt валиден только внутри транзакции
		value = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores the raw value under key. Returns storage.ErrQuotaExceeded
// if the write would push the store over its byte budget.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return fmt.Errorf("kv bucket not found")
		}

		// Проверяем бюджет: суммарный размер после записи не должен
		// превышать budgetBytes
		if s.budgetBytes > 0 {
			projected := usageLocked(bucket)
			if existing := bucket.Get([]byte(key)); existing != nil {
				projected -= int64(len(key) + len(existing))
			}
			projected += int64(len(key) + len(value))
			if projected > s.budgetBytes {
				return storage.ErrQuotaExceeded
			}
		}

		if err := bucket.Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to put key %q: %w", key, err)
		}
		return nil
	})
}

// Delete removes the value stored under key
// Deleting a missing key is not an error
func (s *Storage) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return fmt.Errorf("kv bucket not found")
		}
		return bucket.Delete([]byte(key))
	})
}

// Keys returns all keys currently present in the store
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketKV)
		if bucket == nil {
			return fmt.Errorf("kv bucket not found")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// Clear removes all keys from the store
func (s *Storage) Clear(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketKV); err != nil {
			return fmt.Errorf("failed to drop kv bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketKV); err != nil {
			return fmt.Errorf("failed to recreate kv bucket: %w", err)
		}
		return nil
	})
}

// usageLocked суммирует размер ключей и значений внутри открытой транзакции
func usageLocked(bucket *bbolt.Bucket) int64 {
	var used int64
	_ = bucket.ForEach(func(k, v []byte) error {
		used += int64(len(k) + len(v))
		return nil
	})
	return used
}
