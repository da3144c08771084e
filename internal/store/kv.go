// Package store provides embedded persistence for reel: a bbolt
// key-value file holding session credentials, and a SQLite journal of
// reconciled mutation outcomes.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketCredentials = []byte("credentials")

// KV is a small bbolt-backed key-value store.
type KV struct {
	db *bolt.DB
}

// OpenKV opens or creates a bbolt database at the given path.
func OpenKV(dbPath string) (*KV, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	kv := &KV{db: db}
	if err := kv.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

func (kv *KV) initialize() error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCredentials); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketCredentials, err)
		}
		return nil
	})
}

// Close closes the database.
func (kv *KV) Close() error {
	if kv.db == nil {
		return nil
	}
	return kv.db.Close()
}

// GetValue gets a value from the credentials bucket. A missing key
// returns "" with no error.
func (kv *KV) GetValue(key string) (string, error) {
	var val string
	err := kv.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the credentials bucket.
func (kv *KV) SetValue(key, value string) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return fmt.Errorf("credentials bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// DeleteValue removes a key from the credentials bucket. Deleting a
// missing key is not an error.
func (kv *KV) DeleteValue(key string) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}
