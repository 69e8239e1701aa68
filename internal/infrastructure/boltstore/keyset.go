package boltstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/volunteers/internal/auth"
)

var (
	defaultBucket = []byte("jwks")
	keySetKey     = []byte("current")
)

type entry struct {
	Raw       json.RawMessage `json:"raw"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Store keeps the last fetched key set in a BoltDB file so a restarted
// process can verify tokens before the identity provider answers.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

var _ auth.Store = (*Store)(nil)

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: defaultBucket}, nil
}

func (s *Store) Load(context.Context) ([]byte, time.Time, error) {
	if s == nil || s.db == nil {
		return nil, time.Time{}, bolt.ErrDatabaseNotOpen
	}

	var e entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(keySetKey)
		if v == nil {
			return nil
		}
		found = true
		// v is only valid inside the transaction; Unmarshal copies it.
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	if !found {
		return nil, time.Time{}, auth.ErrCacheMiss
	}
	return e.Raw, e.FetchedAt, nil
}

func (s *Store) Save(_ context.Context, raw []byte, fetchedAt time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(entry{Raw: raw, FetchedAt: fetchedAt})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(keySetKey, payload)
	})
}

// Close releases the BoltDB file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
