package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/aimboard/aimboard/pkg/metrics"
)

// stateBucket holds every document; keys are namespaced by the callers.
const stateBucket = "state"

// BoltStore persists JSON documents in a single-file bbolt database.
type BoltStore struct {
	db          *bbolt.DB
	fileMode    os.FileMode
	openTimeout time.Duration
}

// NewBoltStore opens (creating if needed) the database at path.
func NewBoltStore(path string, opts ...Option) (*BoltStore, error) {
	s := &BoltStore{
		fileMode:    0o600,
		openTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bbolt.Open(path, s.fileMode, &bbolt.Options{Timeout: s.openTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open state store %s", path)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create state bucket")
	}
	s.db = db
	return s, nil
}

// Get implements Store.
func (s *BoltStore) Get(_ context.Context, key string, out any) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(stateBucket)).Get([]byte(key))
		if v == nil {
			return errors.Wrap(ErrKeyNotFound, key)
		}
		// The slice is only valid inside the transaction.
		raw = append(raw, v...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode document %s", key)
	}
	return nil
}

// Put implements Store.
func (s *BoltStore) Put(_ context.Context, key string, value any) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode document %s", key)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Put([]byte(key), raw)
	})
	return errors.Wrapf(err, "write document %s", key)
}

// Delete implements Store.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(stateBucket)).Delete([]byte(key))
	})
	return errors.Wrapf(err, "delete document %s", key)
}

// Keys implements Store.
func (s *BoltStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(stateBucket)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan keys")
	}
	return keys, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return errors.Wrap(s.db.Close(), "close state store")
}
