package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/cuemby/cachalot/pkg/storage"
)

var (
	bucketValues = []byte("values")
	bucketExpiry = []byte("expiry")
	bucketLocks  = []byte("locks")
)

// Store implements storage.RawStorage over an embedded bbolt database.
type Store struct {
	db *bbolt.DB

	connMu    sync.Mutex
	onConnect []func()
}

// NewStore opens (creating if necessary) a bbolt database file named
// "cachalot.db" inside dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "cachalot.db")

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cachalot/storage/bolt: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketValues, bucketExpiry, bucketLocks} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.RawStorage = (*Store)(nil)

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value   string
		present bool
		expired bool
	)

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketValues).Get([]byte(key))
		if v == nil {
			return nil
		}

		if exp := tx.Bucket(bucketExpiry).Get([]byte(key)); exp != nil {
			deadline, err := strconv.ParseInt(string(exp), 10, 64)
			if err == nil && time.Now().UnixMilli() > deadline {
				expired = true
				return nil
			}
		}

		present = true
		value = string(v)
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if expired {
		_, _ = s.Del(context.Background(), key)
		return "", false, nil
	}
	return value, present, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketValues).Put([]byte(key), []byte(value)); err != nil {
			return err
		}
		expBucket := tx.Bucket(bucketExpiry)
		if ttl > 0 {
			deadline := strconv.FormatInt(time.Now().Add(ttl).UnixMilli(), 10)
			return expBucket.Put([]byte(key), []byte(deadline))
		}
		return expBucket.Delete([]byte(key))
	})
	return err == nil, err
}

func (s *Store) Del(_ context.Context, key string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		existed = tx.Bucket(bucketValues).Get([]byte(key)) != nil
		if err := tx.Bucket(bucketValues).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(bucketExpiry).Delete([]byte(key))
	})
	return existed, err
}

func (s *Store) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok, err := s.Get(ctx, k); err != nil {
			return nil, err
		} else if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) MSet(ctx context.Context, values map[string]string, ttl time.Duration) (bool, error) {
	for k, v := range values {
		if _, err := s.Set(ctx, k, v, ttl); err != nil {
			return false, err
		}
	}
	return true, nil
}

// lockValueSep separates a lock's holder token from its expiry
// deadline in bucketLocks. A uuid.NewString() token never contains
// '|', so this splits unambiguously.
const lockValueSep = "|"

func encodeLockValue(token string, deadline int64) []byte {
	return []byte(token + lockValueSep + strconv.FormatInt(deadline, 10))
}

func decodeLockValue(v []byte) (token string, deadline int64, ok bool) {
	token, rest, found := strings.Cut(string(v), lockValueSep)
	if !found {
		return "", 0, false
	}
	deadline, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return token, deadline, true
}

func (s *Store) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	var (
		token    string
		acquired bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		if existing := b.Get([]byte(key)); existing != nil {
			if _, deadline, ok := decodeLockValue(existing); ok && time.Now().UnixMilli() < deadline {
				return nil
			}
		}
		acquired = true
		token = uuid.NewString()
		deadline := time.Now().Add(ttl).UnixMilli()
		return b.Put([]byte(key), encodeLockValue(token, deadline))
	})
	if !acquired {
		token = ""
	}
	return token, acquired, err
}

func (s *Store) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	var released bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLocks)
		existing := b.Get([]byte(key))
		if existing == nil {
			return nil
		}
		heldToken, _, ok := decodeLockValue(existing)
		if !ok || heldToken != token {
			return nil
		}
		released = true
		return b.Delete([]byte(key))
	})
	return released, err
}

func (s *Store) IsLockExists(_ context.Context, key string) (bool, error) {
	var locked bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketLocks).Get([]byte(key))
		if v == nil {
			return nil
		}
		if _, deadline, ok := decodeLockValue(v); ok && time.Now().UnixMilli() < deadline {
			locked = true
		}
		return nil
	})
	return locked, err
}

func (s *Store) GetConnectionStatus() storage.ConnectionStatus {
	return storage.Connected
}

// OnConnect invokes cb immediately: once NewStore returns, the
// database file is open and usable.
func (s *Store) OnConnect(cb func()) {
	s.connMu.Lock()
	s.onConnect = append(s.onConnect, cb)
	s.connMu.Unlock()
	cb()
}
