package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cuemby/cachalot/pkg/storage"
)

// DefaultCapacity bounds the number of entries kept when a Store is
// constructed with NewStore's zero value.
const DefaultCapacity = 10_000

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// Store is an in-process RawStorage backed by a capacity-bounded LRU.
// It is always "connected": there is no network hop to lose.
type Store struct {
	values *lru.LRU[string, entry]

	mu    sync.Mutex
	locks map[string]lockEntry

	connMu    sync.Mutex
	onConnect []func()
}

// NewStore builds a memory Store holding at most capacity entries.
// capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		values: lru.NewLRU[string, entry](capacity, nil, 0),
		locks:  make(map[string]lockEntry),
	}
}

var _ storage.RawStorage = (*Store)(nil)

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := s.values.Get(key)
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.values.Remove(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.values.Add(key, entry{value: value, expiresAt: expiresAt})
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) (bool, error) {
	return s.values.Remove(key), nil
}

func (s *Store) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok, _ := s.Get(ctx, k); ok {
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

func (s *Store) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.locks[key]; ok && time.Now().Before(existing.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.locks[key] = lockEntry{token: token, expiresAt: time.Now().Add(ttl)}
	return token, true, nil
}

func (s *Store) ReleaseLock(_ context.Context, key, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locks[key]
	if !ok || existing.token != token {
		return false, nil
	}
	delete(s.locks, key)
	return true, nil
}

func (s *Store) IsLockExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.locks[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(existing.expiresAt) {
		delete(s.locks, key)
		return false, nil
	}
	return true, nil
}

func (s *Store) GetConnectionStatus() storage.ConnectionStatus {
	return storage.Connected
}

// OnConnect invokes cb immediately: an in-process store is connected
// from construction onward, so there is no reconnect event to wait for.
func (s *Store) OnConnect(cb func()) {
	s.connMu.Lock()
	s.onConnect = append(s.onConnect, cb)
	s.connMu.Unlock()
	cb()
}
