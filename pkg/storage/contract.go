package storage

import (
	"context"
	"time"

	"github.com/cuemby/cachalot/pkg/types"
)

// ConnectionStatus reports whether a backend adapter currently holds
// a usable connection to its underlying store.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connected
)

// DefaultLockExpire bounds the damage of a crashed lock holder.
const DefaultLockExpire = 20 * time.Second

// DefaultOperationTimeout is a bound for a single Storage round trip.
// No code in this module applies it: Wrapper passes the caller's
// context through unchanged.
const DefaultOperationTimeout = 150 * time.Millisecond

// RawStorage is the raw string key/value shape every backend adapter
// implements. It is deliberately backend-agnostic: a Redis, Memcached,
// SQL, or embedded adapter all satisfy it the same way.
type RawStorage interface {
	// Get returns the raw value for key, or ok=false if absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes key with an optional TTL; ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Del removes key, returning true if it existed.
	Del(ctx context.Context, key string) (bool, error)
	// MGet fetches several keys at once; absent keys are omitted.
	MGet(ctx context.Context, keys []string) (map[string]string, error)
	// MSet writes several keys at once with a shared TTL.
	MSet(ctx context.Context, values map[string]string, ttl time.Duration) (bool, error)

	// AcquireLock attempts to take an exclusive, TTL-bounded lock at
	// key, returning the holder token to present to ReleaseLock and
	// true if acquired. The token lets ReleaseLock tell its own lock
	// apart from one a different holder has since acquired after TTL
	// expiry, so a slow caller's deferred release can never delete a
	// lock it no longer owns.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	// ReleaseLock releases key's lock only if token matches the
	// holder recorded by AcquireLock; it is a no-op (false, nil) if
	// the lock was never held, already released, or has since been
	// acquired by someone else.
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	// IsLockExists reports whether key is currently locked.
	IsLockExists(ctx context.Context, key string) (bool, error)

	// GetConnectionStatus reports the adapter's connection state.
	GetConnectionStatus() ConnectionStatus
	// OnConnect registers a callback fired when connectivity is
	// (re)established. Adapters with no reconnect logic of their own
	// may invoke cb once, synchronously, during registration.
	OnConnect(cb func())
}

// Storage is the Record-shape contract that Read-Through,
// Write-Through, and Refresh-Ahead managers consume.
type Storage interface {
	// Get returns the full Record envelope for key, or ok=false if
	// absent.
	Get(ctx context.Context, key string) (rec *types.Record, ok bool, err error)
	// Set serializes value into a Record, captures current tag
	// versions, and writes it. Returns the Record actually written.
	Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error)
	// Del removes key, returning true if it existed.
	Del(ctx context.Context, key string) (bool, error)

	// Touch advances every named tag's version to now, retroactively
	// invalidating any Record that captured an older version.
	Touch(ctx context.Context, tagNames []string) error
	// GetTags returns the current version of every named tag,
	// creating any missing tag at version=now.
	GetTags(ctx context.Context, tagNames []string) ([]types.TagVersion, error)
	// IsOutdated reports whether any tag on rec has a current version
	// strictly greater than the version rec captured.
	IsOutdated(ctx context.Context, rec *types.Record) bool

	// LockKey attempts to take key's recompute lock, returning the
	// holder token to present to ReleaseKey and true if acquired.
	LockKey(ctx context.Context, key string) (token string, acquired bool, err error)
	// ReleaseKey releases key's recompute lock if token still matches
	// the current holder; see RawStorage.ReleaseLock.
	ReleaseKey(ctx context.Context, key, token string) (bool, error)
	// KeyIsLocked reports whether key's recompute lock is held.
	KeyIsLocked(ctx context.Context, key string) (bool, error)

	// GetConnectionStatus reports the underlying adapter's connection
	// state.
	GetConnectionStatus() ConnectionStatus
}
