package types

import "time"

// LockedKeyRetrieveStrategy selects what a caller does when it loses
// the race to acquire a key's recompute lock.
type LockedKeyRetrieveStrategy int

const (
	// WaitForResult polls the store with backoff until a fresh Record
	// appears or the wait budget is exhausted, then falls back to
	// running the executor locally. This is the default.
	WaitForResult LockedKeyRetrieveStrategy = iota
	// RunExecutor runs the executor immediately without waiting and
	// without writing the result back, leaving the store to the lock
	// holder.
	RunExecutor
)

// FallbackStrategy selects Multi-Level Manager behavior when every
// tier misses.
type FallbackStrategy int

const (
	// FallbackExecutor runs the executor and populates every enabled
	// level with the result.
	FallbackExecutor FallbackStrategy = iota
	// FallbackNextLevel is reserved for a future chained-loader
	// extension; today it behaves identically to FallbackExecutor.
	FallbackNextLevel
	// FallbackFail returns ErrCacheMiss instead of invoking the executor.
	FallbackFail
)

// TagProducer resolves to a list of tag names. Options hold a
// TagProducer: Tags wraps a literal slice into one, and a custom
// producer computes the list when the Record is written.
type TagProducer func() []string

// Tags normalizes a literal tag slice into a TagProducer.
func Tags(names ...string) TagProducer {
	return func() []string { return names }
}

// GetOptions configures a Manager.Get / Cache.Get call.
type GetOptions struct {
	// ExpiresIn is used only if the call ends up writing a fresh
	// Record (miss or stale). Zero means "use the cache's default TTL".
	ExpiresIn time.Duration
	// Tags resolves the tag set a freshly-written Record should carry.
	Tags TagProducer
	// Manager selects a registered Manager by name; empty uses the
	// façade's default.
	Manager string
	// LockedKeyRetrieveStrategy overrides the manager's default
	// contention behavior for this call.
	LockedKeyRetrieveStrategy LockedKeyRetrieveStrategy
}

// GetOption mutates a GetOptions in place; used for the façade's
// functional-option constructors.
type GetOption func(*GetOptions)

// SetOptions configures a Manager.Set / Cache.Set call.
type SetOptions struct {
	ExpiresIn time.Duration
	Tags      TagProducer
	Manager   string
	// Permanent disables time-based expiration for the written
	// Record; Write-Through managers always force this true.
	Permanent bool
}

// SetOption mutates a SetOptions in place.
type SetOption func(*SetOptions)

// WithExpiresIn sets the TTL for a Get call.
func WithExpiresIn(d time.Duration) GetOption {
	return func(o *GetOptions) { o.ExpiresIn = d }
}

// WithTags attaches a literal tag list to a Get call.
func WithTags(names ...string) GetOption {
	return func(o *GetOptions) { o.Tags = Tags(names...) }
}

// WithManager selects a non-default registered Manager for a Get call.
func WithManager(name string) GetOption {
	return func(o *GetOptions) { o.Manager = name }
}

// WithLockedKeyRetrieveStrategy overrides the contention strategy.
func WithLockedKeyRetrieveStrategy(s LockedKeyRetrieveStrategy) GetOption {
	return func(o *GetOptions) { o.LockedKeyRetrieveStrategy = s }
}

// SetExpiresIn sets the TTL for a Set call.
func SetExpiresIn(d time.Duration) SetOption {
	return func(o *SetOptions) { o.ExpiresIn = d }
}

// SetTags attaches a literal tag list to a Set call.
func SetTags(names ...string) SetOption {
	return func(o *SetOptions) { o.Tags = Tags(names...) }
}

// SetManager selects a non-default registered Manager for a Set call.
func SetManager(name string) SetOption {
	return func(o *SetOptions) { o.Manager = name }
}

// SetPermanent forces the written Record to never time-expire.
func SetPermanent(v bool) SetOption {
	return func(o *SetOptions) { o.Permanent = v }
}

// ApplyGetOptions folds a list of GetOption into a GetOptions value.
func ApplyGetOptions(opts ...GetOption) GetOptions {
	var o GetOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// ApplySetOptions folds a list of SetOption into a SetOptions value.
func ApplySetOptions(opts ...SetOption) SetOptions {
	var o SetOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
