package manager

import (
	"context"

	"github.com/cuemby/cachalot/pkg/types"
)

// Executor is a caller-supplied, value-producing thunk invoked on a
// cache miss or stale Record. Its result is the opaque, already
// serialized payload; the Cache façade is responsible for turning a
// typed Go value into this string and back.
type Executor func(ctx context.Context) (string, error)

// Manager is a caching discipline: Read-Through, Write-Through,
// Refresh-Ahead, or Multi-Level. The Cache façade dispatches Get/Set
// calls to whichever Manager a GetOptions/SetOptions.Manager names (or
// the façade's default).
type Manager interface {
	// Name identifies this Manager instance in the façade's registry.
	Name() string
	// Get returns a fresh value for key, recomputing it with executor
	// on a miss or stale Record per this Manager's discipline.
	Get(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error)
	// Set writes value for key per this Manager's discipline.
	Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error)
}

// Deleter is implemented by Managers that can remove a key outright
// (today, only Multi-Level). The façade falls back to the default
// Storage's Del when the resolved Manager does not implement it.
type Deleter interface {
	Del(ctx context.Context, key string) (bool, error)
}

// Factory constructs a Manager given the façade's default
// Storage/Bloom/logger — a constructor closure a caller can hand to
// RegisterManager instead of building the Manager itself.
type Factory func(deps Dependencies) (Manager, error)
