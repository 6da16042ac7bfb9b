package manager

import (
	"context"

	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/types"
)

// WriteThrough always writes permanent Records and never checks tag
// or time freshness on Get: the application is trusted to keep the
// cache current via Set/Touch. Get is a passive accessor that only
// recomputes on a true miss.
//
// This means a WriteThrough Get can return a value that a Touch has
// logically invalidated — preserved here deliberately rather than
// silently tightened into a Read-Through-style recheck.
type WriteThrough struct {
	base
}

// NewWriteThrough constructs a Write-Through Manager registered under name.
func NewWriteThrough(name string, deps Dependencies) (*WriteThrough, error) {
	if deps.Storage == nil {
		return nil, types.ErrConfiguration
	}
	return &WriteThrough{base: newBase(name, deps)}, nil
}

// WriteThroughFactory adapts NewWriteThrough to the Factory shape.
func WriteThroughFactory(name string) Factory {
	return func(deps Dependencies) (Manager, error) { return NewWriteThrough(name, deps) }
}

var _ Manager = (*WriteThrough)(nil)

func (w *WriteThrough) Get(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	if !w.bloomMightContain(key) {
		metrics.GetTotal.WithLabelValues(w.name, "miss").Inc()
		return w.recomputeAndCount(ctx, key, executor, opts)
	}

	rec, ok, err := w.storage.Get(ctx, key)
	if err != nil {
		w.logger.Debug().Err(err).Str("key", key).Msg("storage read failed, treating as miss")
	}
	if ok && rec.Value != "" {
		metrics.GetTotal.WithLabelValues(w.name, "hit").Inc()
		return rec.Value, nil
	}

	metrics.GetTotal.WithLabelValues(w.name, "miss").Inc()
	return w.recomputeAndCount(ctx, key, executor, opts)
}

func (w *WriteThrough) recomputeAndCount(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	setOpts := types.SetOptions{ExpiresIn: opts.ExpiresIn, Tags: opts.Tags, Permanent: true}
	value, _, err := w.recompute(ctx, key, executor, setOpts, opts.LockedKeyRetrieveStrategy)
	return value, err
}

func (w *WriteThrough) Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error) {
	opts.Permanent = true
	metrics.SetTotal.WithLabelValues(w.name).Inc()
	rec, err := w.storage.Set(ctx, key, value, opts)
	if err != nil {
		return nil, err
	}
	if w.bloom != nil {
		w.bloom.Add(key)
	}
	return rec, nil
}
