package manager

import (
	"context"

	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/types"
)

// ReadThrough recomputes on miss or stale and returns whatever is
// currently fresh otherwise. It is the default Manager discipline.
type ReadThrough struct {
	base
}

// NewReadThrough constructs a Read-Through Manager registered under name.
func NewReadThrough(name string, deps Dependencies) (*ReadThrough, error) {
	if deps.Storage == nil {
		return nil, types.ErrConfiguration
	}
	return &ReadThrough{base: newBase(name, deps)}, nil
}

// ReadThroughFactory adapts NewReadThrough to the Factory shape
// expected by Cache.RegisterManager.
func ReadThroughFactory(name string) Factory {
	return func(deps Dependencies) (Manager, error) { return NewReadThrough(name, deps) }
}

var _ Manager = (*ReadThrough)(nil)

func (r *ReadThrough) Get(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	if !r.bloomMightContain(key) {
		metrics.GetTotal.WithLabelValues(r.name, "miss").Inc()
		return r.recomputeAndCount(ctx, key, executor, opts)
	}

	rec, ok, err := r.storage.Get(ctx, key)
	if err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("storage read failed, treating as miss")
	}
	if ok && r.isFresh(ctx, rec) {
		metrics.GetTotal.WithLabelValues(r.name, "hit").Inc()
		return rec.Value, nil
	}

	outcome := "miss"
	if ok {
		outcome = "stale"
	}
	metrics.GetTotal.WithLabelValues(r.name, outcome).Inc()
	return r.recomputeAndCount(ctx, key, executor, opts)
}

func (r *ReadThrough) recomputeAndCount(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	setOpts := types.SetOptions{ExpiresIn: opts.ExpiresIn, Tags: opts.Tags}
	value, _, err := r.recompute(ctx, key, executor, setOpts, opts.LockedKeyRetrieveStrategy)
	return value, err
}

func (r *ReadThrough) Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error) {
	metrics.SetTotal.WithLabelValues(r.name).Inc()
	rec, err := r.storage.Set(ctx, key, value, opts)
	if err != nil {
		return nil, err
	}
	if r.bloom != nil {
		r.bloom.Add(key)
	}
	return rec, nil
}
