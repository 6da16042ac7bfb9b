package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/types"
)

// DefaultRefreshAheadFactor is used when NewRefreshAhead is given 0.
const DefaultRefreshAheadFactor = 0.8

// refreshLockPrefix derives the background-refresh lock key from a
// cache key so it never collides with the primary recompute lock.
const refreshLockPrefix = "refreshAhead:"

// RefreshAhead behaves like Read-Through but, when a Record is still
// fresh yet has crossed its refresh window (createdAt + expiresIn *
// factor), fires an asynchronous background refresh. The synchronous
// caller always receives the currently-fresh value; the refresh
// happens out of band and its errors are logged and swallowed.
type RefreshAhead struct {
	base
	factor float64
}

// NewRefreshAhead constructs a Refresh-Ahead Manager. factor must lie
// in (0, 1); 0 selects DefaultRefreshAheadFactor.
func NewRefreshAhead(name string, deps Dependencies, factor float64) (*RefreshAhead, error) {
	if deps.Storage == nil {
		return nil, types.ErrConfiguration
	}
	if factor == 0 {
		factor = DefaultRefreshAheadFactor
	}
	if factor <= 0 || factor >= 1 {
		return nil, fmt.Errorf("%w: refreshAheadFactor must be in (0,1), got %v", types.ErrConfiguration, factor)
	}
	return &RefreshAhead{base: newBase(name, deps), factor: factor}, nil
}

// RefreshAheadFactory adapts NewRefreshAhead to the Factory shape.
func RefreshAheadFactory(name string, factor float64) Factory {
	return func(deps Dependencies) (Manager, error) { return NewRefreshAhead(name, deps, factor) }
}

var _ Manager = (*RefreshAhead)(nil)

func (r *RefreshAhead) Get(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
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
		if rec.RefreshDue(time.Now(), r.factor) {
			r.triggerBackgroundRefresh(key, executor, opts)
		}
		return rec.Value, nil
	}

	outcome := "miss"
	if ok {
		outcome = "stale"
	}
	metrics.GetTotal.WithLabelValues(r.name, outcome).Inc()
	return r.recomputeAndCount(ctx, key, executor, opts)
}

func (r *RefreshAhead) recomputeAndCount(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	setOpts := types.SetOptions{ExpiresIn: opts.ExpiresIn, Tags: opts.Tags}
	value, _, err := r.recompute(ctx, key, executor, setOpts, opts.LockedKeyRetrieveStrategy)
	return value, err
}

// triggerBackgroundRefresh attempts the refreshAhead:<key> lock and,
// if acquired, runs executor and overwrites the Record. It never
// blocks the caller and never propagates an error; at most one
// background refresh per key can be in flight at a time because the
// lock itself arbitrates that.
func (r *RefreshAhead) triggerBackgroundRefresh(key string, executor Executor, opts types.GetOptions) {
	go func() {
		ctx := context.Background()
		lockKey := refreshLockPrefix + key

		token, acquired, err := r.storage.LockKey(ctx, lockKey)
		if err != nil || !acquired {
			return
		}
		defer func() {
			if _, relErr := r.storage.ReleaseKey(ctx, lockKey, token); relErr != nil {
				r.logger.Warn().Err(relErr).Str("key", key).Msg("failed to release refresh-ahead lock")
			}
		}()

		value, err := executor(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("background refresh-ahead executor failed")
			return
		}

		setOpts := types.SetOptions{ExpiresIn: opts.ExpiresIn, Tags: opts.Tags}
		if _, err := r.storage.Set(ctx, key, value, setOpts); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("background refresh-ahead write failed")
			return
		}
		metrics.RefreshAheadTriggeredTotal.Inc()
	}()
}

func (r *RefreshAhead) Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error) {
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
