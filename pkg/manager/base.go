package manager

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cuemby/cachalot/pkg/bloom"
	"github.com/cuemby/cachalot/pkg/log"
	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/types"
)

// Dependencies bundles everything a Factory needs to construct a
// Manager: the façade's default Storage, its optional Bloom filter,
// and a logger.
type Dependencies struct {
	Storage storage.Storage
	Bloom   *bloom.Filter
	Logger  zerolog.Logger
}

// Default backoff schedule for the waitForResult contention strategy.
const (
	defaultWaitBudget  = 2 * time.Second
	defaultBackoffInit = 5 * time.Millisecond
	defaultBackoffMax  = 200 * time.Millisecond
)

// base is the shared stampede-protection routine embedded by
// Read-Through, Write-Through, and Refresh-Ahead managers.
type base struct {
	name    string
	storage storage.Storage
	bloom   *bloom.Filter
	logger  zerolog.Logger

	sf singleflight.Group

	defaultStrategy types.LockedKeyRetrieveStrategy
	waitBudget      time.Duration
	backoffInit     time.Duration
	backoffMax      time.Duration
}

func newBase(name string, deps Dependencies) base {
	logger := log.WithManager(name)
	if !reflect.ValueOf(deps.Logger).IsZero() {
		logger = deps.Logger.With().Str("manager", name).Logger()
	}
	return base{
		name:        name,
		storage:     deps.Storage,
		bloom:       deps.Bloom,
		logger:      logger,
		waitBudget:  defaultWaitBudget,
		backoffInit: defaultBackoffInit,
		backoffMax:  defaultBackoffMax,
	}
}

func (b *base) Name() string { return b.name }

// recomputeResult is what base.recompute returns: the value seen by
// this caller, and the Record now stored for the key, either written
// by this recompute or observed while waiting on another holder.
// Concurrent singleflight callers share one result. rec is nil when
// no stored Record is known: under RunExecutor, after an exhausted
// wait, or when the write-back failed.
type recomputeResult struct {
	value string
	rec   *types.Record
}

// recompute is the stampede-protected path to a fresh value. It first
// coalesces concurrent same-process callers with an in-process
// singleflight.Group, then arbitrates cross-process contention
// through the distributed per-key lock.
func (b *base) recompute(ctx context.Context, key string, executor Executor, setOpts types.SetOptions, strategy types.LockedKeyRetrieveStrategy) (string, *types.Record, error) {
	res, err, _ := b.sf.Do(key, func() (any, error) {
		return b.recomputeLocked(ctx, key, executor, setOpts, strategy)
	})
	if err != nil {
		return "", nil, err
	}
	rr := res.(recomputeResult)
	return rr.value, rr.rec, nil
}

func (b *base) recomputeLocked(ctx context.Context, key string, executor Executor, setOpts types.SetOptions, strategy types.LockedKeyRetrieveStrategy) (recomputeResult, error) {
	token, acquired, lockErr := b.storage.LockKey(ctx, key)
	if lockErr != nil {
		b.logger.Debug().Err(lockErr).Str("key", key).Msg("lock acquisition failed, degrading to direct executor run")
		acquired = false
		strategy = types.RunExecutor
	}

	if acquired {
		defer func() {
			if _, err := b.storage.ReleaseKey(ctx, key, token); err != nil {
				b.logger.Warn().Err(err).Str("key", key).Msg("failed to release recompute lock")
			}
		}()

		timer := metrics.NewTimer()
		value, err := executor(ctx)
		timer.ObserveDurationVec(metrics.ExecutorDuration, b.name)
		if err != nil {
			return recomputeResult{}, types.NewExecutorError(key, err)
		}

		rec, setErr := b.storage.Set(ctx, key, value, setOpts)
		if setErr != nil {
			b.logger.Warn().Err(setErr).Str("key", key).Msg("failed to write recomputed value")
		}
		if b.bloom != nil {
			b.bloom.Add(key)
		}
		return recomputeResult{value: value, rec: rec}, nil
	}

	switch strategy {
	case types.RunExecutor:
		value, err := executor(ctx)
		if err != nil {
			return recomputeResult{}, types.NewExecutorError(key, err)
		}
		return recomputeResult{value: value}, nil
	default:
		if rec, ok := b.waitForResult(ctx, key); ok {
			return recomputeResult{value: rec.Value, rec: rec}, nil
		}
		value, err := executor(ctx)
		if err != nil {
			return recomputeResult{}, types.NewExecutorError(key, err)
		}
		return recomputeResult{value: value}, nil
	}
}

// waitForResult polls key with exponential backoff until a fresh
// Record appears or the wait budget is exhausted.
func (b *base) waitForResult(ctx context.Context, key string) (*types.Record, bool) {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.LockWaitDuration, b.name)

	deadline := time.Now().Add(b.waitBudget)
	backoff := b.backoffInit

	for time.Now().Before(deadline) {
		rec, ok, err := b.storage.Get(ctx, key)
		if err == nil && ok && b.isFresh(ctx, rec) {
			return rec, true
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > b.backoffMax {
			backoff = b.backoffMax
		}
	}
	return nil, false
}

// isFresh reports whether rec is both time-valid and tag-valid.
func (b *base) isFresh(ctx context.Context, rec *types.Record) bool {
	if rec == nil {
		return false
	}
	if !rec.TimeValid(time.Now()) {
		return false
	}
	return !b.storage.IsOutdated(ctx, rec)
}

// bloomMightContain reports the Bloom pre-check result, defaulting to
// true (proceed to storage) when no filter is configured.
func (b *base) bloomMightContain(key string) bool {
	if b.bloom == nil {
		return true
	}
	might := b.bloom.MightContain(key)
	if might {
		metrics.BloomChecksTotal.WithLabelValues("positive").Inc()
	} else {
		metrics.BloomChecksTotal.WithLabelValues("negative").Inc()
	}
	return might
}
