package manager_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/manager"
	"github.com/cuemby/cachalot/pkg/types"
)

// TestConcurrentGetsCoalesceIntoOneExecutorRun exercises the stampede
// protection promised by base.recompute: many concurrent Get calls for
// the same never-cached key must invoke the executor exactly once.
func TestConcurrentGetsCoalesceIntoOneExecutorRun(t *testing.T) {
	rt, err := manager.NewReadThrough("rt", newTestDeps())
	require.NoError(t, err)

	var calls atomic.Int64
	const workers = 50

	var wg sync.WaitGroup
	results := make([]string, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			value, err := rt.Get(context.Background(), "stampede-key", func(ctx context.Context) (string, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "computed-once", nil
			}, types.GetOptions{})
			require.NoError(t, err)
			results[idx] = value
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "singleflight must coalesce concurrent same-key callers into one executor run")
	for _, r := range results {
		assert.Equal(t, "computed-once", r)
	}
}

// TestConcurrentGetsDifferentKeysRunIndependently confirms singleflight
// keys by cache key, not globally.
func TestConcurrentGetsDifferentKeysRunIndependently(t *testing.T) {
	rt, err := manager.NewReadThrough("rt", newTestDeps())
	require.NoError(t, err)

	var calls atomic.Int64
	var wg sync.WaitGroup
	wg.Add(2)
	for _, key := range []string{"k1", "k2"} {
		go func(key string) {
			defer wg.Done()
			_, err := rt.Get(context.Background(), key, func(ctx context.Context) (string, error) {
				calls.Add(1)
				return key, nil
			}, types.GetOptions{})
			require.NoError(t, err)
		}(key)
	}
	wg.Wait()

	assert.Equal(t, int64(2), calls.Load())
}
