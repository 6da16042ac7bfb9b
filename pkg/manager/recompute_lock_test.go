package manager

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/storage/memory"
	"github.com/cuemby/cachalot/pkg/types"
)

// These tests drive recomputeLocked's acquired==false branch directly,
// simulating a real cross-process lock holder by acquiring the
// distributed lock out from under the base before calling it — the
// in-process singleflight layer that base_test.go exercises never
// enters this branch, since it only ever sees one goroutine reach the
// lock per key.

func TestRecomputeLockedRunExecutorSkipsWaitAndWriteWhenLockHeld(t *testing.T) {
	wrapped := storage.NewWrapper(memory.NewStore(0), time.Minute, 5*time.Second)
	b := newBase("contended", Dependencies{Storage: wrapped})
	ctx := context.Background()

	token, acquired, err := wrapped.LockKey(ctx, "k1")
	require.NoError(t, err)
	require.True(t, acquired, "sanity: the external holder must acquire the lock first")
	defer wrapped.ReleaseKey(ctx, "k1", token)

	var calls atomic.Int64
	start := time.Now()
	rr, err := b.recomputeLocked(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "computed-by-run-executor", nil
	}, types.SetOptions{}, types.RunExecutor)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 100*time.Millisecond, "RunExecutor must not wait on a contended lock")
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "computed-by-run-executor", rr.value)
	assert.Nil(t, rr.rec, "RunExecutor must not write its result back while another holder owns the lock")

	_, ok, _ := wrapped.Get(ctx, "k1")
	assert.False(t, ok, "RunExecutor's local result must never reach Storage")
}

func TestRecomputeLockedWaitForResultFallsThroughAfterBudgetExhausted(t *testing.T) {
	wrapped := storage.NewWrapper(memory.NewStore(0), time.Minute, 5*time.Second)
	b := newBase("contended", Dependencies{Storage: wrapped})
	b.waitBudget = 40 * time.Millisecond
	b.backoffInit = 5 * time.Millisecond
	b.backoffMax = 10 * time.Millisecond
	ctx := context.Background()

	token, acquired, err := wrapped.LockKey(ctx, "k1")
	require.NoError(t, err)
	require.True(t, acquired)
	defer wrapped.ReleaseKey(ctx, "k1", token)
	// Deliberately never write a Record for k1 while the lock is held:
	// the external holder models a stalled recompute, so waitForResult
	// must exhaust its budget rather than ever observe a fresh value.

	var calls atomic.Int64
	start := time.Now()
	rr, err := b.recomputeLocked(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "computed-after-wait", nil
	}, types.SetOptions{}, types.WaitForResult)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), b.waitBudget, "must actually wait out the budget before falling through")
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "computed-after-wait", rr.value)
	assert.Nil(t, rr.rec, "falling through after an exhausted wait must not write the value back either")

	_, ok, _ := wrapped.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestRecomputeLockedWaitForResultReturnsHolderWrittenValue(t *testing.T) {
	wrapped := storage.NewWrapper(memory.NewStore(0), time.Minute, 5*time.Second)
	b := newBase("contended", Dependencies{Storage: wrapped})
	b.waitBudget = 2 * time.Second
	b.backoffInit = 5 * time.Millisecond
	b.backoffMax = 20 * time.Millisecond
	ctx := context.Background()

	token, acquired, err := wrapped.LockKey(ctx, "k1")
	require.NoError(t, err)
	require.True(t, acquired)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = wrapped.Set(ctx, "k1", "computed-by-holder", types.SetOptions{})
		_, _ = wrapped.ReleaseKey(ctx, "k1", token)
	}()

	var calls atomic.Int64
	rr, err := b.recomputeLocked(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "must-not-run", nil
	}, types.SetOptions{}, types.WaitForResult)
	require.NoError(t, err)

	assert.Equal(t, int64(0), calls.Load(), "a caller that observes the holder's write must not run its own executor")
	assert.Equal(t, "computed-by-holder", rr.value)
	require.NotNil(t, rr.rec)
	assert.Equal(t, "computed-by-holder", rr.rec.Value)
}
