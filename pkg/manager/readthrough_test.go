package manager_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/manager"
	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/storage/memory"
	"github.com/cuemby/cachalot/pkg/types"
)

func newTestDeps() manager.Dependencies {
	wrapped := storage.NewWrapper(memory.NewStore(0), time.Minute, 0)
	return manager.Dependencies{Storage: wrapped}
}

func TestReadThroughMissInvokesExecutor(t *testing.T) {
	rt, err := manager.NewReadThrough("rt", newTestDeps())
	require.NoError(t, err)

	var calls atomic.Int64
	value, err := rt.Get(context.Background(), "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "computed", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "computed", value)
	assert.Equal(t, int64(1), calls.Load())
}

func TestReadThroughHitSkipsExecutor(t *testing.T) {
	deps := newTestDeps()
	rt, err := manager.NewReadThrough("rt", deps)
	require.NoError(t, err)

	_, err = rt.Set(context.Background(), "k1", "cached", types.SetOptions{})
	require.NoError(t, err)

	var calls atomic.Int64
	value, err := rt.Get(context.Background(), "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "should-not-run", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "cached", value)
	assert.Equal(t, int64(0), calls.Load())
}

func TestReadThroughExpiredRecordRecomputes(t *testing.T) {
	rt, err := manager.NewReadThrough("rt", newTestDeps())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = rt.Set(ctx, "k1", "stale", types.SetOptions{ExpiresIn: 10 * time.Millisecond})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	value, err := rt.Get(ctx, "k1", func(ctx context.Context) (string, error) {
		return "fresh", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "fresh", value)
}

func TestReadThroughExecutorErrorWrapsExecutorError(t *testing.T) {
	rt, err := manager.NewReadThrough("rt", newTestDeps())
	require.NoError(t, err)

	wantErr := assert.AnError
	_, err = rt.Get(context.Background(), "k1", func(ctx context.Context) (string, error) {
		return "", wantErr
	}, types.GetOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExecutor)
}

func TestReadThroughTouchedTagInvalidatesRecord(t *testing.T) {
	deps := newTestDeps()
	rt, err := manager.NewReadThrough("rt", deps)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = rt.Set(ctx, "k1", "v1", types.SetOptions{Tags: types.Tags("users")})
	require.NoError(t, err)

	require.NoError(t, deps.Storage.Touch(ctx, []string{"users"}))

	var calls atomic.Int64
	value, err := rt.Get(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v2", nil
	}, types.GetOptions{Tags: types.Tags("users")})

	require.NoError(t, err)
	assert.Equal(t, "v2", value)
	assert.Equal(t, int64(1), calls.Load())
}

func TestNewReadThroughRequiresStorage(t *testing.T) {
	_, err := manager.NewReadThrough("rt", manager.Dependencies{})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
