package manager_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/manager"
	"github.com/cuemby/cachalot/pkg/types"
)

func TestWriteThroughSetForcesPermanent(t *testing.T) {
	wt, err := manager.NewWriteThrough("wt", newTestDeps())
	require.NoError(t, err)

	rec, err := wt.Set(context.Background(), "k1", "v1", types.SetOptions{})
	require.NoError(t, err)
	assert.True(t, rec.Permanent)
}

func TestWriteThroughGetIgnoresTagInvalidation(t *testing.T) {
	deps := newTestDeps()
	wt, err := manager.NewWriteThrough("wt", deps)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = wt.Set(ctx, "k1", "v1", types.SetOptions{Tags: types.Tags("users")})
	require.NoError(t, err)

	require.NoError(t, deps.Storage.Touch(ctx, []string{"users"}))

	var calls atomic.Int64
	value, err := wt.Get(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "v2", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "v1", value, "Write-Through Get is a passive accessor and must not notice tag invalidation")
	assert.Equal(t, int64(0), calls.Load())
}

func TestWriteThroughGetMissRecomputes(t *testing.T) {
	wt, err := manager.NewWriteThrough("wt", newTestDeps())
	require.NoError(t, err)

	value, err := wt.Get(context.Background(), "never-set", func(ctx context.Context) (string, error) {
		return "computed", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "computed", value)
}
