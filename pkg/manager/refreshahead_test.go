package manager_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/manager"
	"github.com/cuemby/cachalot/pkg/types"
)

func TestNewRefreshAheadRejectsOutOfRangeFactor(t *testing.T) {
	_, err := manager.NewRefreshAhead("ra", newTestDeps(), 1.5)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = manager.NewRefreshAhead("ra", newTestDeps(), 0)
	assert.NoError(t, err, "0 must select DefaultRefreshAheadFactor rather than error")
}

func TestRefreshAheadReturnsCurrentValueBeforeWindow(t *testing.T) {
	ra, err := manager.NewRefreshAhead("ra", newTestDeps(), 0.8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ra.Set(ctx, "k1", "v1", types.SetOptions{ExpiresIn: time.Hour})
	require.NoError(t, err)

	value, err := ra.Get(ctx, "k1", func(ctx context.Context) (string, error) {
		t.Fatal("executor must not run for a Record well inside its freshness window")
		return "", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "v1", value)
}

func TestRefreshAheadTriggersBackgroundRefreshPastWindow(t *testing.T) {
	ra, err := manager.NewRefreshAhead("ra", newTestDeps(), 0.5)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ra.Set(ctx, "k1", "v0", types.SetOptions{ExpiresIn: 40 * time.Millisecond})
	require.NoError(t, err)

	// Past the 50% refresh window but still time-valid.
	time.Sleep(25 * time.Millisecond)

	var calls atomic.Int64
	refreshed := make(chan struct{})
	value, err := ra.Get(ctx, "k1", func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(refreshed)
		return "v1", nil
	}, types.GetOptions{ExpiresIn: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "v0", value, "the synchronous caller must see the still-fresh value, not the refreshed one")

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("background refresh executor was never invoked")
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestRefreshAheadMissRecomputesSynchronously(t *testing.T) {
	ra, err := manager.NewRefreshAhead("ra", newTestDeps(), 0.8)
	require.NoError(t, err)

	value, err := ra.Get(context.Background(), "never-set", func(ctx context.Context) (string, error) {
		return "computed", nil
	}, types.GetOptions{})

	require.NoError(t, err)
	assert.Equal(t, "computed", value)
}
