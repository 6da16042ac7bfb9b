package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/storage/memory"
	"github.com/cuemby/cachalot/pkg/types"
)

func newWrapper(t *testing.T) *storage.Wrapper {
	t.Helper()
	return storage.NewWrapper(memory.NewStore(0), time.Minute, 0)
}

func TestWrapperSetThenGet(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	rec, err := w.Set(ctx, "k1", "v1", types.SetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "v1", rec.Value)

	got, ok, err := w.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", got.Value)
	assert.False(t, w.IsOutdated(ctx, got))
}

func TestWrapperGetMissing(t *testing.T) {
	w := newWrapper(t)
	_, ok, err := w.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWrapperPermanentRecordNeverTimeExpires(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	rec, err := w.Set(ctx, "k1", "v1", types.SetOptions{Permanent: true})
	require.NoError(t, err)
	assert.True(t, rec.Permanent)
	assert.True(t, rec.TimeValid(time.Now().Add(24*time.Hour)))
}

func TestWrapperTagVersioningMarksOutdated(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	rec, err := w.Set(ctx, "k1", "v1", types.SetOptions{Tags: types.Tags("users")})
	require.NoError(t, err)
	require.Len(t, rec.Tags, 1)
	assert.False(t, w.IsOutdated(ctx, rec))

	require.NoError(t, w.Touch(ctx, []string{"users"}))

	assert.True(t, w.IsOutdated(ctx, rec), "a Record must become outdated once its tag's version advances")
}

func TestWrapperTouchOnlyAffectsNamedTags(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	rec, err := w.Set(ctx, "k1", "v1", types.SetOptions{Tags: types.Tags("a", "b")})
	require.NoError(t, err)
	other, err := w.Set(ctx, "k2", "v2", types.SetOptions{Tags: types.Tags("b")})
	require.NoError(t, err)

	require.NoError(t, w.Touch(ctx, []string{"a"}))

	assert.True(t, w.IsOutdated(ctx, rec))
	assert.False(t, w.IsOutdated(ctx, other), "a Record whose tags were not touched must stay fresh")
}

func TestWrapperGetTagsCreatesMissingTagAtNow(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	versions, err := w.GetTags(ctx, []string{"fresh-tag"})
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "fresh-tag", versions[0].Name)
	assert.NotZero(t, versions[0].Version)
}

func TestWrapperDelRemovesKey(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()
	_, err := w.Set(ctx, "k1", "v1", types.SetOptions{})
	require.NoError(t, err)

	ok, err := w.Del(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, _ = w.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestWrapperLockDelegatesToRawStorage(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	token, acquired, err := w.LockKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NotEmpty(t, token)

	locked, err := w.KeyIsLocked(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, locked)

	released, err := w.ReleaseKey(ctx, "k1", token)
	require.NoError(t, err)
	assert.True(t, released)

	locked, err = w.KeyIsLocked(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestWrapperReleaseKeyRejectsStaleToken(t *testing.T) {
	w := newWrapper(t)
	ctx := context.Background()

	_, acquired, err := w.LockKey(ctx, "k1")
	require.NoError(t, err)
	require.True(t, acquired)

	released, err := w.ReleaseKey(ctx, "k1", "not-the-real-token")
	require.NoError(t, err)
	assert.False(t, released, "a stale or forged token must never release someone else's lock")

	locked, err := w.KeyIsLocked(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, locked, "the real holder's lock must still be held after a rejected release")
}

func TestWrapperConnectionStatus(t *testing.T) {
	w := newWrapper(t)
	assert.Equal(t, storage.Connected, w.GetConnectionStatus())
}
