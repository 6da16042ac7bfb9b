package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cuemby/cachalot/pkg/types"
)

const tagKeyPrefix = "tag:"

// Wrapper composes a RawStorage with the Record/Tag discipline: it
// serializes the Record envelope, attaches current tag versions on
// write, and evaluates staleness on read.
type Wrapper struct {
	raw        RawStorage
	defaultTTL time.Duration
	lockExpire time.Duration
	now        func() time.Time
}

// NewWrapper builds a Storage over the given RawStorage. defaultTTL is
// used whenever a caller omits SetOptions.ExpiresIn; lockExpire bounds
// the TTL of per-key recompute locks.
func NewWrapper(raw RawStorage, defaultTTL, lockExpire time.Duration) *Wrapper {
	if lockExpire <= 0 {
		lockExpire = DefaultLockExpire
	}
	return &Wrapper{raw: raw, defaultTTL: defaultTTL, lockExpire: lockExpire, now: time.Now}
}

var _ Storage = (*Wrapper)(nil)

func (w *Wrapper) Get(ctx context.Context, key string) (*types.Record, bool, error) {
	raw, ok, err := w.raw.Get(ctx, key)
	if err != nil {
		return nil, false, types.ErrTransientStorage(err)
	}
	if !ok {
		return nil, false, nil
	}

	var rec types.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return &rec, true, nil
}

func (w *Wrapper) Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error) {
	now := w.now()

	var tagNames []string
	if opts.Tags != nil {
		tagNames = opts.Tags()
	}
	tagVersions, err := w.GetTags(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 && !opts.Permanent {
		expiresIn = w.defaultTTL
	}

	rec := &types.Record{
		Key:       key,
		Value:     value,
		CreatedAt: now.UnixMilli(),
		ExpiresIn: expiresIn.Milliseconds(),
		Permanent: opts.Permanent,
		Tags:      tagVersions,
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}

	rawTTL := expiresIn
	if opts.Permanent {
		rawTTL = 0
	}
	if _, err := w.raw.Set(ctx, key, string(encoded), rawTTL); err != nil {
		return nil, types.ErrTransientStorage(err)
	}

	return rec, nil
}

func (w *Wrapper) Del(ctx context.Context, key string) (bool, error) {
	ok, err := w.raw.Del(ctx, key)
	if err != nil {
		return false, types.ErrTransientStorage(err)
	}
	return ok, nil
}

func (w *Wrapper) Touch(ctx context.Context, tagNames []string) error {
	now := w.now().UnixMilli()
	for _, name := range tagNames {
		// A tag touched within the same millisecond as its current
		// version still advances, so Records that captured that
		// version become outdated.
		version := now
		if raw, ok, err := w.raw.Get(ctx, tagKeyPrefix+name); err == nil && ok {
			if current, perr := strconv.ParseInt(raw, 10, 64); perr == nil && current >= version {
				version = current + 1
			}
		}
		if _, err := w.raw.Set(ctx, tagKeyPrefix+name, strconv.FormatInt(version, 10), 0); err != nil {
			return types.ErrTransientStorage(err)
		}
	}
	return nil
}

func (w *Wrapper) GetTags(ctx context.Context, tagNames []string) ([]types.TagVersion, error) {
	if len(tagNames) == 0 {
		return nil, nil
	}

	now := w.now().UnixMilli()
	versions := make([]types.TagVersion, 0, len(tagNames))

	for _, name := range tagNames {
		raw, ok, err := w.raw.Get(ctx, tagKeyPrefix+name)
		if err != nil {
			return nil, types.ErrTransientStorage(err)
		}
		if !ok {
			// Vacuum-fill: a tag that has never been touched is
			// created at version=now so future Touch calls have a
			// baseline to exceed.
			if _, err := w.raw.Set(ctx, tagKeyPrefix+name, strconv.FormatInt(now, 10), 0); err != nil {
				return nil, types.ErrTransientStorage(err)
			}
			versions = append(versions, types.TagVersion{Name: name, Version: now})
			continue
		}

		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %s has non-numeric version %q", types.ErrSerialization, name, raw)
		}
		versions = append(versions, types.TagVersion{Name: name, Version: version})
	}

	return versions, nil
}

func (w *Wrapper) IsOutdated(ctx context.Context, rec *types.Record) bool {
	if rec == nil {
		return true
	}
	for _, tag := range rec.Tags {
		raw, ok, err := w.raw.Get(ctx, tagKeyPrefix+tag.Name)
		if err != nil || !ok {
			continue
		}
		current, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if current > tag.Version {
			return true
		}
	}
	return false
}

func (w *Wrapper) LockKey(ctx context.Context, key string) (string, bool, error) {
	token, ok, err := w.raw.AcquireLock(ctx, key, w.lockExpire)
	if err != nil {
		return "", false, types.ErrTransientStorage(err)
	}
	return token, ok, nil
}

func (w *Wrapper) ReleaseKey(ctx context.Context, key, token string) (bool, error) {
	ok, err := w.raw.ReleaseLock(ctx, key, token)
	if err != nil {
		return false, types.ErrTransientStorage(err)
	}
	return ok, nil
}

func (w *Wrapper) KeyIsLocked(ctx context.Context, key string) (bool, error) {
	ok, err := w.raw.IsLockExists(ctx, key)
	if err != nil {
		return false, types.ErrTransientStorage(err)
	}
	return ok, nil
}

func (w *Wrapper) GetConnectionStatus() ConnectionStatus {
	return w.raw.GetConnectionStatus()
}
