package cache

import (
	"context"
	"fmt"

	"github.com/cuemby/cachalot/pkg/types"
)

// Get resolves key against the Manager named by opts (or c's default),
// decoding a hit into a T. On a miss or stale Record, executor is
// invoked to produce a fresh T, which is serialized and written back
// per the resolved Manager's discipline before being returned.
//
// Get is a package-level function rather than a Cache method because
// Go does not allow a method to introduce its own type parameter.
func Get[T any](ctx context.Context, c *Cache, key string, executor func(ctx context.Context) (T, error), opts ...types.GetOption) (T, error) {
	var zero T

	o := types.ApplyGetOptions(opts...)
	o.ExpiresIn = c.effectiveTTL(o.ExpiresIn)

	m, err := c.resolveManager(o.Manager)
	if err != nil {
		return zero, err
	}

	shaped := c.shapeKey(key)

	raw, err := m.Get(ctx, shaped, func(ctx context.Context) (string, error) {
		value, err := executor(ctx)
		if err != nil {
			return "", err
		}
		encoded, err := c.serializer.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("%w: %v", types.ErrSerialization, err)
		}
		return encoded, nil
	}, o)
	if err != nil {
		return zero, err
	}

	var out T
	if err := c.serializer.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return out, nil
}

// Set writes value for key through the Manager named by opts (or c's
// default), encoding value with c's Serializer before it crosses into
// the string-shaped Manager/Storage layers below the façade.
func Set[T any](ctx context.Context, c *Cache, key string, value T, opts ...types.SetOption) (*types.Record, error) {
	o := types.ApplySetOptions(opts...)
	o.ExpiresIn = c.effectiveTTL(o.ExpiresIn)

	m, err := c.resolveManager(o.Manager)
	if err != nil {
		return nil, err
	}

	encoded, err := c.serializer.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}

	shaped := c.shapeKey(key)
	return m.Set(ctx, shaped, encoded, o)
}
