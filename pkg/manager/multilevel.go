package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/cachalot/pkg/bloom"
	"github.com/cuemby/cachalot/pkg/log"
	"github.com/cuemby/cachalot/pkg/metrics"
	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/types"
)

// LevelConfig describes one tier of a Multi-Level Manager.
type LevelConfig struct {
	Name     string
	Storage  storage.RawStorage
	Priority int
	// TTL overrides options.ExpiresIn for writes to this level when
	// set; the tier TTL always wins, even when the caller requested
	// SetOptions.Permanent.
	TTL     time.Duration
	Enabled bool
}

// level is a LevelConfig plus its runtime counters.
type level struct {
	name     string
	storage  storage.RawStorage
	priority int
	ttl      time.Duration
	enabled  atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	dels   atomic.Int64
}

// LevelInfo is the static configuration returned by GetLevels.
type LevelInfo struct {
	Name     string
	Priority int
	TTL      time.Duration
	Enabled  bool
}

// LevelStats is the per-level counters returned by GetLevelStats and
// GetMetrics — the two are treated as synonyms rather than given
// distinct shapes.
type LevelStats struct {
	Name    string
	Hits    int64
	Misses  int64
	Sets    int64
	Dels    int64
	Enabled bool
}

// MultiLevelManager composes ordered storage tiers, warming
// higher-priority tiers on a lower-tier hit and falling back to the
// executor (or failing) when every tier misses.
type MultiLevelManager struct {
	name     string
	levels   []*level
	fallback types.FallbackStrategy
	bloom    *bloom.Filter
	logger   zerolog.Logger

	mu sync.RWMutex // guards enable/disable against concurrent GetLevels/Get
}

// NewMultiLevel constructs a Multi-Level Manager. levels must be
// non-empty; they are sorted ascending by Priority and kept sorted.
func NewMultiLevel(name string, levels []LevelConfig, fallback types.FallbackStrategy, bloomFilter *bloom.Filter) (*MultiLevelManager, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: multi-level manager %q needs at least one level", types.ErrConfiguration, name)
	}

	m := &MultiLevelManager{
		name:     name,
		fallback: fallback,
		bloom:    bloomFilter,
		logger:   log.WithManager(name),
	}

	for _, cfg := range levels {
		if cfg.Storage == nil {
			return nil, fmt.Errorf("%w: level %q has no storage", types.ErrConfiguration, cfg.Name)
		}
		lvl := &level{
			name:     cfg.Name,
			storage:  cfg.Storage,
			priority: cfg.Priority,
			ttl:      cfg.TTL,
		}
		lvl.enabled.Store(cfg.Enabled)
		m.levels = append(m.levels, lvl)
	}

	sort.SliceStable(m.levels, func(i, j int) bool { return m.levels[i].priority < m.levels[j].priority })

	return m, nil
}

// MultiLevelFactory adapts NewMultiLevel to the Factory shape. The
// Dependencies.Storage/Bloom fields from the façade are ignored in
// favor of the explicit levels/fallback/bloomFilter given here, since
// a Multi-Level Manager owns its own tiers rather than the façade's
// single default Storage.
func MultiLevelFactory(name string, levels []LevelConfig, fallback types.FallbackStrategy, bloomFilter *bloom.Filter) Factory {
	return func(Dependencies) (Manager, error) {
		return NewMultiLevel(name, levels, fallback, bloomFilter)
	}
}

var _ Manager = (*MultiLevelManager)(nil)
var _ Deleter = (*MultiLevelManager)(nil)

func (m *MultiLevelManager) Name() string { return m.name }

func (m *MultiLevelManager) Get(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.bloom != nil && !m.bloom.MightContain(key) {
		metrics.GetTotal.WithLabelValues(m.name, "miss").Inc()
		return m.fallbackGet(ctx, key, executor, opts)
	}

	for i, lvl := range m.levels {
		if !lvl.enabled.Load() {
			continue
		}

		value, ok, err := lvl.storage.Get(ctx, key)
		if err != nil || !ok {
			lvl.misses.Add(1)
			metrics.TierOpsTotal.WithLabelValues(lvl.name, "miss").Inc()
			continue
		}

		lvl.hits.Add(1)
		metrics.TierOpsTotal.WithLabelValues(lvl.name, "hit").Inc()
		m.warmHigherLevels(ctx, i, key, value, opts)

		if m.bloom != nil {
			m.bloom.Add(key)
		}
		metrics.GetTotal.WithLabelValues(m.name, "hit").Inc()
		return value, nil
	}

	metrics.GetTotal.WithLabelValues(m.name, "miss").Inc()
	return m.fallbackGet(ctx, key, executor, opts)
}

// warmHigherLevels writes value to every enabled level with priority
// strictly higher than the hit (i.e. every index below i in the
// sorted slice), using that level's own TTL if set else
// opts.ExpiresIn. A failed warm write is logged, not retried.
func (m *MultiLevelManager) warmHigherLevels(ctx context.Context, hitIndex int, key, value string, opts types.GetOptions) {
	for j := 0; j < hitIndex; j++ {
		hl := m.levels[j]
		if !hl.enabled.Load() {
			continue
		}

		ttl := hl.ttl
		if ttl <= 0 {
			ttl = opts.ExpiresIn
		}

		if _, err := hl.storage.Set(ctx, key, value, ttl); err != nil {
			m.logger.Warn().Err(err).Str("key", key).Str("level", hl.name).Msg("failed to warm higher-priority level")
			metrics.TierOpsTotal.WithLabelValues(hl.name, "warm_fail").Inc()
			continue
		}
		hl.sets.Add(1)
		metrics.TierOpsTotal.WithLabelValues(hl.name, "warm").Inc()
	}
}

func (m *MultiLevelManager) fallbackGet(ctx context.Context, key string, executor Executor, opts types.GetOptions) (string, error) {
	if m.fallback == types.FallbackFail {
		return "", types.ErrCacheMiss
	}

	// FallbackExecutor and FallbackNextLevel behave identically today;
	// FallbackNextLevel is reserved for a future chained-loader.
	value, err := executor(ctx)
	if err != nil {
		return "", types.NewExecutorError(key, err)
	}

	m.setAll(ctx, key, value, opts.ExpiresIn)
	if m.bloom != nil {
		m.bloom.Add(key)
	}
	return value, nil
}

func (m *MultiLevelManager) Set(ctx context.Context, key, value string, opts types.SetOptions) (*types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics.SetTotal.WithLabelValues(m.name).Inc()
	m.setAll(ctx, key, value, opts.ExpiresIn)

	return &types.Record{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now().UnixMilli(),
		ExpiresIn: opts.ExpiresIn.Milliseconds(),
		Permanent: opts.Permanent,
	}, nil
}

// setAll writes value to every enabled level, using each level's own
// TTL if set else fallbackTTL. The tier TTL always wins, even when the
// caller asked for a permanent write.
func (m *MultiLevelManager) setAll(ctx context.Context, key, value string, fallbackTTL time.Duration) {
	for _, lvl := range m.levels {
		if !lvl.enabled.Load() {
			continue
		}

		ttl := lvl.ttl
		if ttl <= 0 {
			ttl = fallbackTTL
		}

		ok, err := lvl.storage.Set(ctx, key, value, ttl)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Str("level", lvl.name).Msg("failed to set level")
			metrics.TierOpsTotal.WithLabelValues(lvl.name, "set_fail").Inc()
			continue
		}
		if ok {
			lvl.sets.Add(1)
			metrics.TierOpsTotal.WithLabelValues(lvl.name, "set").Inc()
		}
	}
}

func (m *MultiLevelManager) Del(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var anySuccess bool
	for _, lvl := range m.levels {
		if !lvl.enabled.Load() {
			continue
		}
		ok, err := lvl.storage.Del(ctx, key)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Str("level", lvl.name).Msg("failed to delete from level")
			continue
		}
		if ok {
			anySuccess = true
			lvl.dels.Add(1)
			metrics.TierOpsTotal.WithLabelValues(lvl.name, "del").Inc()
		}
	}
	return anySuccess, nil
}

// GetLevels returns each level's static configuration, in priority order.
func (m *MultiLevelManager) GetLevels() []LevelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LevelInfo, len(m.levels))
	for i, lvl := range m.levels {
		out[i] = LevelInfo{Name: lvl.name, Priority: lvl.priority, TTL: lvl.ttl, Enabled: lvl.enabled.Load()}
	}
	return out
}

// EnableLevel enables the named level, returning an error if no level
// has that name.
func (m *MultiLevelManager) EnableLevel(name string) error {
	return m.setLevelEnabled(name, true)
}

// DisableLevel disables the named level, returning an error if no
// level has that name.
func (m *MultiLevelManager) DisableLevel(name string) error {
	return m.setLevelEnabled(name, false)
}

func (m *MultiLevelManager) setLevelEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, lvl := range m.levels {
		if lvl.name == name {
			lvl.enabled.Store(enabled)
			return nil
		}
	}
	return fmt.Errorf("%w: no level named %q", types.ErrConfiguration, name)
}

// GetLevelStats returns per-level counters keyed by level name.
func (m *MultiLevelManager) GetLevelStats() map[string]LevelStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]LevelStats, len(m.levels))
	for _, lvl := range m.levels {
		out[lvl.name] = LevelStats{
			Name:    lvl.name,
			Hits:    lvl.hits.Load(),
			Misses:  lvl.misses.Load(),
			Sets:    lvl.sets.Load(),
			Dels:    lvl.dels.Load(),
			Enabled: lvl.enabled.Load(),
		}
	}
	return out
}

// GetMetrics is a documented synonym for GetLevelStats.
func (m *MultiLevelManager) GetMetrics() map[string]LevelStats {
	return m.GetLevelStats()
}
