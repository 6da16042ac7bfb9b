package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/cachalot/pkg/bloom"
	"github.com/cuemby/cachalot/pkg/log"
	"github.com/cuemby/cachalot/pkg/manager"
	"github.com/cuemby/cachalot/pkg/storage"
	"github.com/cuemby/cachalot/pkg/types"
)

// DefaultManagerName is the Manager registered automatically when a
// Cache is constructed with a default Storage and no explicit
// managers: a plain Read-Through discipline over that Storage.
const DefaultManagerName = "default"

// Config configures a new Cache.
type Config struct {
	// Storage is the default backend a Cache writes through when no
	// call-site Manager is named. Required.
	Storage storage.Storage
	// DefaultTTL is used by Get/Set calls that specify no ExpiresIn.
	DefaultTTL time.Duration
	// KeyPrefix is prepended to every key before it reaches a Manager,
	// letting several Cache instances safely share one backend.
	KeyPrefix string
	// HashKeys rewrites every prefixed key to its SHA-256 hex digest
	// before it reaches a Manager or Storage, bounding key length and
	// avoiding backend-specific character restrictions.
	HashKeys bool
	// Bloom, if non-nil, is consulted by the default Read-Through
	// Manager and made available to any Manager a Factory chooses to
	// use it.
	Bloom *bloom.Filter
	// Logger overrides the package default logger.
	Logger zerolog.Logger
	// Serializer overrides how Get/Set encode typed payloads into the
	// opaque strings Managers and Storage operate on. Defaults to
	// goccy/go-json.
	Serializer types.Serializer
}

// Cache is cachalot's top-level handle: a registry of named Managers
// sharing a default Storage, Bloom filter, and key-shaping policy.
type Cache struct {
	defaultStorage storage.Storage
	defaultTTL     time.Duration
	keyPrefix      string
	hashKeys       bool
	bloom          *bloom.Filter
	logger         zerolog.Logger
	serializer     types.Serializer

	mu       sync.RWMutex
	managers map[string]manager.Manager
}

// New constructs a Cache and registers DefaultManagerName as a plain
// Read-Through Manager over cfg.Storage.
func New(cfg Config) (*Cache, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("%w: cache requires a default Storage", types.ErrConfiguration)
	}

	logger := cfg.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = log.Logger
	}

	serializer := cfg.Serializer
	if serializer == nil {
		serializer = defaultSerializer
	}

	c := &Cache{
		defaultStorage: cfg.Storage,
		defaultTTL:     cfg.DefaultTTL,
		keyPrefix:      cfg.KeyPrefix,
		hashKeys:       cfg.HashKeys,
		bloom:          cfg.Bloom,
		logger:         logger,
		serializer:     serializer,
		managers:       make(map[string]manager.Manager),
	}

	deps := manager.Dependencies{Storage: cfg.Storage, Bloom: cfg.Bloom, Logger: logger}
	rt, err := manager.NewReadThrough(DefaultManagerName, deps)
	if err != nil {
		return nil, err
	}
	c.managers[DefaultManagerName] = rt

	return c, nil
}

// RegisterManager adds a Manager to the registry under name. instance
// may be a ready-built manager.Manager or a manager.Factory closure
// (accepting either models the "ManagerClass | instance" shape of
// registration). RegisterManager refuses to silently overwrite an
// existing name: on a duplicate name it leaves the registry untouched
// and hands back the Manager already registered there instead of
// constructing or accepting a new one.
func (c *Cache) RegisterManager(name string, instance any) (manager.Manager, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.managers[name]; exists {
		return existing, nil
	}

	switch v := instance.(type) {
	case manager.Manager:
		c.managers[name] = v
		return v, nil
	case manager.Factory:
		deps := manager.Dependencies{Storage: c.defaultStorage, Bloom: c.bloom, Logger: c.logger}
		m, err := v(deps)
		if err != nil {
			return nil, err
		}
		c.managers[name] = m
		return m, nil
	default:
		return nil, fmt.Errorf("%w: RegisterManager expects a manager.Manager or manager.Factory, got %T", types.ErrConfiguration, instance)
	}
}

// resolveManager looks up name, falling back to DefaultManagerName
// when name is empty.
func (c *Cache) resolveManager(name string) (manager.Manager, error) {
	if name == "" {
		name = DefaultManagerName
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.managers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no manager registered as %q", types.ErrConfiguration, name)
	}
	return m, nil
}

// shapeKey applies the configured prefix and, if enabled, the
// SHA-256-hex rewrite described in Config.HashKeys. An empty prefix
// adds no separator, so an unconfigured Cache leaves keys untouched.
func (c *Cache) shapeKey(key string) string {
	shaped := key
	if c.keyPrefix != "" {
		shaped = c.keyPrefix + ":" + key
	}
	if !c.hashKeys {
		return shaped
	}
	sum := sha256.Sum256([]byte(shaped))
	return hex.EncodeToString(sum[:])
}

// Touch advances every named tag's version, retroactively
// invalidating any Record that captured an older version. It always
// operates on the Cache's default Storage: tags are a cross-cutting
// concern shared by every Manager layered over that Storage.
func (c *Cache) Touch(ctx context.Context, tagNames []string) error {
	return c.defaultStorage.Touch(ctx, tagNames)
}

// Del removes key from the named Manager if it implements
// manager.Deleter (today, only Multi-Level); otherwise it falls back
// to the Cache's default Storage.
func (c *Cache) Del(ctx context.Context, key string, managerName string) (bool, error) {
	shaped := c.shapeKey(key)

	m, err := c.resolveManager(managerName)
	if err != nil {
		return false, err
	}

	if d, ok := m.(manager.Deleter); ok {
		return d.Del(ctx, shaped)
	}
	return c.defaultStorage.Del(ctx, shaped)
}

func (c *Cache) effectiveTTL(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return c.defaultTTL
}
