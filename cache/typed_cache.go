package cache

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-typed-cache/internal/cacheinfra"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// TypedCache is a concurrency safe store for values of unrelated types.
// Values are stored with the type they were set as and can only be read
// back as exactly that type. The zero value is not usable; create
// instances with New or NewWithConfig and share them by pointer.
type TypedCache struct {
	id      string
	cfg     Config
	logger  *slog.Logger
	store   *cacheinfra.Store
	stats   *counters
	flights *xsync.MapOf[reflect.Type, *singleflight.Group]
}

// New returns an empty cache using DefaultConfig.
func New() *TypedCache {
	// DefaultConfig always validates
	c, _ := NewWithConfig(DefaultConfig())
	return c
}

// NewWithConfig validates cfg and returns an empty cache.
func NewWithConfig(cfg Config) (*TypedCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &TypedCache{
		id:      uuid.NewString(),
		cfg:     cfg,
		logger:  cfg.logger(),
		stats:   newCounters(cfg.DisableStats),
		flights: xsync.NewMapOf[reflect.Type, *singleflight.Group](),
	}

	store, err := cacheinfra.NewStore(cfg.toInternal(c.onDegraded))
	if err != nil {
		return nil, err
	}
	c.store = store

	return c, nil
}

// ID returns the unique identifier of this cache instance.
func (c *TypedCache) ID() string { return c.id }

// Config returns the configuration the cache was created with.
func (c *TypedCache) Config() Config { return c.cfg }

// Stats returns a snapshot of the cache counters.
func (c *TypedCache) Stats() Stats { return c.stats.snapshot() }

// Degraded reports whether the cache has stopped serving reads and writes.
// Call Clear to bring it back.
func (c *TypedCache) Degraded() bool { return c.store.Degraded() }

// Has reports whether any value is stored under key, regardless of its type.
func (c *TypedCache) Has(key string) bool {
	_, ok := c.TypeOf(key)
	return ok
}

// TypeOf returns the type the value under key was stored as.
func (c *TypedCache) TypeOf(key string) (reflect.Type, bool) {
	entry, ok, err := c.store.Load(key)
	if err != nil {
		c.stats.inc(statDegraded)
		return nil, false
	}
	return entry.Type, ok
}

// Delete removes key and reports whether it was present.
func (c *TypedCache) Delete(key string) bool {
	deleted, err := c.store.Delete(key)
	if err != nil {
		c.stats.inc(statDegraded)
		return false
	}
	if deleted {
		c.stats.inc(statDeletes)
	}
	return deleted
}

// Len returns the number of stored entries.
func (c *TypedCache) Len() int {
	n, err := c.store.Len()
	if err != nil {
		c.stats.inc(statDegraded)
		return 0
	}
	return n
}

// Keys returns the stored keys in lexical order.
func (c *TypedCache) Keys() []string {
	keys, err := c.store.Keys()
	if err != nil {
		c.stats.inc(statDegraded)
		return nil
	}
	sort.Strings(keys)
	return keys
}

// Clear drops every entry and resets stats. It also recovers a degraded cache.
func (c *TypedCache) Clear() {
	c.store.Reset()
	c.stats.reset()
}

func (c *TypedCache) onDegraded(op string, recovered any) {
	err := goerrors.NewCritical("cache critical section aborted", goerrors.CategoryInternal).
		WithTextCode(TextCodeDegraded).
		WithMetadata(map[string]any{
			"cache_id": c.id,
			"op":       op,
			"panic":    fmt.Sprint(recovered),
		})
	goerrors.LogBySeverity(c.logger, err)
}

func (c *TypedCache) cloneFailed(op, key string, err error) error {
	c.stats.inc(statCloneFailures)

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "clone failed").
			WithTextCode(TextCodeCloneFailed)
	}
	richErr = richErr.Clone().WithMetadata(map[string]any{
		"cache_id": c.id,
		"op":       op,
		"key":      key,
	})

	c.logger.LogAttrs(context.Background(), slog.LevelWarn, richErr.Error(), goerrors.ToSlogAttributes(richErr)...)
	return richErr
}

func (c *TypedCache) degradedErr(op, key string) error {
	c.stats.inc(statDegraded)
	return newDegradedError(op, key)
}
