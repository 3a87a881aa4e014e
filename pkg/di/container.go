package di

import (
	"context"

	"github.com/goliatone/go-typed-cache/cache"
)

// Container provides dependency injection for cache related components.
// It owns a single TypedCache and key serializer that are handed to every
// consumer, so the cache's lifecycle stays explicit instead of living in a
// package global.
type Container struct {
	cache         *cache.TypedCache
	keySerializer cache.KeySerializer
	config        cache.Config
}

// NewContainer creates a new DI container with the provided cache configuration.
func NewContainer(config cache.Config) (*Container, error) {
	return NewContainerWithSerializer(config, cache.NewDefaultKeySerializer())
}

// NewContainerWithSerializer is NewContainer with a custom KeySerializer,
// e.g. cache.NewHashedKeySerializer for compact keys.
func NewContainerWithSerializer(config cache.Config, keySerializer cache.KeySerializer) (*Container, error) {
	typedCache, err := cache.NewWithConfig(config)
	if err != nil {
		return nil, err
	}

	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}

	return &Container{
		cache:         typedCache,
		keySerializer: keySerializer,
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// Cache returns the shared cache instance.
func (c *Container) Cache() *cache.TypedCache {
	return c.cache
}

// KeySerializer returns the shared key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Key builds the cache key Remember uses for method and args.
func (c *Container) Key(method string, args ...any) string {
	return c.keySerializer.SerializeKey(method, args...)
}

// Forget removes the value Remember stored for method and args.
func (c *Container) Forget(method string, args ...any) bool {
	return c.cache.Delete(c.Key(method, args...))
}

// Remember memoizes fetchFn under a key derived from method and args.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: Remember[*rsa.PublicKey](ctx, container, "rsa.PublicKey", []any{kid}, loadKey)
func Remember[V any](ctx context.Context, c *Container, method string, args []any, fetchFn cache.FetchFn[V]) (V, error) {
	return cache.GetOrFetch(ctx, c.cache, c.Key(method, args...), fetchFn)
}
