package cache

import (
	"context"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the value stored under key as V. On a miss, or when the
// key holds another type, fetchFn is called and its result is stored before
// being returned. Concurrent callers asking for the same key and type share
// a single fetchFn call, made with the context of the first caller.
//
// Errors from fetchFn are returned as is and nothing is cached. The cache
// lock is never held while fetchFn runs.
func GetOrFetch[V any](ctx context.Context, c *TypedCache, key string, fetchFn FetchFn[V]) (V, error) {
	if value, ok := Get[V](c, key); ok {
		return value, nil
	}

	var zero V
	if fetchFn == nil {
		return zero, goerrors.New("fetchFn cannot be nil", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInvalidFetch)
	}

	group := c.flightGroup(reflect.TypeFor[V]())
	result, err, _ := group.Do(key, func() (any, error) {
		// a previous flight may have filled the key while we were queued
		if value, ok := Get[V](c, key); ok {
			return value, nil
		}

		value, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}

		Set(c, key, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	// the flight result is shared between callers
	value, _ := result.(V)
	clone, err := cloneValue(c.cfg.CopyMode, value)
	if err != nil {
		return zero, c.cloneFailed("fetch", key, err)
	}

	return clone, nil
}

func (c *TypedCache) flightGroup(t reflect.Type) *singleflight.Group {
	group, _ := c.flights.LoadOrCompute(t, func() *singleflight.Group {
		return &singleflight.Group{}
	})
	return group
}
