package cache

import (
	"reflect"

	"github.com/goliatone/go-typed-cache/internal/cacheinfra"
)

// Outcome describes how a Lookup was resolved.
type Outcome int

const (
	// Found means the key exists and was stored as the requested type.
	Found Outcome = iota
	// Absent means nothing is stored under the key.
	Absent
	// TypeMismatch means the key exists but was stored as another type.
	TypeMismatch
	// Degraded means the cache refused the read, see TypedCache.Degraded.
	Degraded
	// CloneFailed means the stored value could not be duplicated.
	CloneFailed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case TypeMismatch:
		return "type_mismatch"
	case Degraded:
		return "degraded"
	case CloneFailed:
		return "clone_failed"
	default:
		return "unknown"
	}
}

// Set stores a copy of value under key, replacing whatever was there
// before, including values of other types. Set never fails from the
// caller's point of view: on a degraded cache, or for a value that cannot be
// copied, the write is dropped and logged.
//
// Since Go methods cannot have type parameters, typed operations are
// package-level functions.
func Set[V any](c *TypedCache, key string, value V) {
	_ = TrySet(c, key, value)
}

// TrySet is Set reporting why a write was dropped.
func TrySet[V any](c *TypedCache, key string, value V) error {
	clone, err := cloneValue(c.cfg.CopyMode, value)
	if err != nil {
		return c.cloneFailed("set", key, err)
	}

	entry := cacheinfra.Entry{
		Type:  reflect.TypeFor[V](),
		Value: clone,
	}
	if err := c.store.Put(key, entry); err != nil {
		return c.degradedErr("set", key)
	}

	c.stats.inc(statSets)
	return nil
}

// Get returns a copy of the value stored under key if, and only if, it was
// stored as exactly V. A missing key and a key holding another type are
// both reported as (zero, false).
func Get[V any](c *TypedCache, key string) (V, bool) {
	value, outcome, _ := lookup[V](c, key)
	return value, outcome == Found
}

// Lookup is Get telling apart why a value was not returned.
func Lookup[V any](c *TypedCache, key string) (V, Outcome) {
	value, outcome, _ := lookup[V](c, key)
	return value, outcome
}

// TryGet is Get returning a categorised error instead of false. Use
// IsNotFound, IsTypeMismatch, IsDegraded and IsCloneFailed to inspect it.
func TryGet[V any](c *TypedCache, key string) (V, error) {
	value, _, err := lookup[V](c, key)
	return value, err
}

func lookup[V any](c *TypedCache, key string) (out V, outcome Outcome, err error) {
	requested := reflect.TypeFor[V]()

	entry, ok, loadErr := c.store.Load(key)
	switch {
	case loadErr != nil:
		return out, Degraded, c.degradedErr("get", key)
	case !ok:
		c.stats.inc(statMisses)
		return out, Absent, newMissError(key, requested)
	case entry.Type != requested:
		c.stats.inc(statMismatches)
		return out, TypeMismatch, newTypeMismatchError(key, entry.Type, requested)
	}

	// a nil interface value fails the assertion and leaves the zero V
	stored, _ := entry.Value.(V)

	clone, err := cloneValue(c.cfg.CopyMode, stored)
	if err != nil {
		return out, CloneFailed, c.cloneFailed("get", key, err)
	}

	c.stats.inc(statHits)
	return clone, Found, nil
}
