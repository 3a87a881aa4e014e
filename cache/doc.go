// Package cache provides a concurrency safe, heterogeneous in-memory cache.
//
// # Overview
//
// A TypedCache maps string keys to values of any type. Each value is stored
// together with the type it was set as, and can only be read back as exactly
// that type:
//
//	c := cache.New()
//
//	cache.Set(c, "count", int32(42))
//
//	n, ok := cache.Get[int32](c, "count")   // 42, true
//	_, ok = cache.Get[string](c, "count")   // "", false
//
//	cache.Set(c, "count", "forty-two")      // replaces the int32
//	_, ok = cache.Get[int32](c, "count")    // 0, false
//
// Since Go methods cannot have type parameters, the typed operations are
// package-level functions taking the cache as first argument.
//
// # Type Identity
//
// A lookup succeeds only when the requested type parameter is identical to the
// one used at Set time. There is no coercion of any kind:
//
//   - a named type does not match its underlying type (Celsius vs float64)
//   - *T does not match T
//   - an interface type does not match the dynamic type it holds, and a
//     concrete type does not match an interface it implements
//
// Values stored through an interface type parameter, for example
// cache.Set[error](c, "last", err), must be read back with that same interface.
//
// # Copies
//
// Set and Get hand out copies, never references into the store:
//
//   - types implementing Cloner[V] are duplicated with Clone on both Set and
//     Get
//   - types without pointers, slices, maps or interfaces are copied by
//     assignment
//   - everything else is deep copied
//
// The deep copy only accepts values it can reproduce exactly. A struct with
// unexported fields behind a reference, an array of slices, a map keyed by
// pointers or a cyclic structure is rejected with a CLONE_FAILED error
// instead of being stored half copied. Implement Cloner for such types, or
// configure the cache with CopyAssign to share backing memory with the
// store and treat the values as read-only.
//
// # Misses, Mismatches and Failures
//
// Get folds "no such key" and "key holds another type" into a single false
// result. Callers that need to tell them apart can use Lookup, which returns an
// Outcome, or TryGet, which returns a categorised error:
//
//	v, err := cache.TryGet[Token](c, "token")
//	switch {
//	case cache.IsNotFound(err):
//	case cache.IsTypeMismatch(err):
//	}
//
// # Degraded State
//
// If a panic ever escapes one of the store's critical sections, the lock is
// released and the cache is marked degraded. A degraded cache keeps working as
// a no-op store: Set drops writes and Get reports misses, while the event is
// logged at error level and counted in Stats. TrySet and TryGet report the
// condition through IsDegraded. Clear drops all entries and brings the cache
// back.
//
// A Cloner that panics is handled per call without degrading the cache.
//
// # Read-Through
//
// GetOrFetch returns the cached value or fetches and stores it, making sure
// concurrent callers for the same key and type share one fetch:
//
//	profile, err := cache.GetOrFetch(ctx, c, "profile:42", func(ctx context.Context) (Profile, error) {
//		return loadProfile(ctx, 42)
//	})
//
// Combine it with a KeySerializer to derive keys from call arguments.
//
// # Sharing
//
// A TypedCache holds process-wide mutable state. Create it once and pass it
// to its consumers explicitly, see the pkg/di package.
package cache
