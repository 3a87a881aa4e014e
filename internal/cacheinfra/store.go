package cacheinfra

import (
	"reflect"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// TextCodeInvalidConfig is attached to configuration validation errors.
const TextCodeInvalidConfig = "INVALID_CONFIG"

// ErrDegraded is returned by every store operation once a critical section
// has been aborted by a panic. Clear the store with Reset to recover.
var ErrDegraded = goerrors.New("store is degraded", goerrors.CategoryInternal).
	WithTextCode("CACHE_DEGRADED")

// Config holds the configuration for the type-erased store.
type Config struct {
	// InitialCapacity is a size hint for the backing map.
	// Must be non-negative. Default: 64
	InitialCapacity int

	// OnDegraded is invoked after the lock has been released when a panic
	// aborted a critical section. It receives the operation name and the
	// recovered value. Optional.
	OnDegraded func(op string, recovered any)
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		InitialCapacity: 64,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.InitialCapacity, validation.Min(0)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid store config").
			WithTextCode(TextCodeInvalidConfig)
	}
	return nil
}

// Entry is a type-erased value tagged with the type it was stored as.
// Entries are never mutated after insertion.
type Entry struct {
	Type  reflect.Type
	Value any
}

// Store is a map of Entry values guarded by a reader biased RW lock.
// Readers proceed in parallel; writers get exclusive access. Every
// operation is a single critical section and never re-enters the lock.
type Store struct {
	mu       *xsync.RBMutex
	entries  map[string]Entry
	capacity int
	degraded atomic.Bool
	onPanic  func(op string, recovered any)
}

// NewStore validates cfg and returns an empty store.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Store{
		mu:       xsync.NewRBMutex(),
		entries:  make(map[string]Entry, cfg.InitialCapacity),
		capacity: cfg.InitialCapacity,
		onPanic:  cfg.OnDegraded,
	}, nil
}

// View runs fn while holding the shared lock.
func (s *Store) View(op string, fn func(entries map[string]Entry)) (err error) {
	if s.degraded.Load() {
		return ErrDegraded
	}

	token := s.mu.RLock()
	defer func() {
		s.mu.RUnlock(token)
		if r := recover(); r != nil {
			s.markDegraded(op, r)
			err = ErrDegraded
		}
	}()

	fn(s.entries)
	return nil
}

// Update runs fn while holding the exclusive lock.
func (s *Store) Update(op string, fn func(entries map[string]Entry)) (err error) {
	if s.degraded.Load() {
		return ErrDegraded
	}

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		if r := recover(); r != nil {
			s.markDegraded(op, r)
			err = ErrDegraded
		}
	}()

	fn(s.entries)
	return nil
}

// Load returns the entry stored under key.
func (s *Store) Load(key string) (entry Entry, ok bool, err error) {
	err = s.View("load", func(entries map[string]Entry) {
		entry, ok = entries[key]
	})
	return entry, ok, err
}

// Put replaces whatever is stored under key with entry.
func (s *Store) Put(key string, entry Entry) error {
	return s.Update("put", func(entries map[string]Entry) {
		entries[key] = entry
	})
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) (deleted bool, err error) {
	err = s.Update("delete", func(entries map[string]Entry) {
		if _, deleted = entries[key]; deleted {
			delete(entries, key)
		}
	})
	return deleted, err
}

// Len returns the number of stored entries.
func (s *Store) Len() (n int, err error) {
	err = s.View("len", func(entries map[string]Entry) {
		n = len(entries)
	})
	return n, err
}

// Keys returns a snapshot of the stored keys in no particular order.
func (s *Store) Keys() (keys []string, err error) {
	err = s.View("keys", func(entries map[string]Entry) {
		keys = make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
	})
	return keys, err
}

// Reset drops every entry and clears the degraded flag. It is the only
// operation allowed on a degraded store.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = make(map[string]Entry, s.capacity)
	s.degraded.Store(false)
	s.mu.Unlock()
}

// Degraded reports whether a critical section has been aborted by a panic.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

func (s *Store) markDegraded(op string, recovered any) {
	s.degraded.Store(true)
	if s.onPanic != nil {
		s.onPanic(op, recovered)
	}
}
