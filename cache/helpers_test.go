package cache

import (
	"io"
	"log/slog"
	"testing"

	"github.com/goliatone/go-typed-cache/internal/cacheinfra"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t testing.TB, opts ...func(*Config)) *TypedCache {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := NewWithConfig(cfg)
	require.NoError(t, err)
	return c
}

// poison degrades the store the same way a panicking critical section would.
func poison(t testing.TB, c *TypedCache) {
	t.Helper()

	err := c.store.Update("test", func(map[string]cacheinfra.Entry) {
		panic("poisoned by test")
	})
	require.Error(t, err)
	require.True(t, c.Degraded())
}
