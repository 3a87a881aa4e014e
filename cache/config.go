package cache

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-typed-cache/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// InitialCapacity is a size hint for the backing map. Must be non-negative.
	InitialCapacity int

	// CopyMode selects how values that do not implement Cloner are duplicated
	// on Set and Get. The zero value deep copies reference-bearing values;
	// CopyAssign opts into sharing them with the store.
	CopyMode CopyMode

	// Logger receives degraded-state and clone-failure events.
	// A nil Logger uses slog.Default().
	Logger *slog.Logger

	// DisableStats turns off hit/miss accounting.
	DisableStats bool
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.toInternal(nil).Validate(); err != nil {
		return err
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.CopyMode, validation.In(CopyDeep, CopyAssign)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid cache config").
			WithTextCode(cacheinfra.TextCodeInvalidConfig)
	}

	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) toInternal(onDegraded func(op string, recovered any)) cacheinfra.Config {
	return cacheinfra.Config{
		InitialCapacity: c.InitialCapacity,
		OnDegraded:      onDegraded,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		InitialCapacity: cfg.InitialCapacity,
		CopyMode:        CopyDeep,
	}
}
