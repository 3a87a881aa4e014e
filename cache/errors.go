package cache

import (
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to errors returned by the strict operations.
const (
	TextCodeMiss         = "CACHE_MISS"
	TextCodeTypeMismatch = "TYPE_MISMATCH"
	TextCodeDegraded     = "CACHE_DEGRADED"
	TextCodeCloneFailed  = "CLONE_FAILED"
	TextCodeInvalidFetch = "INVALID_FETCH"
)

func newMissError(key string, requested reflect.Type) error {
	return goerrors.New("cache miss", goerrors.CategoryNotFound).
		WithTextCode(TextCodeMiss).
		WithMetadata(map[string]any{
			"key":            key,
			"requested_type": typeName(requested),
		})
}

func newTypeMismatchError(key string, stored, requested reflect.Type) error {
	return goerrors.New("cached value has a different type", goerrors.CategoryBadInput).
		WithTextCode(TextCodeTypeMismatch).
		WithMetadata(map[string]any{
			"key":            key,
			"stored_type":    typeName(stored),
			"requested_type": typeName(requested),
		})
}

func newDegradedError(op, key string) error {
	return goerrors.New("cache is degraded", goerrors.CategoryInternal).
		WithTextCode(TextCodeDegraded).
		WithMetadata(map[string]any{
			"op":  op,
			"key": key,
		})
}

// IsNotFound reports whether err is a cache miss.
func IsNotFound(err error) bool {
	return hasTextCode(err, TextCodeMiss)
}

// IsTypeMismatch reports whether err is a lookup of a key stored under a different type.
func IsTypeMismatch(err error) bool {
	return hasTextCode(err, TextCodeTypeMismatch)
}

// IsDegraded reports whether err was caused by a degraded cache.
func IsDegraded(err error) bool {
	return hasTextCode(err, TextCodeDegraded)
}

// IsCloneFailed reports whether err was caused by a failing Cloner or deep copy.
func IsCloneFailed(err error) bool {
	return hasTextCode(err, TextCodeCloneFailed)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
