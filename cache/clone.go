package cache

import (
	"fmt"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/mohae/deepcopy"
	"github.com/puzpuzpuz/xsync/v3"
)

// Cloner is implemented by values that know how to duplicate themselves.
// When a stored type V implements Cloner[V], Set stores the result of Clone
// and every Get returns a fresh Clone, so callers never share memory with
// the store. Clone is not called on nil pointers.
type Cloner[V any] interface {
	Clone() V
}

// CopyMode selects how values that do not implement Cloner are duplicated.
type CopyMode int

const (
	// CopyDeep duplicates values holding pointers, slices, maps or
	// interfaces with a reflection based deep copy. Values the copy cannot
	// reproduce exactly are rejected with a CLONE_FAILED error: structs with
	// unexported fields, arrays of reference types, maps keyed by reference
	// types, unsafe pointers and cyclic data. Implement Cloner for those.
	// Funcs and channels are shared.
	CopyDeep CopyMode = iota

	// CopyAssign duplicates values with plain assignment. Pointers, slices
	// and maps keep sharing their backing memory with the store.
	CopyAssign
)

func (m CopyMode) String() string {
	switch m {
	case CopyDeep:
		return "deep"
	case CopyAssign:
		return "assign"
	default:
		return fmt.Sprintf("CopyMode(%d)", int(m))
	}
}

var (
	timeType       = reflect.TypeFor[time.Time]()
	deepCopierType = reflect.TypeFor[deepcopy.Interface]()

	referenceTypes = xsync.NewMapOf[reflect.Type, bool]()
	exactTypes     = xsync.NewMapOf[reflect.Type, bool]()
)

// cloneValue duplicates value according to mode. A panicking Cloner is
// reported as an error.
func cloneValue[V any](mode CopyMode, value V) (out V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = goerrors.New(fmt.Sprintf("clone panicked: %v", r), goerrors.CategoryInternal).
				WithTextCode(TextCodeCloneFailed)
		}
	}()

	if c, ok := any(value).(Cloner[V]); ok && !isNilPointer(value) {
		return c.Clone(), nil
	}

	if mode == CopyAssign || !hasReferences(reflect.TypeFor[V]()) {
		return value, nil
	}

	return deepCopy(value)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// hasReferences reports whether values of t can share memory after an
// assignment. time.Time only points at its immutable Location.
func hasReferences(t reflect.Type) bool {
	if v, ok := referenceTypes.Load(t); ok {
		return v
	}

	var refs bool
	switch {
	case t == timeType:
	case t.Kind() == reflect.Pointer, t.Kind() == reflect.Slice, t.Kind() == reflect.Map,
		t.Kind() == reflect.Interface, t.Kind() == reflect.UnsafePointer:
		refs = true
	case t.Kind() == reflect.Array:
		refs = hasReferences(t.Elem())
	case t.Kind() == reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasReferences(t.Field(i).Type) {
				refs = true
				break
			}
		}
	}

	referenceTypes.Store(t, refs)
	return refs
}

// copiesExactly reports whether deepcopy reproduces any value of t without
// walking it: it assigns scalars and arrays, and rebuilds structs field by
// field, skipping unexported ones.
func copiesExactly(t reflect.Type) bool {
	if v, ok := exactTypes.Load(t); ok {
		return v
	}

	var exact bool
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.UnsafePointer:
	case reflect.Array:
		exact = !hasReferences(t.Elem())
	case reflect.Struct:
		exact = t == timeType || structCopiesExactly(t)
	default:
		exact = true
	}

	exactTypes.Store(t, exact)
	return exact
}

func structCopiesExactly(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || !copiesExactly(field.Type) {
			return false
		}
	}
	return true
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

// deepCopyWalker rejects values deepcopy would not reproduce exactly.
// path holds the references on the way down, to detect cycles.
type deepCopyWalker struct {
	root reflect.Type
	path map[visit]struct{}
}

func (w *deepCopyWalker) fail(reason string, args ...any) error {
	msg := fmt.Sprintf("cannot deep copy %s: %s", typeName(w.root), fmt.Sprintf(reason, args...))
	return goerrors.New(msg, goerrors.CategoryInternal).
		WithTextCode(TextCodeCloneFailed).
		WithMetadata(map[string]any{"type": typeName(w.root)})
}

func (w *deepCopyWalker) enter(v reflect.Value) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if _, seen := w.path[key]; seen {
		return nil, w.fail("cycle through %s", v.Type())
	}
	w.path[key] = struct{}{}
	return func() { delete(w.path, key) }, nil
}

func (w *deepCopyWalker) walk(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	t := v.Type()
	if copiesExactly(t) || t.Implements(deepCopierType) {
		return nil
	}

	switch t.Kind() {
	case reflect.Chan, reflect.Func:
		return nil

	case reflect.UnsafePointer:
		return w.fail("unsafe pointer")

	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem())

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		leave, err := w.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return w.walk(v.Elem())

	case reflect.Array:
		return w.fail("array of %s shares its elements", t.Elem())

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				return w.fail("unexported field %s.%s", t, field.Name)
			}
			if err := w.walk(v.Field(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		if v.Len() == 0 || copiesExactly(t.Elem()) {
			return nil
		}
		leave, err := w.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		for i := 0; i < v.Len(); i++ {
			if err := w.walk(v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil
		}
		if t.Key().Kind() != reflect.Interface && copiesExactly(t.Elem()) {
			return w.walkMapKey(reflect.Zero(t.Key()))
		}
		leave, err := w.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		iter := v.MapRange()
		for iter.Next() {
			if err := w.walkMapKey(iter.Key()); err != nil {
				return err
			}
			if err := w.walk(iter.Value()); err != nil {
				return err
			}
		}
		return nil
	}

	return nil
}

// walkMapKey only accepts keys whose copy compares equal to the original.
func (w *deepCopyWalker) walkMapKey(k reflect.Value) error {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return w.fail("nil map key")
		}
		k = k.Elem()
	}
	if hasReferences(k.Type()) || !copiesExactly(k.Type()) {
		return w.fail("map key of type %s", k.Type())
	}
	return nil
}

func deepCopy[V any](value V) (V, error) {
	var out V

	walker := &deepCopyWalker{root: reflect.TypeFor[V](), path: make(map[visit]struct{})}
	if err := walker.walk(reflect.ValueOf(&value).Elem()); err != nil {
		return out, err
	}

	// a nil interface value comes back as nil and leaves the zero V
	out, _ = deepcopy.Copy(any(value)).(V)
	return out, nil
}
