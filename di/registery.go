package di

import (
	"errors"
	"fmt"
)

// Registry supplies link-time values to generated modules: overrides of overridable beans,
// keyed by qualified bean name (module:bean).
//
// It is read-only and side effect free; modules query it the first time a bean is requested.
type Registry interface {
	Resolve(key string) (val any, ok bool, err error)
}

// ErrRegistryPanic is returned if a registry implementation panics internally.
var ErrRegistryPanic = errors.New("registry: panic during Resolve")

// MapRegistry is a simple in-memory registry.
type MapRegistry struct {
	items map[string]any
}

func NewMapRegistry() *MapRegistry {
	return &MapRegistry{items: map[string]any{}}
}

// Provide stores a value under a key and returns the registry for chaining.
func (r *MapRegistry) Provide(key string, val any) *MapRegistry {
	r.items[key] = val
	return r
}

// Resolve implements Registry and converts panics into errors.
func (r *MapRegistry) Resolve(key string) (val any, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			val = nil
			ok = false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()

	v, ok := r.items[key]
	return v, ok, nil
}

// Override returns the override lookup of an overridable bean of m, for use as
// BeanConfig.Override. A registry value of the wrong type is reported as a
// *WrongTypeOverrideError when the bean is requested.
func Override[T any](m *Module, bean string) func() (T, bool, error) {
	key := m.name + ":" + bean
	return func() (T, bool, error) {
		var zero T
		if m.reg == nil {
			return zero, false, nil
		}
		raw, ok, err := m.reg.Resolve(key)
		if err != nil || !ok {
			return zero, false, err
		}
		v, ok := raw.(T)
		if !ok {
			return zero, false, &WrongTypeOverrideError{Key: key, GotType: typeName(raw)}
		}
		return v, true, nil
	}
}

// Socket is a named socket value a module is linked with.
type Socket struct {
	Name  string
	Value any
}

// RequireSockets checks the values of the required sockets of a module. Nil values are
// reported together in a *MissingSocketsError, in the order given.
func RequireSockets(module string, sockets ...Socket) error {
	var missing []string
	for _, s := range sockets {
		if isNil(s.Value) {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingSocketsError{Module: module, Sockets: missing}
	}
	return nil
}
