package di

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

// ErrNilCreate is returned when a bean has no create function.
var ErrNilCreate = errors.New("di: nil create function")

// CreationError is returned when a bean could not be created or initialized.
type CreationError struct {
	Module string
	Bean   string
	Err    error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	// Example: di: bean "app:store" creation failed: dial tcp: refused
	return "di: bean " + strconv.Quote(e.Module+":"+e.Bean) + " creation failed: " + e.Err.Error()
}

func (e *CreationError) Unwrap() error { return e.Err }

// MissingSocketsError is returned when a module is linked with nil values for required
// sockets. It names every offending socket.
type MissingSocketsError struct {
	Module  string
	Sockets []string
}

// Error implements the error interface.
func (e *MissingSocketsError) Error() string {
	// Example: di: module "app" is missing required sockets "db", "log"
	quoted := make([]string, len(e.Sockets))
	for i, s := range e.Sockets {
		quoted[i] = strconv.Quote(s)
	}
	noun := "sockets"
	if len(quoted) == 1 {
		noun = "socket"
	}
	return "di: module " + strconv.Quote(e.Module) + " is missing required " + noun + " " + strings.Join(quoted, ", ")
}

// WrongTypeOverrideError is returned when the registry holds an override for a bean whose
// value does not have the bean type.
type WrongTypeOverrideError struct {
	// Key is the registry key of the override.
	Key string

	// GotType is reflect.TypeOf(raw).String() for the stored value.
	GotType string
}

// Error implements the error interface.
func (e *WrongTypeOverrideError) Error() string {
	// Example: di: override "app:store" has wrong type (string)
	return "di: override " + strconv.Quote(e.Key) + " has wrong type (" + e.GotType + ")"
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// isNil reports whether v is nil or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
