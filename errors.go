package spiderweb

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNoSeparator is the cause of a ParseError for a slice input that
	// arrived as a single value without a list separator configured.
	ErrNoSeparator = errors.New("slice type but no list separator configured")

	// ErrUnknownEnumConstant is the cause of a ParseError when no enum
	// constant has the supplied name.
	ErrUnknownEnumConstant = errors.New("enum constant not found")

	// ErrBlank is the cause of a ParseError when a blank value is given
	// for a numeric type that cannot represent absence.
	ErrBlank = errors.New("blank value for non-nullable type")

	// ErrNoProvider reports a handler parameter that no argument source
	// can fill.
	ErrNoProvider = errors.New("no value for parameter")
)

// ParseError reports a raw value that could not be coerced to the type
// declared for its input.
type ParseError struct {
	Name string
	Type reflect.Type
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("input %q: cannot parse %q as %s: %v", e.Name, e.Raw, e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports an input type that is neither built in
// nor registered with a Coercer. It is a configuration error.
type UnsupportedTypeError struct {
	Name string
	Type reflect.Type
	Raw  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("input %q: unknown type %s (val: %q)", e.Name, e.Type, e.Raw)
}

// PanicError is what lifecycle error hooks receive when the handler, or a
// hook nested inside them, panicked.  The panic itself is re-raised with
// the original value once the chain has unwound.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// ValidationError is returned by Bind when the bound struct fails its
// validate tags.
type ValidationError struct {
	Messages []string
	Err      error
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }
