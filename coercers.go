package spiderweb

import (
	"fmt"
	"reflect"
)

// Coercer turns one raw string into a value of the type it is
// registered for.  Implementations must be deterministic and must
// return an error, never a sentinel value, for malformed input.
type Coercer interface {
	Parse(raw string) (interface{}, error)
}

// CoercerFunc adapts a plain function to the Coercer interface.
type CoercerFunc func(raw string) (interface{}, error)

// Parse calls f(raw).
func (f CoercerFunc) Parse(raw string) (interface{}, error) { return f(raw) }

type enumConstant struct {
	name  string
	value reflect.Value
}

// Coercers holds the coercers for opaque types and the constants of
// enum types.  Populate it before serving; afterwards it is only read
// and may be shared by any number of concurrent requests.
type Coercers struct {
	parsers map[reflect.Type]Coercer
	enums   map[reflect.Type][]enumConstant
}

// NewCoercers returns an empty registry.
func NewCoercers() *Coercers {
	return &Coercers{
		parsers: make(map[reflect.Type]Coercer),
		enums:   make(map[reflect.Type][]enumConstant),
	}
}

// Register sets the coercer used for inputs of exactly type t.  A later
// registration for the same type replaces the earlier one.  Types of
// number, string, or slice kind always use the built-in rules.
func (c *Coercers) Register(t reflect.Type, p Coercer) *Coercers {
	if t == nil || p == nil {
		panic("spiderweb: Register needs a type and a coercer")
	}
	c.parsers[t] = p
	return c
}

// RegisterCoercer registers fn as the coercer for T.
//
//	spiderweb.RegisterCoercer(coercers, url.Parse)
func RegisterCoercer[T any](c *Coercers, fn func(raw string) (T, error)) *Coercers {
	return c.Register(typeFor[T](), CoercerFunc(func(raw string) (interface{}, error) {
		return fn(raw)
	}))
}

// RegisterEnum declares T to be an enum whose members are the given
// constants.  Raw values are matched against each constant's String().
//
//	type Color int
//	const (Red Color = iota; Green)
//	func (c Color) String() string { ... }
//
//	spiderweb.RegisterEnum(coercers, Red, Green)
func RegisterEnum[T fmt.Stringer](c *Coercers, constants ...T) *Coercers {
	if len(constants) == 0 {
		panic(fmt.Sprintf("spiderweb: enum %s registered without constants", typeFor[T]()))
	}
	t := typeFor[T]()
	list := make([]enumConstant, 0, len(constants))
	for _, k := range constants {
		list = append(list, enumConstant{name: k.String(), value: reflect.ValueOf(k)})
	}
	c.enums[t] = list
	return c
}

func (c *Coercers) lookup(t reflect.Type) (Coercer, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.parsers[t]
	return p, ok
}

func (c *Coercers) enum(t reflect.Type) ([]enumConstant, bool) {
	if c == nil {
		return nil, false
	}
	list, ok := c.enums[t]
	return list, ok
}

func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
