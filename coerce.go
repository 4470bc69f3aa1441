package spiderweb

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TypeDescriptor names the type an input is coerced to, together with
// the hints that change how the raw value is read.
type TypeDescriptor struct {
	Type reflect.Type

	// MultiValued collects every value sent for the input into a slice
	// rather than splitting a single value.
	MultiValued bool

	// Separator splits a single value into the elements of a slice.
	Separator string

	// EnumCaseSensitive turns off case folding when matching enum
	// constant names.
	EnumCaseSensitive bool
}

// Hint adjusts a TypeDescriptor.
type Hint func(*TypeDescriptor)

// MultiValued marks a slice input as taking every value sent under its name.
func MultiValued() Hint { return func(d *TypeDescriptor) { d.MultiValued = true } }

// Separator sets the list separator for a slice input sent as one value.
func Separator(sep string) Hint { return func(d *TypeDescriptor) { d.Separator = sep } }

// CaseSensitive requires enum names to match exactly.
func CaseSensitive() Hint { return func(d *TypeDescriptor) { d.EnumCaseSensitive = true } }

// Describe returns the descriptor for T with the given hints applied.
func Describe[T any](hints ...Hint) TypeDescriptor {
	return DescribeType(typeFor[T](), hints...)
}

// DescribeType returns the descriptor for t with the given hints applied.
func DescribeType(t reflect.Type, hints ...Hint) TypeDescriptor {
	d := TypeDescriptor{Type: t}
	for _, h := range hints {
		h(&d)
	}
	return d
}

func (d TypeDescriptor) String() string {
	var s []string
	if d.MultiValued {
		s = append(s, "multi")
	}
	if d.Separator != "" {
		s = append(s, fmt.Sprintf("sep=%q", d.Separator))
	}
	if d.EnumCaseSensitive {
		s = append(s, "casesensitive")
	}
	if len(s) == 0 {
		return fmt.Sprint(d.Type)
	}
	return fmt.Sprintf("%s [%s]", d.Type, strings.Join(s, ","))
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isBool(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Bool
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// coercion converts the raw values of one named input.  Errors carry the
// name so that every failure points at exactly one field.
type coercion struct {
	name  string
	desc  TypeDescriptor
	reg   *Coercers
	local map[reflect.Type]Coercer
}

func (c *coercion) lookup(t reflect.Type) (Coercer, bool) {
	if p, ok := c.local[t]; ok {
		return p, true
	}
	return c.reg.lookup(t)
}

func (c *coercion) parseError(t reflect.Type, raw string, err error) error {
	return &ParseError{Name: c.name, Type: t, Raw: raw, Err: err}
}

// multi coerces each of raws into an element of slice type t.  The
// result is never nil.
func (c *coercion) multi(t reflect.Type, raws []string) (reflect.Value, error) {
	out := reflect.MakeSlice(t, len(raws), len(raws))
	for i, raw := range raws {
		v, err := c.single(t.Elem(), raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if v.IsValid() {
			out.Index(i).Set(v)
		}
	}
	return out, nil
}

// single coerces one raw string.  An invalid Value means null.  Coercers
// are consulted only for types the built-in rules do not cover; a pointer
// type may have one of its own.
func (c *coercion) single(t reflect.Type, raw string) (reflect.Value, error) {
	if constants, ok := c.reg.enum(t); ok {
		return c.enum(t, constants, raw)
	}
	switch {
	case isNumeric(t):
		return c.number(t, raw)
	case t.Kind() == reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	case t.Kind() == reflect.Slice:
		return c.split(t, raw)
	}
	if p, ok := c.lookup(t); ok {
		return c.custom(t, p, raw)
	}
	if t.Kind() == reflect.Ptr {
		return c.nullable(t, raw)
	}
	return reflect.Value{}, &UnsupportedTypeError{Name: c.name, Type: t, Raw: raw}
}

func (c *coercion) enum(t reflect.Type, constants []enumConstant, raw string) (reflect.Value, error) {
	for _, k := range constants {
		if k.name == raw || (!c.desc.EnumCaseSensitive && strings.EqualFold(k.name, raw)) {
			return k.value.Convert(t), nil
		}
	}
	return reflect.Value{}, c.parseError(t, raw, ErrUnknownEnumConstant)
}

// number parses raw for a numeric type that has no null value, so blank
// input is an error rather than an absence.
func (c *coercion) number(t reflect.Type, raw string) (reflect.Value, error) {
	if raw == "" {
		return reflect.Value{}, c.parseError(t, raw, ErrBlank)
	}
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, c.parseError(t, raw, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, c.parseError(t, raw, err)
		}
		v.SetUint(n)
	default:
		n, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, c.parseError(t, raw, err)
		}
		v.SetFloat(n)
	}
	return v, nil
}

// split handles a slice that arrived as one delimited value.  Empty
// pieces are kept.
func (c *coercion) split(t reflect.Type, raw string) (reflect.Value, error) {
	if c.desc.Separator == "" {
		return reflect.Value{}, c.parseError(t, raw, ErrNoSeparator)
	}
	return c.multi(t, strings.Split(raw, c.desc.Separator))
}

// nullable handles pointer types without a coercer of their own: blank
// numbers become nil, anything else is coerced as the element type and
// returned by address.
func (c *coercion) nullable(t reflect.Type, raw string) (reflect.Value, error) {
	elem := t.Elem()
	if _, isEnum := c.reg.enum(elem); !isEnum && isNumeric(elem) && isBlank(raw) {
		return reflect.Value{}, nil
	}
	v, err := c.single(elem, raw)
	if err != nil || !v.IsValid() {
		return reflect.Value{}, err
	}
	p := reflect.New(elem)
	p.Elem().Set(v)
	return p, nil
}

func (c *coercion) custom(t reflect.Type, p Coercer, raw string) (reflect.Value, error) {
	x, err := p.Parse(raw)
	if err != nil {
		return reflect.Value{}, c.parseError(t, raw, err)
	}
	if x == nil {
		return reflect.Value{}, nil
	}
	v := reflect.ValueOf(x)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, c.parseError(t, raw, fmt.Errorf("coercer returned %s", v.Type()))
	}
	return v, nil
}
