package spiderweb

import (
	"reflect"
)

// RawParameters is the untyped data decoded from one request: named
// string values in the order the client sent them, and the payloads of
// uploaded files.  It is not modified after construction.
type RawParameters struct {
	values map[string][]string
	files  map[string][]byte
}

// NewRawParameters copies values and files into a RawParameters.  Either
// map may be nil.
func NewRawParameters(values map[string][]string, files map[string][]byte) *RawParameters {
	p := &RawParameters{
		values: make(map[string][]string, len(values)),
		files:  make(map[string][]byte, len(files)),
	}
	for name, vs := range values {
		p.values[name] = append([]string(nil), vs...)
	}
	for name, b := range files {
		p.files[name] = append(make([]byte, 0, len(b)), b...)
	}
	return p
}

// Values returns every value sent for name.
func (p *RawParameters) Values(name string) []string {
	if p == nil {
		return nil
	}
	return p.values[name]
}

// First returns the first value sent for name.  The boolean is false when
// no value was sent.
func (p *RawParameters) First(name string) (string, bool) {
	vs := p.Values(name)
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// File returns the payload uploaded as name, or nil.
func (p *RawParameters) File(name string) []byte {
	if p == nil {
		return nil
	}
	return p.files[name]
}

// Names lists the names that have string values.
func (p *RawParameters) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	return names
}

// Input resolves named, typed inputs from one request's RawParameters.
// It is the per-request face of a shared Coercers registry.
type Input struct {
	params   *RawParameters
	coercers *Coercers
	local    map[reflect.Type]Coercer
}

// NewInput binds params to the coercers registry.  coercers may be nil
// when only built-in types are used.
func NewInput(params *RawParameters, coercers *Coercers) *Input {
	if params == nil {
		params = NewRawParameters(nil, nil)
	}
	return &Input{
		params:   params,
		coercers: coercers,
	}
}

// Params returns the raw parameters the input reads from.
func (in *Input) Params() *RawParameters { return in.params }

// RegisterCoercer adds a coercer for t that applies to this input only.
// It shadows any coercer for t in the shared registry.
func (in *Input) RegisterCoercer(t reflect.Type, p Coercer) {
	if in.local == nil {
		in.local = make(map[reflect.Type]Coercer)
	}
	in.local[t] = p
}

// Resolve returns the value of the named input coerced as described by
// d, or nil when the input is absent (or blank for a nullable number).
func (in *Input) Resolve(name string, d TypeDescriptor) (interface{}, error) {
	v, err := in.ResolveValue(name, d)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

// ResolveValue is Resolve returning a reflect.Value whose type is
// d.Type.  An invalid Value means null.
//
// File uploads are returned for byte slices ahead of all other rules.
// Booleans report presence: a checkbox that was not ticked is simply not
// sent.
func (in *Input) ResolveValue(name string, d TypeDescriptor) (reflect.Value, error) {
	t := d.Type
	if t == nil {
		panic("spiderweb: TypeDescriptor without a type for input " + name)
	}
	if isBytes(t) {
		b := in.params.File(name)
		if b == nil {
			return reflect.Value{}, nil
		}
		return reflect.ValueOf(b).Convert(t), nil
	}
	c := &coercion{
		name:  name,
		desc:  d,
		reg:   in.coercers,
		local: in.local,
	}
	if d.MultiValued && t.Kind() == reflect.Slice {
		return c.multi(t, in.params.Values(name))
	}
	raw, present := in.params.First(name)
	if isBool(t) {
		return presence(t, present), nil
	}
	if !present {
		return reflect.Value{}, nil
	}
	return c.single(t, raw)
}

func presence(t reflect.Type, present bool) reflect.Value {
	if t.Kind() == reflect.Ptr {
		p := reflect.New(t.Elem())
		p.Elem().SetBool(present)
		return p
	}
	v := reflect.New(t).Elem()
	v.SetBool(present)
	return v
}

// Get resolves the named input as a T.  A null result is returned as the
// zero value of T.
func Get[T any](in *Input, name string, hints ...Hint) (T, error) {
	var zero T
	v, err := in.ResolveValue(name, Describe[T](hints...))
	if err != nil || !v.IsValid() {
		return zero, err
	}
	return v.Interface().(T), nil
}
