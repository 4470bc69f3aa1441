package spiderweb

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
)

// ArgumentResolver supplies the complete, ordered argument list for a
// func type.  It is how Call obtains the values it invokes a handler
// with; implementations typically use an Input for request-bound
// parameters.
type ArgumentResolver interface {
	ArgumentsFor(fn reflect.Type) ([]reflect.Value, error)
}

// ArgumentResolverFunc adapts a plain function to ArgumentResolver.
type ArgumentResolverFunc func(fn reflect.Type) ([]reflect.Value, error)

func (f ArgumentResolverFunc) ArgumentsFor(fn reflect.Type) ([]reflect.Value, error) { return f(fn) }

// Values is an ArgumentResolver that hands out a fixed argument list.
type Values []interface{}

func (vs Values) ArgumentsFor(fn reflect.Type) ([]reflect.Value, error) {
	if len(vs) != fn.NumIn() {
		return nil, fmt.Errorf("%w: have %d values for %s", ErrNoProvider, len(vs), fn)
	}
	in := make([]reflect.Value, len(vs))
	for i, v := range vs {
		in[i] = valueOr(fn.In(i), v)
	}
	return in, nil
}

type injected struct {
	value reflect.Value
	order int
}

// Injections holds values that are handed to any handler parameter of
// their type.  They are set up before serving and shared by all
// requests.
type Injections struct {
	values map[reflect.Type]*injected
}

// NewInjections returns an empty set of injections.
func NewInjections() *Injections {
	return &Injections{values: make(map[reflect.Type]*injected)}
}

// Inject provides v for parameters of v's own type, and for interface
// parameters that v implements.
func (i *Injections) Inject(v interface{}) *Injections {
	if v == nil {
		panic("spiderweb: cannot inject nil")
	}
	return i.Provide(reflect.TypeOf(v), v)
}

// Provide makes v available as a t.  Use it to inject a value under an
// interface type.
func (i *Injections) Provide(t reflect.Type, v interface{}) *Injections {
	rv := valueOr(t, v)
	if !rv.Type().AssignableTo(t) {
		panic(fmt.Sprintf("spiderweb: cannot provide %s as %s", rv.Type(), t))
	}
	if prev, ok := i.values[t]; ok {
		prev.value = rv
		return i
	}
	i.values[t] = &injected{value: rv, order: len(i.values)}
	return i
}

// Lookup returns the injected value for want.  An exact type match wins.
// Failing that, an interface is satisfied by the best injected value
// implementing it:
// (*) Same package path as the interface
// (*) Highest method count
// (*) Earliest injected
func (i *Injections) Lookup(want reflect.Type) (reflect.Value, bool) {
	if i == nil {
		return reflect.Value{}, false
	}
	if inj, found := i.values[want]; found {
		return inj.value, true
	}
	if want.Kind() != reflect.Interface {
		return reflect.Value{}, false
	}
	var best struct {
		inj   *injected
		score []int
	}
	for t, inj := range i.values {
		if !t.Implements(want) {
			continue
		}
		samePathScore := 0
		if t.PkgPath() == want.PkgPath() {
			samePathScore = 1
		}
		s := []int{samePathScore, t.NumMethod(), -inj.order}
		if best.inj == nil || aGreaterBInts(s, best.score) {
			best.inj = inj
			best.score = s
		}
	}
	if best.inj == nil {
		return reflect.Value{}, false
	}
	return best.inj.value, true
}

func aGreaterBInts(a []int, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] > b[i] {
			return true
		}
		if a[i] < b[i] {
			return false
		}
	}
	return len(a) > len(b)
}

var (
	contextType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	requestType        = reflect.TypeOf((*http.Request)(nil))
	responseWriterType = reflect.TypeOf((*http.ResponseWriter)(nil)).Elem()
	inputType          = reflect.TypeOf((*Input)(nil))
	rawParametersType  = reflect.TypeOf((*RawParameters)(nil))
)

// RequestResolver resolves handler parameters for one request.  Each
// parameter is filled from the first source that has its type:
//
//	context.Context       the request's context
//	*http.Request         the request
//	http.ResponseWriter   the response
//	*Input                the request's input
//	*RawParameters        the request's raw parameters
//	injections            see Injections.Lookup
//	form structs          a struct, or pointer to struct, with input tags (see Bind)
type RequestResolver struct {
	Input      *Input
	Injections *Injections
	Request    *http.Request
	Writer     http.ResponseWriter
}

func (r *RequestResolver) ArgumentsFor(fn reflect.Type) ([]reflect.Value, error) {
	in := make([]reflect.Value, fn.NumIn())
	for i := range in {
		v, err := r.argument(fn.In(i))
		if err != nil {
			return nil, err
		}
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: parameter %d (%s) of %s", ErrNoProvider, i, fn.In(i), fn)
		}
		in[i] = v
	}
	return in, nil
}

func (r *RequestResolver) argument(t reflect.Type) (reflect.Value, error) {
	switch t {
	case contextType:
		if r.Request != nil {
			return reflect.ValueOf(r.Request.Context()), nil
		}
		return reflect.ValueOf(context.Background()), nil
	case requestType:
		return valueOr(t, r.Request), nil
	case responseWriterType:
		return valueOr(t, r.Writer), nil
	case inputType:
		return valueOr(t, r.Input), nil
	case rawParametersType:
		if r.Input == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(r.Input.Params()), nil
	}
	if v, ok := r.Injections.Lookup(t); ok {
		return v, nil
	}
	if isForm(t) {
		if r.Input == nil {
			return reflect.Value{}, fmt.Errorf("%w: form %s needs an Input", ErrNoProvider, t)
		}
		return r.Input.bindNew(t)
	}
	return reflect.Value{}, nil
}

// CheckResolvable reports an error naming the first parameter of fn that
// no source of the resolver could ever fill.  It does not look at the
// request, so it can be used when handlers are registered.
func (r *RequestResolver) CheckResolvable(fn reflect.Type) error {
	for i := 0; i < fn.NumIn(); i++ {
		t := fn.In(i)
		switch t {
		case contextType, requestType, responseWriterType, inputType, rawParametersType:
			continue
		}
		if _, ok := r.Injections.Lookup(t); ok {
			continue
		}
		if isForm(t) {
			continue
		}
		return fmt.Errorf("%w: parameter %d (%s) of %s", ErrNoProvider, i, t, fn)
	}
	return nil
}

// valueOr returns reflect.ValueOf(x), or the zero value of t when x is nil.
func valueOr(t reflect.Type, x interface{}) reflect.Value {
	if isNil(x) {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(x)
}
