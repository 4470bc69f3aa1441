package spiderweb

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Thunk performs the actual call with arguments that have already been
// bound.
type Thunk func() (interface{}, error)

// Invoker runs handlers inside the lifecycle handlers of their
// arguments.  An Invoker has no per-call state and may be shared.
type Invoker struct {
	lifecycles *Lifecycles
	log        *zap.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger sets the logger used for invocation diagnostics.
func WithLogger(log *zap.Logger) InvokerOption {
	return func(iv *Invoker) {
		if log != nil {
			iv.log = log
		}
	}
}

// NewInvoker returns an Invoker that consults lifecycles.  lifecycles may
// be nil, in which case handlers are invoked without interception.
func NewInvoker(lifecycles *Lifecycles, opts ...InvokerOption) *Invoker {
	iv := &Invoker{
		lifecycles: lifecycles,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(iv)
	}
	return iv
}

type boundLifecycle struct {
	value interface{}
	entry *lifecycleEntry
}

// chain pairs arguments with their lifecycle handlers in argument order.
// It is complete before any hook runs.
func (iv *Invoker) chain(args []interface{}) []boundLifecycle {
	var bound []boundLifecycle
	for _, a := range args {
		if isNil(a) {
			continue
		}
		if e := iv.lifecycles.find(a); e != nil {
			bound = append(bound, boundLifecycle{value: a, entry: e})
		}
	}
	return bound
}

// Invoke evaluates thunk nested inside the lifecycle handlers matched by
// args.  The first matched argument is the outermost: its OnInit runs
// first and its OnSuccess or OnError runs last.
//
// The error returned is the one that caused the failure, exactly as it
// was produced.  If thunk or a hook panics, every entered OnError sees a
// *PanicError and the panic is then raised again with its original value.
func (iv *Invoker) Invoke(args []interface{}, thunk Thunk) (interface{}, error) {
	return iv.invoke(iv.log, args, thunk)
}

func (iv *Invoker) invoke(log *zap.Logger, args []interface{}, thunk Thunk) (interface{}, error) {
	chain := iv.chain(args)
	if len(chain) == 0 {
		return thunk()
	}

	var (
		result  interface{}
		failure error
		pe      *PanicError
		entered int
	)
	for entered < len(chain) {
		b := chain[entered]
		if pe, failure = guard(func() error { return b.entry.handler.OnInit(b.value) }); failure != nil {
			break
		}
		entered++
	}
	if failure == nil {
		pe, failure = guard(func() (err error) {
			result, err = thunk()
			return err
		})
	}
	for i := entered - 1; i >= 0; i-- {
		b := chain[i]
		if failure == nil {
			pe, failure = guard(func() error { return b.entry.handler.OnSuccess(b.value) })
			continue
		}
		if _, secondary := guard(func() error { return b.entry.handler.OnError(b.value, failure) }); secondary != nil {
			log.Warn("lifecycle error hook failed",
				zap.String("lifecycle", b.entry.name),
				zap.NamedError("original", failure),
				zap.Error(secondary))
		}
	}
	if pe != nil {
		panic(pe.Value)
	}
	if failure != nil {
		return nil, failure
	}
	return result, nil
}

// guard runs fn, turning a panic into a *PanicError.  When fn panics the
// *PanicError is returned twice: as the panic to re-raise later and as
// the failure.
func guard(fn func() error) (pe *PanicError, err error) {
	defer func() {
		if r := recover(); r != nil {
			pe = &PanicError{Value: r, Stack: debug.Stack()}
			err = pe
		}
	}()
	return nil, fn()
}

// Call obtains fn's arguments from r and invokes fn through Invoke.  fn
// may be any func; if its last result is an error, a non-nil value there
// fails the invocation.  The remaining results are returned.
//
// Failures are returned untouched.  The handler and argument values are
// recorded in the log instead of in the error.
func (iv *Invoker) Call(fn interface{}, r ArgumentResolver) ([]reflect.Value, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		panic(fmt.Sprintf("spiderweb: Call needs a func, got %T", fn))
	}
	ft := fv.Type()
	in, err := r.ArgumentsFor(ft)
	if err != nil {
		return nil, err
	}
	if len(in) != ft.NumIn() {
		panic(fmt.Sprintf("spiderweb: resolver returned %d arguments for %s", len(in), ft))
	}

	log := iv.log.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("handler", funcName(fv)))
	args := make([]interface{}, len(in))
	for i, v := range in {
		args[i] = interfaceOf(v)
	}
	if ce := log.Check(zap.DebugLevel, "invoking handler"); ce != nil {
		ce.Write(zap.String("args", describeArgs(args)))
	}

	returnsError := ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errorType
	res, err := iv.invokeLogged(log, args, func() (interface{}, error) {
		var out []reflect.Value
		if ft.IsVariadic() {
			out = fv.CallSlice(in)
		} else {
			out = fv.Call(in)
		}
		if returnsError {
			last := out[len(out)-1]
			out = out[:len(out)-1]
			if !last.IsNil() {
				return out, last.Interface().(error)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]reflect.Value), nil
}

// invokeLogged is invoke plus a diagnostic log line naming the arguments
// of a failed invocation.
func (iv *Invoker) invokeLogged(log *zap.Logger, args []interface{}, thunk Thunk) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked",
				zap.String("args", describeArgs(args)),
				zap.Any("panic", r))
			panic(r)
		}
	}()
	res, err = iv.invoke(log, args, thunk)
	if err != nil {
		if ce := log.Check(zap.DebugLevel, "handler failed"); ce != nil {
			ce.Write(zap.String("args", describeArgs(args)), zap.Error(err))
		}
	}
	return res, err
}

// Instantiate calls the constructor ctor with arguments from r.  ctor
// must return a T, optionally followed by an error.
func Instantiate[T any](iv *Invoker, ctor interface{}, r ArgumentResolver) (T, error) {
	var zero T
	out, err := iv.Call(ctor, r)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		panic(fmt.Sprintf("spiderweb: constructor %T must return exactly one value (and an optional error)", ctor))
	}
	x, ok := interfaceOf(out[0]).(T)
	if !ok && interfaceOf(out[0]) != nil {
		panic(fmt.Sprintf("spiderweb: constructor %T does not return a %s", ctor, typeFor[T]()))
	}
	return x, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func interfaceOf(v reflect.Value) interface{} {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}

func isNil(x interface{}) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func funcName(fv reflect.Value) string {
	if f := runtime.FuncForPC(fv.Pointer()); f != nil {
		return f.Name()
	}
	return fv.Type().String()
}

func describeArgs(args []interface{}) string {
	s := make([]string, len(args))
	for i, a := range args {
		s[i] = fmt.Sprintf("%T(%v)", a, a)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
