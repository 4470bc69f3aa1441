package spiderweb

import (
	"fmt"
	"reflect"
)

// LifecycleHandler brackets the use of one handler argument.  OnInit runs
// before the handler is invoked; exactly one of OnSuccess or OnError runs
// afterwards.
//
// An error from OnInit or OnSuccess fails the invocation.  An error from
// OnError is logged and dropped so that the failure being reported is
// not replaced.
type LifecycleHandler interface {
	OnInit(v interface{}) error
	OnSuccess(v interface{}) error
	OnError(v interface{}, failure error) error
}

// LifecycleFuncs builds a LifecycleHandler for values of type T from up
// to three functions.  Nil functions do nothing.
type LifecycleFuncs[T any] struct {
	Init    func(T) error
	Success func(T) error
	Error   func(T, error) error
}

func (f LifecycleFuncs[T]) OnInit(v interface{}) error {
	if f.Init == nil {
		return nil
	}
	return f.Init(v.(T))
}

func (f LifecycleFuncs[T]) OnSuccess(v interface{}) error {
	if f.Success == nil {
		return nil
	}
	return f.Success(v.(T))
}

func (f LifecycleFuncs[T]) OnError(v interface{}, failure error) error {
	if f.Error == nil {
		return nil
	}
	return f.Error(v.(T), failure)
}

type lifecycleEntry struct {
	name    string
	t       reflect.Type // nil for matcher entries
	matches func(reflect.Type) bool
	handler LifecycleHandler
}

// Lifecycles is an ordered list of (type, handler) pairs.  Lookup walks
// the list in registration order and returns the first handler whose
// type accepts the argument's runtime type.  Register types whose
// hierarchies do not overlap to keep the choice obvious.
//
// Populate it before serving.  It is not safe to register while
// invocations are running.
type Lifecycles struct {
	entries []lifecycleEntry
}

// NewLifecycles returns an empty registry.
func NewLifecycles() *Lifecycles {
	return &Lifecycles{}
}

// Register sets the handler for arguments assignable to t.  Registering
// the same type again replaces the handler but keeps its position.
func (l *Lifecycles) Register(t reflect.Type, h LifecycleHandler) *Lifecycles {
	if t == nil || h == nil {
		panic("spiderweb: Register needs a type and a lifecycle handler")
	}
	for i := range l.entries {
		if l.entries[i].t == t {
			l.entries[i].handler = h
			return l
		}
	}
	l.entries = append(l.entries, lifecycleEntry{
		name:    t.String(),
		t:       t,
		matches: func(rt reflect.Type) bool { return rt.AssignableTo(t) },
		handler: h,
	})
	return l
}

// RegisterLifecycle registers f for arguments assignable to T.  When T
// is an interface every implementation matches.
func RegisterLifecycle[T any](l *Lifecycles, f LifecycleFuncs[T]) *Lifecycles {
	return l.Register(typeFor[T](), f)
}

// RegisterMatcher appends a handler selected by an arbitrary predicate on
// the argument's runtime type.  The name is used in log messages only.
func (l *Lifecycles) RegisterMatcher(name string, matches func(reflect.Type) bool, h LifecycleHandler) *Lifecycles {
	if matches == nil || h == nil {
		panic(fmt.Sprintf("spiderweb: RegisterMatcher(%q) needs a predicate and a lifecycle handler", name))
	}
	l.entries = append(l.entries, lifecycleEntry{
		name:    name,
		matches: matches,
		handler: h,
	})
	return l
}

// Lookup returns the handler for v, if any.
func (l *Lifecycles) Lookup(v interface{}) (LifecycleHandler, bool) {
	e := l.find(v)
	if e == nil {
		return nil, false
	}
	return e.handler, true
}

// Len reports the number of registered handlers.
func (l *Lifecycles) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

func (l *Lifecycles) find(v interface{}) *lifecycleEntry {
	if l == nil || v == nil {
		return nil
	}
	rt := reflect.TypeOf(v)
	for i := range l.entries {
		if l.entries[i].matches(rt) {
			return &l.entries[i]
		}
	}
	return nil
}

// Transaction is the shape of a unit of work that is committed or rolled
// back as a whole.  *sql.Tx satisfies it.
type Transaction interface {
	Commit() error
	Rollback() error
}

// TransactionLifecycle commits a Transaction argument when the handler
// succeeds and rolls it back when the handler fails.  The transaction is
// expected to have been begun by whatever provided it.
var TransactionLifecycle = LifecycleFuncs[Transaction]{
	Success: func(tx Transaction) error { return tx.Commit() },
	Error:   func(tx Transaction, _ error) error { return tx.Rollback() },
}

// RegisterTransactions wraps every invocation that takes a Transaction
// argument in TransactionLifecycle.
func RegisterTransactions(l *Lifecycles) *Lifecycles {
	return RegisterLifecycle[Transaction](l, TransactionLifecycle)
}
