package spiderweb

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	committed  int
	rolledBack int
	commitErr  error
}

func (tx *fakeTx) Commit() error {
	tx.committed++
	return tx.commitErr
}

func (tx *fakeTx) Rollback() error {
	tx.rolledBack++
	return nil
}

type nopLifecycle struct{ name string }

func (nopLifecycle) OnInit(interface{}) error         { return nil }
func (nopLifecycle) OnSuccess(interface{}) error      { return nil }
func (nopLifecycle) OnError(interface{}, error) error { return nil }

func TestLifecyclesFirstMatchWins(t *testing.T) {
	t.Parallel()
	general := &nopLifecycle{"general"}
	specific := &nopLifecycle{"specific"}
	l := NewLifecycles().
		Register(reflect.TypeOf((*Transaction)(nil)).Elem(), general).
		Register(reflect.TypeOf(&fakeTx{}), specific)

	h, ok := l.Lookup(&fakeTx{})
	require.True(t, ok)
	assert.Same(t, general, h)

	_, ok = l.Lookup(fakeTx{})
	assert.False(t, ok, "fakeTx values do not implement Transaction")
	_, ok = l.Lookup("tx")
	assert.False(t, ok)
	_, ok = l.Lookup(nil)
	assert.False(t, ok)
}

func TestLifecyclesRegisterReplacesInPlace(t *testing.T) {
	t.Parallel()
	first := &nopLifecycle{"first"}
	second := &nopLifecycle{"second"}
	tx := &nopLifecycle{"tx"}
	l := NewLifecycles()
	RegisterLifecycle[*fakeTx](l, LifecycleFuncs[*fakeTx]{})
	l.Register(reflect.TypeOf((*Transaction)(nil)).Elem(), first)
	l.Register(reflect.TypeOf(&fakeTx{}), tx)
	l.Register(reflect.TypeOf((*Transaction)(nil)).Elem(), second)
	assert.Equal(t, 2, l.Len())

	h, ok := l.Lookup(&fakeTx{})
	require.True(t, ok)
	assert.Same(t, tx, h, "the replacement kept the original position")

	type otherTx struct{ *fakeTx }
	h, ok = l.Lookup(otherTx{&fakeTx{}})
	require.True(t, ok)
	assert.Same(t, second, h)
}

func TestLifecyclesMatcher(t *testing.T) {
	t.Parallel()
	strs := &nopLifecycle{"strings"}
	l := NewLifecycles().RegisterMatcher("strings", func(t reflect.Type) bool {
		return t.Kind() == reflect.String
	}, strs)

	h, ok := l.Lookup(login("bob"))
	require.True(t, ok)
	assert.Same(t, strs, h)
	_, ok = l.Lookup(3)
	assert.False(t, ok)

	assert.Panics(t, func() { l.RegisterMatcher("nothing", nil, strs) })
	assert.Panics(t, func() { l.Register(nil, strs) })
	assert.Panics(t, func() { l.Register(reflect.TypeOf(0), nil) })

	var none *Lifecycles
	assert.Equal(t, 0, none.Len())
	_, ok = none.Lookup("x")
	assert.False(t, ok)
}

func TestLifecycleFuncs(t *testing.T) {
	t.Parallel()
	var seen []string
	h := LifecycleFuncs[login]{
		Init: func(l login) error {
			seen = append(seen, "init "+string(l))
			return nil
		},
		Error: func(l login, failure error) error {
			seen = append(seen, "error "+string(l)+" "+failure.Error())
			return nil
		},
	}
	assert.NoError(t, h.OnInit(login("a")))
	assert.NoError(t, h.OnSuccess(login("b")), "nil funcs do nothing")
	assert.NoError(t, h.OnError(login("c"), errors.New("boom")))
	assert.Equal(t, []string{"init a", "error c boom"}, seen)
}

func TestTransactionLifecycle(t *testing.T) {
	t.Parallel()
	l := RegisterTransactions(NewLifecycles())
	iv := NewInvoker(l)
	errBoom := errors.New("boom")

	tx := &fakeTx{}
	res, err := iv.Invoke([]interface{}{tx}, func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 1, tx.committed)
	assert.Equal(t, 0, tx.rolledBack)

	tx = &fakeTx{}
	_, err = iv.Invoke([]interface{}{tx}, func() (interface{}, error) { return nil, errBoom })
	assert.Same(t, errBoom, err)
	assert.Equal(t, 0, tx.committed)
	assert.Equal(t, 1, tx.rolledBack)

	errCommit := errors.New("commit failed")
	tx = &fakeTx{commitErr: errCommit}
	_, err = iv.Invoke([]interface{}{tx}, func() (interface{}, error) { return "ok", nil })
	assert.Same(t, errCommit, err)
	assert.Equal(t, 0, tx.rolledBack)
}
