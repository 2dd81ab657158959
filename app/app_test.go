package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/bazaartest"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/store"
)

// writeHandler writes a fixed key/value pair and returns the configured
// error.
type writeHandler struct {
	key   []byte
	value []byte
	err   error
}

var _ bazaar.Handler = writeHandler{}

func (h writeHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, h.err
}

func (h writeHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	if err := db.Set(h.key, h.value); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, h.err
}

func TestRouterRoutes(t *testing.T) {
	r := NewRouter()
	r.Handle(&bazaartest.Msg{RoutePath: "ledger/send"}, writeHandler{key: []byte("k"), value: []byte("v")})

	db := store.MemStore()
	tx := &bazaartest.Tx{Msg: &bazaartest.Msg{RoutePath: "ledger/send"}}
	_, err := r.Deliver(context.Background(), db, tx)
	require.NoError(t, err)

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// Unknown paths must error, not panic.
	tx = &bazaartest.Tx{Msg: &bazaartest.Msg{RoutePath: "ledger/unknown"}}
	_, err = r.Deliver(context.Background(), db, tx)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestRouterRejectsBadRegistrations(t *testing.T) {
	r := NewRouter()
	r.Handle(&bazaartest.Msg{RoutePath: "ledger/send"}, writeHandler{})

	assert.Panics(t, func() {
		r.Handle(&bazaartest.Msg{RoutePath: "ledger/send"}, writeHandler{})
	})
	assert.Panics(t, func() {
		r.Handle(&bazaartest.Msg{RoutePath: "Not A Path"}, writeHandler{})
	})
}

func TestDispatcherCheckDoesNotPersist(t *testing.T) {
	db := store.MemStore()
	d := NewDispatcher(db, writeHandler{key: []byte("k"), value: []byte("v")})

	_, err := d.Check(context.Background(), &bazaartest.Tx{})
	require.NoError(t, err)

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDispatcherDeliverPersistsOnSuccessOnly(t *testing.T) {
	db := store.MemStore()

	failing := writeHandler{key: []byte("k"), value: []byte("v"), err: errors.ErrState}
	d := NewDispatcher(db, failing)
	_, err := d.Deliver(context.Background(), &bazaartest.Tx{})
	assert.True(t, errors.ErrState.Is(err))

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, got, "failed deliver must not persist writes")

	d = NewDispatcher(db, writeHandler{key: []byte("k"), value: []byte("v")})
	_, err = d.Deliver(context.Background(), &bazaartest.Tx{})
	require.NoError(t, err)

	got, err = db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

type panicHandler struct{}

func (panicHandler) Check(bazaar.Context, bazaar.KVStore, bazaar.Tx) (*bazaar.CheckResult, error) {
	panic("check boom")
}

func (panicHandler) Deliver(bazaar.Context, bazaar.KVStore, bazaar.Tx) (*bazaar.DeliverResult, error) {
	panic("deliver boom")
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	d := NewDispatcher(store.MemStore(), panicHandler{})

	_, err := d.Deliver(context.Background(), &bazaartest.Tx{})
	assert.True(t, errors.ErrPanic.Is(err))

	_, err = d.Check(context.Background(), &bazaartest.Tx{})
	assert.True(t, errors.ErrPanic.Is(err))
}

func TestCacheStoreIteratorMergesWrites(t *testing.T) {
	db := store.MemStore()
	require.NoError(t, db.Set([]byte("a"), []byte("1")))
	require.NoError(t, db.Set([]byte("b"), []byte("2")))

	cache := newCacheStore(db)
	require.NoError(t, cache.Set([]byte("c"), []byte("3")))
	require.NoError(t, cache.Set([]byte("a"), []byte("updated")))
	require.NoError(t, cache.Delete([]byte("b")))

	it, err := cache.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Release()

	var got []string
	for {
		k, v, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		got = append(got, string(k)+"="+string(v))
	}
	assert.Equal(t, []string{"a=updated", "c=3"}, got)

	// Parent is untouched until Write.
	v, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, cache.Write())
	v, err = db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), v)
	ok, err := db.Has([]byte("b"))
	require.NoError(t, err)
	assert.False(t, ok)
}
