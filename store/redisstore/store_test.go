package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

func newTestStore(t *testing.T, namespace string) *Store {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(context.Background(), rdb, namespace)
}

func TestStoreGetSetDelete(t *testing.T) {
	s := newTestStore(t, "bazaar")

	k, v := []byte("trade:9"), []byte("payload")

	got, err := s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(k, v))

	got, err = s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	has, err := s.Has(k)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Delete(k))
	got, err = s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting twice is a no-op.
	require.NoError(t, s.Delete(k))
}

func TestStoreIterator(t *testing.T) {
	s := newTestStore(t, "bazaar")
	for _, k := range []string{"a:1", "a:2", "a:3", "b:1"} {
		require.NoError(t, s.Set([]byte(k), []byte("v-"+k)))
	}

	it, err := s.Iterator(bazaar.PrefixRange([]byte("a:")))
	require.NoError(t, err)
	defer it.Release()

	var keys []string
	for {
		k, v, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "v-"+string(k), string(v))
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"a:1", "a:2", "a:3"}, keys)
}

func TestStoreNamespaceIsolation(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := NewStore(context.Background(), rdb, "one")
	b := NewStore(context.Background(), rdb, "two")

	require.NoError(t, a.Set([]byte("k"), []byte("from-a")))

	got, err := b.Get([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, got)

	it, err := b.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Release()
	_, _, err = it.Next()
	assert.True(t, errors.ErrIteratorDone.Is(err))
}

func TestStoreOverwriteKeepsSingleIndexEntry(t *testing.T) {
	s := newTestStore(t, "bazaar")
	require.NoError(t, s.Set([]byte("k"), []byte("v1")))
	require.NoError(t, s.Set([]byte("k"), []byte("v2")))

	it, err := s.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Release()

	k, v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), k)
	assert.Equal(t, []byte("v2"), v)

	_, _, err = it.Next()
	assert.True(t, errors.ErrIteratorDone.Is(err))
}
