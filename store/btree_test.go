package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

func TestBTreeStoreGetSetDelete(t *testing.T) {
	s := MemStore()

	k, v := []byte("proposal:1"), []byte("payload")

	got, err := s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)

	has, err := s.Has(k)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Set(k, v))
	got, err = s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	has, err = s.Has(k)
	require.NoError(t, err)
	assert.True(t, has)

	// Overwrite keeps a single entry.
	require.NoError(t, s.Set(k, []byte("other")))
	got, err = s.Get(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("other"), got)

	require.NoError(t, s.Delete(k))
	got, err = s.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent key is fine.
	require.NoError(t, s.Delete(k))
}

func TestBTreeStoreIterator(t *testing.T) {
	s := MemStore()
	for _, k := range []string{"a:1", "a:2", "a:3", "b:1"} {
		require.NoError(t, s.Set([]byte(k), []byte("v-"+k)))
	}

	cases := map[string]struct {
		start, end []byte
		wantKeys   []string
	}{
		"full domain": {
			wantKeys: []string{"a:1", "a:2", "a:3", "b:1"},
		},
		"prefix a": {
			start:    []byte("a:"),
			end:      []byte("a;"),
			wantKeys: []string{"a:1", "a:2", "a:3"},
		},
		"half open start": {
			start:    []byte("a:2"),
			wantKeys: []string{"a:2", "a:3", "b:1"},
		},
		"empty range": {
			start:    []byte("c"),
			wantKeys: nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			it, err := s.Iterator(tc.start, tc.end)
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
			assert.Equal(t, tc.wantKeys, keys)
		})
	}
}

func TestBTreeStorePrefixRange(t *testing.T) {
	s := MemStore()
	require.NoError(t, s.Set([]byte{4, 255}, []byte("one")))
	require.NoError(t, s.Set([]byte{4, 255, 1}, []byte("two")))
	require.NoError(t, s.Set([]byte{5, 0}, []byte("out")))

	it, err := s.Iterator(bazaar.PrefixRange([]byte{4, 255}))
	require.NoError(t, err)
	defer it.Release()

	var n int
	for {
		_, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestBTreeStoreIteratorSnapshot(t *testing.T) {
	s := MemStore()
	require.NoError(t, s.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, s.Set([]byte("k2"), []byte("v2")))

	it, err := s.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Release()

	// Mutations after the iterator was created are not observed.
	require.NoError(t, s.Delete([]byte("k2")))
	require.NoError(t, s.Set([]byte("k3"), []byte("v3")))

	var keys []string
	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		require.NoError(t, err)
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"k1", "k2"}, keys)
}
