package orm

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/store"
)

type counter struct {
	Count int64  `json:"count"`
	Memo  string `json:"memo"`
}

var _ Model = (*counter)(nil)

func (c *counter) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

func (c *counter) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

func (c *counter) Validate() error {
	if c.Count < 0 {
		return errors.Wrap(errors.ErrModel, "negative count")
	}
	return nil
}

func TestModelBucketPutOneDelete(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnt")

	key := []byte("one")

	var loaded counter
	err := b.One(db, key, &loaded)
	assert.True(t, errors.ErrNotFound.Is(err))

	require.NoError(t, b.Put(db, key, &counter{Count: 8, Memo: "first"}))

	err = b.One(db, key, &loaded)
	require.NoError(t, err)
	assert.Equal(t, counter{Count: 8, Memo: "first"}, loaded)

	ok, err := b.Has(db, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Delete(db, key))
	assert.True(t, errors.ErrNotFound.Is(b.Delete(db, key)))

	ok, err = b.Has(db, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModelBucketRejectsInvalidModel(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnt")

	err := b.Put(db, []byte("bad"), &counter{Count: -1})
	assert.True(t, errors.ErrModel.Is(err))

	ok, err := b.Has(db, []byte("bad"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModelBucketsDoNotOverlap(t *testing.T) {
	db := store.MemStore()
	a := NewModelBucket("aaa")
	b := NewModelBucket("bbb")

	key := []byte("shared")
	require.NoError(t, a.Put(db, key, &counter{Count: 1}))

	var loaded counter
	err := b.One(db, key, &loaded)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestModelBucketIterate(t *testing.T) {
	db := store.MemStore()
	b := NewModelBucket("cnt")
	other := NewModelBucket("oth")

	require.NoError(t, b.Put(db, []byte("a"), &counter{Count: 1}))
	require.NoError(t, b.Put(db, []byte("b"), &counter{Count: 2}))
	require.NoError(t, other.Put(db, []byte("c"), &counter{Count: 100}))

	var sum int64
	var keys [][]byte
	var c counter
	err := b.Iterate(db, &c, func(key []byte) error {
		sum += c.Count
		keys = append(keys, append([]byte{}, key...))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, keys)

	// Early stop via ErrIteratorDone is not an error.
	var visits int
	err = b.Iterate(db, &c, func([]byte) error {
		visits++
		return errors.ErrIteratorDone
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visits)
}

func TestSequence(t *testing.T) {
	db := store.MemStore()
	s := NewSequence("proposals", "id")

	val, err := s.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	prev, err := s.NextVal(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), DecodeSequence(prev))

	for i := 0; i < 10; i++ {
		next, err := s.NextVal(db)
		require.NoError(t, err)
		// Keys grow in bytes.Compare order.
		assert.True(t, bytes.Compare(prev, next) < 0)
		prev = next
	}

	latest, raw, err := s.Latest(db)
	require.NoError(t, err)
	assert.Equal(t, int64(12), latest)
	assert.Equal(t, latest, DecodeSequence(raw))

	// Different names do not share state.
	o := NewSequence("proposals", "other")
	val, err = o.NextInt(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}
