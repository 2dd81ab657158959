// Package redisstore implements a KVStore on top of a redis server. It
// lets a host keep engine state out of process and share it between
// instances. All keys live under a configurable namespace so several
// stores can coexist on one server.
//
// Ordered iteration is served by a sorted set that indexes every key
// with a zero score, so redis orders members lexicographically and a
// range query maps onto ZRANGEBYLEX.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

// Store is a KVStore persisted in redis.
type Store struct {
	ctx context.Context
	rdb redis.UniversalClient
	ns  string
}

var _ bazaar.KVStore = (*Store)(nil)

// NewStore returns a store that keeps all data under the given
// namespace. The context bounds every redis call the store makes.
func NewStore(ctx context.Context, rdb redis.UniversalClient, namespace string) *Store {
	return &Store{
		ctx: ctx,
		rdb: rdb,
		ns:  namespace,
	}
}

func (s *Store) dataKey(key []byte) string {
	return s.ns + ":d:" + string(key)
}

func (s *Store) indexKey() string {
	return s.ns + ":keys"
}

// Get returns the stored value, nil when absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	assertValidKey(key)
	raw, err := s.rdb.Get(s.ctx, s.dataKey(key)).Bytes()
	switch {
	case err == nil:
		return raw, nil
	case err == redis.Nil:
		return nil, nil
	default:
		return nil, errors.Wrap(err, "redis get")
	}
}

// Has checks for key existence.
func (s *Store) Has(key []byte) (bool, error) {
	assertValidKey(key)
	n, err := s.rdb.Exists(s.ctx, s.dataKey(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

// Set writes the value and indexes the key for iteration.
func (s *Store) Set(key, value []byte) error {
	assertValidKey(key)
	pipe := s.rdb.TxPipeline()
	pipe.Set(s.ctx, s.dataKey(key), value, 0)
	pipe.ZAdd(s.ctx, s.indexKey(), redis.Z{Score: 0, Member: string(key)})
	if _, err := pipe.Exec(s.ctx); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Delete removes the value and its index entry. Deleting an absent key
// is a no-op.
func (s *Store) Delete(key []byte) error {
	assertValidKey(key)
	pipe := s.rdb.TxPipeline()
	pipe.Del(s.ctx, s.dataKey(key))
	pipe.ZRem(s.ctx, s.indexKey(), string(key))
	if _, err := pipe.Exec(s.ctx); err != nil {
		return errors.Wrap(err, "redis delete")
	}
	return nil
}

// Iterator returns an ascending iterator over the [start, end) domain.
// The matching keys and values are fetched up front, so the result is a
// snapshot and the store may be modified while iterating.
func (s *Store) Iterator(start, end []byte) (bazaar.Iterator, error) {
	min, max := "-", "+"
	if start != nil {
		min = "[" + string(start)
	}
	if end != nil {
		max = "(" + string(end)
	}
	keys, err := s.rdb.ZRangeByLex(s.ctx, s.indexKey(), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis range")
	}
	if len(keys) == 0 {
		return &sliceIterator{}, nil
	}

	dataKeys := make([]string, len(keys))
	for i, k := range keys {
		dataKeys[i] = s.dataKey([]byte(k))
	}
	values, err := s.rdb.MGet(s.ctx, dataKeys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis mget")
	}

	items := make([]kv, 0, len(keys))
	for i, k := range keys {
		// An index entry can outlive its value when another client
		// deletes concurrently. Skip such holes.
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		items = append(items, kv{key: []byte(k), value: []byte(raw)})
	}
	return &sliceIterator{items: items}, nil
}

func assertValidKey(key []byte) {
	if len(key) == 0 {
		panic("key is nil")
	}
}

type kv struct {
	key   []byte
	value []byte
}

type sliceIterator struct {
	items []kv
	pos   int
}

func (s *sliceIterator) Next() ([]byte, []byte, error) {
	if s.pos >= len(s.items) {
		return nil, nil, errors.ErrIteratorDone
	}
	item := s.items[s.pos]
	s.pos++
	return item.key, item.value, nil
}

func (s *sliceIterator) Release() {
	s.items = nil
	s.pos = 0
}
