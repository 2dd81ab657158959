// Package store provides KVStore implementations for the engine state.
//
// MemStore is the default backend: a btree-ordered in-memory store that
// supports the prefix iteration the orm layer relies on. Hosts that keep
// state out of process can use the redisstore subpackage instead; both
// satisfy the same bazaar.KVStore interface.
package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/iov-one/bazaar"
)

// BTreeStore is an in-memory KVStore backed by a btree. There is no
// persistence; it is useful for tests and as a state cache for hosts
// that snapshot through some other mechanism.
type BTreeStore struct {
	bt *btree.BTree
}

var _ bazaar.KVStore = (*BTreeStore)(nil)

// MemStore returns an empty in-memory store.
func MemStore() *BTreeStore {
	return &BTreeStore{
		bt: btree.New(2),
	}
}

// Set writes the key to the btree. Nil key panics, matching the KVStore
// contract.
func (s *BTreeStore) Set(key, value []byte) error {
	assertValidKey(key)
	s.bt.ReplaceOrInsert(newSetItem(key, value))
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (s *BTreeStore) Delete(key []byte) error {
	assertValidKey(key)
	s.bt.Delete(bkey{key})
	return nil
}

// Get returns the stored value, nil when absent.
func (s *BTreeStore) Get(key []byte) ([]byte, error) {
	assertValidKey(key)
	res := s.bt.Get(bkey{key})
	if res == nil {
		return nil, nil
	}
	return res.(setItem).value, nil
}

// Has checks for key existence.
func (s *BTreeStore) Has(key []byte) (bool, error) {
	assertValidKey(key)
	return s.bt.Has(bkey{key}), nil
}

// Iterator returns an ascending iterator over the [start, end) domain.
// Nil start means from the first key, nil end means through the last.
//
// The iterator works on a snapshot of the matching items, so the store
// may be modified while iterating.
func (s *BTreeStore) Iterator(start, end []byte) (bazaar.Iterator, error) {
	var items []setItem
	visit := func(item btree.Item) bool {
		set := item.(setItem)
		if end != nil && bytes.Compare(set.key, end) >= 0 {
			return false
		}
		items = append(items, set)
		return true
	}

	if start == nil {
		s.bt.Ascend(visit)
	} else {
		s.bt.AscendGreaterOrEqual(bkey{start}, visit)
	}
	return &sliceIterator{items: items}, nil
}

func assertValidKey(key []byte) {
	if len(key) == 0 {
		panic("key is nil")
	}
}

// we enforce all data in our btree implements keyer so we can compare
// nicely
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item and may be used for queries or
// embedded in data to store.
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first.
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

type setItem struct {
	bkey
	value []byte
}

func newSetItem(key, value []byte) setItem {
	return setItem{bkey{key}, value}
}
