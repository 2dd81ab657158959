package app

import (
	"bytes"
	"sort"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

// cacheStore buffers all writes in memory until they are either flushed
// to the parent store or discarded. The dispatcher uses it so a failed
// transition cannot leave a half applied state behind.
type cacheStore struct {
	parent bazaar.KVStore
	ops    map[string]cachedOp
}

type cachedOp struct {
	delete bool
	value  []byte
}

var _ bazaar.KVStore = (*cacheStore)(nil)

func newCacheStore(parent bazaar.KVStore) *cacheStore {
	return &cacheStore{
		parent: parent,
		ops:    make(map[string]cachedOp),
	}
}

func (c *cacheStore) Get(key []byte) ([]byte, error) {
	if op, ok := c.ops[string(key)]; ok {
		if op.delete {
			return nil, nil
		}
		return op.value, nil
	}
	return c.parent.Get(key)
}

func (c *cacheStore) Has(key []byte) (bool, error) {
	if op, ok := c.ops[string(key)]; ok {
		return !op.delete, nil
	}
	return c.parent.Has(key)
}

func (c *cacheStore) Set(key, value []byte) error {
	c.ops[string(key)] = cachedOp{value: value}
	return nil
}

func (c *cacheStore) Delete(key []byte) error {
	c.ops[string(key)] = cachedOp{delete: true}
	return nil
}

// Iterator merges the parent state with the buffered writes into an
// ordered snapshot.
func (c *cacheStore) Iterator(start, end []byte) (bazaar.Iterator, error) {
	merged := make(map[string][]byte)

	it, err := c.parent.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	for {
		k, v, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		merged[string(k)] = v
	}

	for key, op := range c.ops {
		if !inRange([]byte(key), start, end) {
			continue
		}
		if op.delete {
			delete(merged, key)
		} else {
			merged[key] = op.value
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]mergedItem, len(keys))
	for i, k := range keys {
		items[i] = mergedItem{key: []byte(k), value: merged[k]}
	}
	return &mergedIterator{items: items}, nil
}

// Write flushes all buffered operations to the parent store in key
// order. The cache must not be used afterwards.
func (c *cacheStore) Write() error {
	keys := make([]string, 0, len(c.ops))
	for k := range c.ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		op := c.ops[k]
		if op.delete {
			// The parent may not hold the key at all when a handler
			// creates and deletes within one transition.
			if ok, err := c.parent.Has([]byte(k)); err != nil {
				return err
			} else if !ok {
				continue
			}
			if err := c.parent.Delete([]byte(k)); err != nil {
				return err
			}
		} else {
			if err := c.parent.Set([]byte(k), op.value); err != nil {
				return err
			}
		}
	}
	c.ops = nil
	return nil
}

func inRange(key, start, end []byte) bool {
	if start != nil && bytes.Compare(key, start) < 0 {
		return false
	}
	if end != nil && bytes.Compare(key, end) >= 0 {
		return false
	}
	return true
}

type mergedItem struct {
	key   []byte
	value []byte
}

type mergedIterator struct {
	items []mergedItem
	pos   int
}

func (m *mergedIterator) Next() ([]byte, []byte, error) {
	if m.pos >= len(m.items) {
		return nil, nil, errors.ErrIteratorDone
	}
	item := m.items[m.pos]
	m.pos++
	return item.key, item.value, nil
}

func (m *mergedIterator) Release() {
	m.items = nil
	m.pos = 0
}
