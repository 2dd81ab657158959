package bazaar

// ReadOnlyKVStore is a simple interface to query data.
type ReadOnlyKVStore interface {
	// Get returns nil iff key doesn't exist. Panics on nil key.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists. Panics on nil key.
	Has(key []byte) (bool, error)

	// Iterator over a domain of keys in ascending order. End is exclusive.
	// Start must be less than end, or the Iterator is invalid.
	// Iterator must be closed by caller.
	Iterator(start, end []byte) (Iterator, error)
}

// KVStore is a simple interface to get/set data.
type KVStore interface {
	ReadOnlyKVStore

	// Set sets the key. Panics on nil key.
	Set(key, value []byte) error

	// Delete deletes the key. Panics on nil key.
	Delete(key []byte) error
}

// Iterator allows iteration over the domain of keys of a KVStore.
type Iterator interface {
	// Next moves the iterator to the next sequential key in the database,
	// as defined by order of iteration. It returns ErrIteratorDone when
	// the iterator is exhausted.
	Next() (key, value []byte, err error)

	// Release releases the Iterator.
	Release()
}

// PrefixRange turns a prefix into (start, end) to create an iterator over
// the set of all keys with that prefix.
//
//	Get(key) == Iterator(PrefixRange(key)).Next().value
func PrefixRange(prefix []byte) ([]byte, []byte) {
	if prefix == nil {
		return nil, nil
	}

	// special case: copy the prefix and update last byte
	end := make([]byte, len(prefix))
	copy(end, prefix)
	l := len(end) - 1
	end[l]++

	// wait, what if that overflowed the last byte? then we need to move
	// the carry bit up one place
	for end[l] == 0 {
		if l == 0 {
			// overflowed the whole prefix, iterate to the end
			return prefix, nil
		}
		l--
		end[l]++
	}
	return prefix, end
}
