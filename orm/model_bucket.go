package orm

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

// ModelBucket stores models of one kind under a shared key prefix. It
// operates directly on the KVStore; keys passed in are local to the
// bucket and get the prefix applied transparently.
type ModelBucket struct {
	prefix []byte
}

// NewModelBucket returns a bucket using the given name as key prefix.
// The name must be unique within an application.
func NewModelBucket(name string) ModelBucket {
	return ModelBucket{
		prefix: []byte(name + ":"),
	}
}

func (mb ModelBucket) dbKey(key []byte) []byte {
	return append(append([]byte{}, mb.prefix...), key...)
}

// One queries the database for a single model instance. Lookup is done
// by the primary key. Result is loaded into given destination model.
// This method returns ErrNotFound if the entity does not exist in the
// database.
func (mb ModelBucket) One(db bazaar.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(mb.dbKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot unmarshal into %T", dest)
	}
	return nil
}

// Has returns true when an entity with the given key exists.
func (mb ModelBucket) Has(db bazaar.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(mb.dbKey(key))
}

// Put validates and saves given model in the database.
func (mb ModelBucket) Put(db bazaar.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot serialize model")
	}
	if err := db.Set(mb.dbKey(key), raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}
	return nil
}

// Delete removes an entity with given primary key from the database.
// It returns ErrNotFound if an entity with given key does not exist.
func (mb ModelBucket) Delete(db bazaar.KVStore, key []byte) error {
	ok, err := db.Has(mb.dbKey(key))
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrNotFound
	}
	return db.Delete(mb.dbKey(key))
}

// Iterate walks all entities of the bucket in key order. For every
// entity the value is loaded into dest and fn is called with the
// bucket-local key. Returning ErrIteratorDone from fn stops the walk
// early without an error; any other error aborts the walk and is
// returned.
func (mb ModelBucket) Iterate(db bazaar.ReadOnlyKVStore, dest Model, fn func(key []byte) error) error {
	it, err := db.Iterator(bazaar.PrefixRange(mb.prefix))
	if err != nil {
		return err
	}
	defer it.Release()

	for {
		key, value, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := dest.Unmarshal(value); err != nil {
			return errors.Wrapf(err, "cannot unmarshal into %T", dest)
		}
		switch err := fn(key[len(mb.prefix):]); {
		case err == nil:
			// continue
		case errors.ErrIteratorDone.Is(err):
			return nil
		default:
			return err
		}
	}
}
