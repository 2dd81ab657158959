// Package gconf maintains per package configuration singletons. Every
// extension that is runtime configurable keeps a single Configuration
// entity in the store and reads it through this package.
package gconf

import (
	"encoding/json"

	"github.com/iov-one/bazaar/errors"
)

// ReadStore is a subset of bazaar.ReadOnlyKVStore.
type ReadStore interface {
	Get([]byte) ([]byte, error)
}

// Store is a subset of bazaar.KVStore.
type Store interface {
	ReadStore
	Set([]byte, []byte) error
}

// Save will Validate the object, before writing it to a special
// "configuration" singleton for that package name.
func Save(db Store, pkg string, src ValidMarshaler) error {
	key := []byte("_c:" + pkg)
	if err := src.Validate(); err != nil {
		return errors.Wrapf(err, "validation: key %q", key)
	}
	raw, err := src.Marshal()
	if err != nil {
		return errors.Wrapf(err, "marshal: key %q", key)
	}
	return db.Set(key, raw)
}

// ValidMarshaler is implemented by an object that can serialize itself
// to a binary representation and knows how to validate its own state.
type ValidMarshaler interface {
	Marshal() ([]byte, error)
	Validate() error
}

// Load reads the configuration singleton of the given package into dst.
// It returns ErrNotFound when no configuration was ever saved.
func Load(db ReadStore, pkg string, dst Unmarshaler) error {
	key := []byte("_c:" + pkg)
	raw, err := db.Get(key)
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "key %q", key)
	}
	if err := dst.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "unmarshal: key %q", key)
	}
	return nil
}

// Unmarshaler is implemented by an object that can load its state from
// given binary representation.
type Unmarshaler interface {
	Unmarshal([]byte) error
}

// Configuration is implemented by each package configuration singleton.
type Configuration interface {
	ValidMarshaler
	Unmarshaler
}

// InitConfig takes the raw genesis declaration of the pkg
// configuration, parses it into the given Configuration object,
// validates it, and stores it under the proper key in the database.
func InitConfig(db Store, genesis []byte, pkg string, conf Configuration) error {
	var opts map[string]json.RawMessage
	if err := json.Unmarshal(genesis, &opts); err != nil {
		return errors.Wrap(err, "read conf")
	}
	raw, ok := opts[pkg]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "no configuration in genesis for %q package", pkg)
	}
	if err := conf.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "read configuration for %s", pkg)
	}
	if err := Save(db, pkg, conf); err != nil {
		return errors.Wrapf(err, "save configuration for %s", pkg)
	}
	return nil
}
