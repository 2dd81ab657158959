// Package orm provides a thin object layer over a raw KVStore: buckets
// that namespace entities of one kind and sequences that hand out their
// primary keys.
package orm

import (
	"github.com/iov-one/bazaar"
)

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	bazaar.Persistent
	Validate() error
}
