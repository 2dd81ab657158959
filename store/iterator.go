package store

import (
	"github.com/iov-one/bazaar/errors"
)

// sliceIterator walks a materialized list of items in order.
type sliceIterator struct {
	items []setItem
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
