package coin

import (
	"sort"
	"strings"

	"github.com/iov-one/bazaar/errors"
)

// Coins is a normalized set of coins: sorted by asset id, at most one
// entry per asset, no zero entries. Use the methods on this type to keep
// the invariants; never mutate entries in place.
type Coins []Coin

// NewCoins normalizes the given coins into a set. Quantities of the same
// asset are combined, zero entries dropped. Invalid coins are rejected.
func NewCoins(coins ...Coin) (Coins, error) {
	var res Coins
	for _, c := range coins {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		var err error
		if res, err = res.Add(c); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Clone returns a deep copy of the set.
func (cs Coins) Clone() Coins {
	if cs == nil {
		return nil
	}
	res := make(Coins, len(cs))
	copy(res, cs)
	return res
}

// Add returns a new set with the given quantity combined in. A zero
// quantity is a no-op. The receiver is not modified.
func (cs Coins) Add(c Coin) (Coins, error) {
	if c.Amount < 0 {
		return nil, errors.Wrapf(errors.ErrAmount, "negative amount of %s", c.Asset)
	}
	if c.IsZero() {
		return cs.Clone(), nil
	}

	res := cs.Clone()
	i := sort.Search(len(res), func(n int) bool { return res[n].Asset >= c.Asset })
	if i < len(res) && res[i].Asset == c.Asset {
		sum, err := res[i].Add(c)
		if err != nil {
			return nil, err
		}
		res[i] = sum
		return res, nil
	}

	res = append(res, Coin{})
	copy(res[i+1:], res[i:])
	res[i] = c
	return res, nil
}

// Subtract returns a new set with the given quantity removed. It fails
// with ErrInsufficientFunds when the set holds less than the subtracted
// amount; a balance can never go negative.
func (cs Coins) Subtract(c Coin) (Coins, error) {
	if c.Amount < 0 {
		return nil, errors.Wrapf(errors.ErrAmount, "negative amount of %s", c.Asset)
	}
	if c.IsZero() {
		return cs.Clone(), nil
	}

	i := sort.Search(len(cs), func(n int) bool { return cs[n].Asset >= c.Asset })
	if i == len(cs) || cs[i].Asset != c.Asset || cs[i].Amount < c.Amount {
		return nil, errors.Wrapf(errors.ErrInsufficientFunds, "%d %s available", cs.AmountOf(c.Asset), c.Asset)
	}

	res := cs.Clone()
	res[i].Amount -= c.Amount
	if res[i].Amount == 0 {
		res = append(res[:i], res[i+1:]...)
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res, nil
}

// Combine merges two sets into a new one.
func (cs Coins) Combine(o Coins) (Coins, error) {
	res := cs.Clone()
	for _, c := range o {
		var err error
		if res, err = res.Add(c); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Contains returns true when the set holds at least the given quantity.
func (cs Coins) Contains(c Coin) bool {
	return cs.AmountOf(c.Asset) >= c.Amount
}

// ContainsAll returns true when the set holds at least every quantity of
// the other set.
func (cs Coins) ContainsAll(o Coins) bool {
	for _, c := range o {
		if !cs.Contains(c) {
			return false
		}
	}
	return true
}

// AmountOf returns the held quantity of the given asset, zero when the
// asset is absent. Absence is not an error.
func (cs Coins) AmountOf(asset string) int64 {
	i := sort.Search(len(cs), func(n int) bool { return cs[n].Asset >= asset })
	if i == len(cs) || cs[i].Asset != asset {
		return 0
	}
	return cs[i].Amount
}

// IsPositive returns true when the set holds at least one positive
// quantity.
func (cs Coins) IsPositive() bool {
	for _, c := range cs {
		if c.IsPositive() {
			return true
		}
	}
	return false
}

// IsEmpty returns true when the set holds nothing.
func (cs Coins) IsEmpty() bool {
	return len(cs) == 0
}

// Equals returns true when both sets hold exactly the same quantities.
func (cs Coins) Equals(o Coins) bool {
	if len(cs) != len(o) {
		return false
	}
	for i := range cs {
		if !cs[i].Equals(o[i]) {
			return false
		}
	}
	return true
}

// Validate returns an error unless the set is normalized: every coin
// valid and positive, assets unique and sorted.
func (cs Coins) Validate() error {
	last := ""
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
		if !c.IsPositive() {
			return errors.Wrapf(errors.ErrAmount, "zero entry for %s", c.Asset)
		}
		if c.Asset <= last {
			return errors.Wrap(errors.ErrState, "coins not sorted by asset")
		}
		last = c.Asset
	}
	return nil
}

func (cs Coins) String() string {
	if len(cs) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
