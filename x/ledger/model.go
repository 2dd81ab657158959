// Package ledger implements the account ledger: per address wallets of
// fungible asset balances and the transfer primitives the other
// extensions build on.
package ledger

import (
	"encoding/json"

	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/orm"
)

// Wallet holds the balances of one address. The owning address is the
// bucket key, not part of the model.
type Wallet struct {
	Coins coin.Coins `json:"coins"`
}

var _ orm.Model = (*Wallet)(nil)

func (w *Wallet) Marshal() ([]byte, error) {
	return json.Marshal(w)
}

func (w *Wallet) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, w)
}

// Validate ensures the wallet holds a normalized, positive coin set. An
// empty wallet is not valid: it is deleted instead of stored.
func (w *Wallet) Validate() error {
	if w.Coins.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "empty wallet")
	}
	return errors.Wrap(w.Coins.Validate(), "coins")
}

// NewWalletBucket returns the bucket holding all wallets, keyed by the
// owner address.
func NewWalletBucket() orm.ModelBucket {
	return orm.NewModelBucket("wallet")
}
