package ledger

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/orm"
)

// CoinMover is the capability to transfer funds between accounts. The
// escrow style extensions consume this interface instead of the full
// controller, so a host can substitute an external transfer primitive.
type CoinMover interface {
	MoveCoins(db bazaar.KVStore, src, dest bazaar.Address, amount coin.Coins) error
}

// CoinMinter is the capability to credit funds out of thin air.
type CoinMinter interface {
	IssueCoins(db bazaar.KVStore, dest bazaar.Address, amount coin.Coins) error
}

// Controller implements the ledger business logic on top of the wallet
// bucket.
type Controller struct {
	bucket orm.ModelBucket
}

var _ CoinMover = Controller{}
var _ CoinMinter = Controller{}

// NewController returns a controller operating on the default wallet
// bucket.
func NewController() Controller {
	return Controller{bucket: NewWalletBucket()}
}

// MoveCoins debits the source and credits the destination. The transfer
// is all or nothing: on any failure no wallet is changed. A balance can
// never go negative; a shortfall fails with ErrInsufficientFunds. Zero
// amounts are valid and move nothing.
func (c Controller) MoveCoins(db bazaar.KVStore, src, dest bazaar.Address, amount coin.Coins) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if src.Equals(dest) {
		// Self transfer cannot change any balance but must still
		// hold the funds being moved.
		balance, err := c.Balance(db, src)
		if err != nil {
			return err
		}
		if !balance.ContainsAll(amount) {
			return errors.Wrapf(errors.ErrInsufficientFunds, "account %s", src)
		}
		return nil
	}

	sender, err := c.Balance(db, src)
	if err != nil {
		return err
	}
	for _, a := range amount {
		if sender, err = sender.Subtract(a); err != nil {
			return errors.Wrapf(err, "account %s", src)
		}
	}

	recipient, err := c.Balance(db, dest)
	if err != nil {
		return err
	}
	if recipient, err = recipient.Combine(amount); err != nil {
		return errors.Wrapf(err, "account %s", dest)
	}

	if err := c.save(db, src, sender); err != nil {
		return err
	}
	return c.save(db, dest, recipient)
}

// IssueCoins credits the destination without debiting anyone. This is
// how the host funds accounts.
func (c Controller) IssueCoins(db bazaar.KVStore, dest bazaar.Address, amount coin.Coins) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	recipient, err := c.Balance(db, dest)
	if err != nil {
		return err
	}
	if recipient, err = recipient.Combine(amount); err != nil {
		return errors.Wrapf(err, "account %s", dest)
	}
	return c.save(db, dest, recipient)
}

// Balance returns the coins held by the given address. A missing wallet
// is an empty balance, not an error.
func (c Controller) Balance(db bazaar.ReadOnlyKVStore, addr bazaar.Address) (coin.Coins, error) {
	var w Wallet
	switch err := c.bucket.One(db, addr, &w); {
	case err == nil:
		return w.Coins, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}

// AssetSupply sums the holdings of the given asset over all wallets.
// Custody accounts count like any other, so the supply of an asset is
// constant under transfers.
func (c Controller) AssetSupply(db bazaar.ReadOnlyKVStore, asset string) (int64, error) {
	var total int64
	var w Wallet
	err := c.bucket.Iterate(db, &w, func([]byte) error {
		sum, err := coin.NewCoin(asset, total).Add(coin.NewCoin(asset, w.Coins.AmountOf(asset)))
		if err != nil {
			return err
		}
		total = sum.Amount
		return nil
	})
	return total, err
}

// save stores the wallet, or deletes it when the balance ran empty.
func (c Controller) save(db bazaar.KVStore, addr bazaar.Address, coins coin.Coins) error {
	if coins.IsEmpty() {
		ok, err := c.bucket.Has(db, addr)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return c.bucket.Delete(db, addr)
	}
	return c.bucket.Put(db, addr, &Wallet{Coins: coins})
}

func validAmount(amount coin.Coins) error {
	for _, a := range amount {
		if a.Amount < 0 {
			return errors.Wrapf(errors.ErrAmount, "negative amount of %s", a.Asset)
		}
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}
