// Package market implements fixed price sales with revenue splits: an
// issuer locks a number of editions of an asset into custody and anyone
// may collect one for the exact unit price. The price is split between
// royalty recipients, the platform fee and donations; the floored
// remainder goes to the issuer.
package market

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
)

// maxDonations bounds the donation list of one swap.
const maxDonations = 5

// maxFeePermille bounds the configurable platform fee.
const maxFeePermille = 250

// SwapCondition returns the condition from which the custody account
// address of a swap is derived.
func SwapCondition(swapID []byte) bazaar.Condition {
	return bazaar.NewCondition("market", "swap", swapID)
}

// Share routes a per mille part of every sale to a recipient.
type Share struct {
	Recipient bazaar.Address `json:"recipient"`
	Permille  int64          `json:"permille"`
}

func (s Share) Validate() error {
	if err := s.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	if s.Permille < 1 || s.Permille > 1000 {
		return errors.Wrapf(errors.ErrAmount, "permille %d", s.Permille)
	}
	return nil
}

// Swap is a standing offer of editions for a fixed unit price.
type Swap struct {
	Issuer bazaar.Address `json:"issuer"`
	// Asset names the edition asset held in custody.
	Asset string `json:"asset"`
	// Editions is the number of items still for sale.
	Editions int64 `json:"editions"`
	// Price is the exact cost of one edition. A zero amount makes the
	// swap a giveaway with no split logic at all.
	Price     coin.Coin `json:"price"`
	Royalties []Share   `json:"royalties,omitempty"`
	Donations []Share   `json:"donations,omitempty"`
}

var _ orm.Model = (*Swap)(nil)

func (s *Swap) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Swap) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, s)
}

func (s *Swap) Validate() error {
	if err := s.Issuer.Validate(); err != nil {
		return errors.Wrap(err, "issuer")
	}
	if err := coin.NewCoin(s.Asset, 0).Validate(); err != nil {
		return errors.Wrap(err, "asset")
	}
	if s.Editions < 0 {
		return errors.Wrap(errors.ErrAmount, "negative editions")
	}
	if err := s.Price.Validate(); err != nil {
		return errors.Wrap(err, "price")
	}
	if len(s.Donations) > maxDonations {
		return errors.Wrapf(ErrTooManyDonations, "%d of %d", len(s.Donations), maxDonations)
	}
	for i, r := range s.Royalties {
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "royalty #%d", i)
		}
	}
	for i, d := range s.Donations {
		if err := d.Validate(); err != nil {
			return errors.Wrapf(err, "donation #%d", i)
		}
	}
	return nil
}

// SharesPermille sums the per mille shares of the swap, without the
// platform fee.
func (s *Swap) SharesPermille() int64 {
	var total int64
	for _, r := range s.Royalties {
		total += r.Permille
	}
	for _, d := range s.Donations {
		total += d.Permille
	}
	return total
}

// NewSwapBucket returns the bucket holding all swaps, keyed by the swap
// sequence id.
func NewSwapBucket() orm.ModelBucket {
	return orm.NewModelBucket("swap")
}

// NewSwapSeq returns the swap id sequence.
func NewSwapSeq() orm.Sequence {
	return orm.NewSequence("market", "swap_id")
}

// Configuration is the market package policy singleton.
type Configuration struct {
	// Admin may update this configuration.
	Admin bazaar.Address `json:"admin"`
	// ProposedAdmin is the pending half of a two step admin handover.
	// The proposed address claims the role with ClaimAdminMsg.
	ProposedAdmin bazaar.Address `json:"proposed_admin,omitempty"`
	// FeePermille is the platform cut of every sale, at most 250.
	FeePermille int64 `json:"fee_permille"`
	// FeeRecipient collects the platform fee. Required when a fee is
	// set.
	FeeRecipient bazaar.Address `json:"fee_recipient,omitempty"`
	// SwapsPaused blocks the creation of new swaps.
	SwapsPaused bool `json:"swaps_paused"`
	// CollectsPaused blocks collecting.
	CollectsPaused bool `json:"collects_paused"`
}

var _ gconf.Configuration = (*Configuration)(nil)

func (c *Configuration) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

func (c *Configuration) Validate() error {
	if err := c.Admin.Validate(); err != nil {
		return errors.Wrap(err, "admin")
	}
	if len(c.ProposedAdmin) != 0 {
		if err := c.ProposedAdmin.Validate(); err != nil {
			return errors.Wrap(err, "proposed admin")
		}
	}
	if c.FeePermille < 0 || c.FeePermille > maxFeePermille {
		return errors.Wrapf(errors.ErrAmount, "fee permille %d", c.FeePermille)
	}
	if c.FeePermille > 0 {
		if err := c.FeeRecipient.Validate(); err != nil {
			return errors.Wrap(err, "fee recipient")
		}
	}
	return nil
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, "market", &conf); {
	case err == nil:
		return conf, nil
	case errors.ErrNotFound.Is(err):
		// No configuration means no fee and nothing paused.
		return Configuration{}, nil
	default:
		return Configuration{}, err
	}
}
