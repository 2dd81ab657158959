// Package barter implements asset for asset trades with escrow custody.
// The offered side is locked into a per trade custody account the moment
// the trade is proposed; the responder locks the requested side on
// accept; execution swaps both sides atomically.
package barter

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
)

// TradeCondition returns the condition from which the custody account
// address of a trade is derived.
func TradeCondition(tradeID []byte) bazaar.Condition {
	return bazaar.NewCondition("barter", "trade", tradeID)
}

// Status of a stored trade.
type Status string

const (
	StatusOpen      Status = "open"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Trade is a pending or settled asset swap between two parties.
type Trade struct {
	Issuer bazaar.Address `json:"issuer"`
	// Counterparty is empty for an open offer and bound exactly once,
	// either at proposal time or by the first accept.
	Counterparty bazaar.Address `json:"counterparty,omitempty"`
	Offered      coin.Coins     `json:"offered"`
	Requested    coin.Coins     `json:"requested"`
	// IssuerLocked is true while the offered side sits in custody.
	IssuerLocked bool `json:"issuer_locked"`
	// CounterpartyLocked is true while the requested side sits in
	// custody.
	CounterpartyLocked bool   `json:"counterparty_locked"`
	Status             Status `json:"status"`
}

var _ orm.Model = (*Trade)(nil)

func (t *Trade) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Trade) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, t)
}

func (t *Trade) Validate() error {
	if err := t.Issuer.Validate(); err != nil {
		return errors.Wrap(err, "issuer")
	}
	if len(t.Counterparty) != 0 {
		if err := t.Counterparty.Validate(); err != nil {
			return errors.Wrap(err, "counterparty")
		}
	}
	if t.Offered.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "offered")
	}
	if err := t.Offered.Validate(); err != nil {
		return errors.Wrap(err, "offered")
	}
	if t.Requested.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "requested")
	}
	if err := t.Requested.Validate(); err != nil {
		return errors.Wrap(err, "requested")
	}
	switch t.Status {
	case StatusOpen, StatusExecuted, StatusCancelled:
	default:
		return errors.Wrapf(errors.ErrState, "status %q", t.Status)
	}
	return nil
}

// NewTradeBucket returns the bucket holding all trades, keyed by the
// trade sequence id.
func NewTradeBucket() orm.ModelBucket {
	return orm.NewModelBucket("trade")
}

// NewTradeSeq returns the trade id sequence.
func NewTradeSeq() orm.Sequence {
	return orm.NewSequence("barter", "trade_id")
}

// Configuration is the barter package policy singleton.
type Configuration struct {
	// Admin may update this configuration.
	Admin bazaar.Address `json:"admin"`
	// AllowedAssets restricts the assets a trade may name. An empty
	// list means no restriction.
	AllowedAssets []string `json:"allowed_assets,omitempty"`
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
	for i, a := range c.AllowedAssets {
		if err := coin.NewCoin(a, 0).Validate(); err != nil {
			return errors.Wrapf(errors.ErrInput, "allowed asset #%d", i)
		}
	}
	return nil
}

// Allows returns true when trades may name the given asset.
func (c *Configuration) Allows(asset string) bool {
	if len(c.AllowedAssets) == 0 {
		return true
	}
	for _, a := range c.AllowedAssets {
		if a == asset {
			return true
		}
	}
	return false
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, "barter", &conf); {
	case err == nil:
		return conf, nil
	case errors.ErrNotFound.Is(err):
		// No configuration means no admin and no asset restriction.
		return Configuration{}, nil
	default:
		return Configuration{}, err
	}
}
