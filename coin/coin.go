package coin

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"github.com/iov-one/bazaar/errors"
)

// An asset identifier names a fungible asset tracked by the ledger. It can
// be a plain currency ticker ("TEZ") or a reference into a token contract
// ("fa2:KT1RJ6PbjHpwc3/42"). The format is deliberately loose; the engine
// treats identifiers as opaque keys.
var isAssetID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:/_\-]{2,63}$`).MatchString

// maxAmount is the upper bound for a single balance entry. It leaves
// headroom below math.MaxInt64 so that a sum of two valid amounts can be
// checked for overflow before it wraps.
const maxAmount = math.MaxInt64 / 2

// Coin is a non-negative quantity of a single asset.
type Coin struct {
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// NewCoin creates a quantity of the given asset.
func NewCoin(asset string, amount int64) Coin {
	return Coin{
		Asset:  asset,
		Amount: amount,
	}
}

// Add combines two quantities of the same asset. It returns an error when
// the assets differ or the result overflows.
func (c Coin) Add(o Coin) (Coin, error) {
	if !c.SameAsset(o) {
		return Coin{}, errors.Wrapf(errors.ErrAmount, "adding %s to %s", o.Asset, c.Asset)
	}
	sum := c.Amount + o.Amount
	if sum > maxAmount {
		return Coin{}, errors.Wrapf(errors.ErrOverflow, "%s amount", c.Asset)
	}
	return Coin{Asset: c.Asset, Amount: sum}, nil
}

// SameAsset returns true when both coins name the same asset.
func (c Coin) SameAsset(o Coin) bool {
	return c.Asset == o.Asset
}

// IsPositive returns true if the amount is greater than zero.
func (c Coin) IsPositive() bool {
	return c.Amount > 0
}

// IsZero returns true if the amount is zero.
func (c Coin) IsZero() bool {
	return c.Amount == 0
}

// Split divides the amount into a per-mille share, flooring the result.
// 100 is 10%. Each share is floored separately and any rounding
// remainder accrues to whoever collects the rest. The division runs
// first so that the product never overflows for a valid amount and a
// permille within [0, 1000].
func (c Coin) Split(permille int64) Coin {
	whole, rest := c.Amount/1000, c.Amount%1000
	return Coin{
		Asset:  c.Asset,
		Amount: whole*permille + rest*permille/1000,
	}
}

// Validate returns an error if the coin is not well formed. A zero amount
// is valid; a negative one is not.
func (c Coin) Validate() error {
	if !isAssetID(c.Asset) {
		return errors.Wrapf(errors.ErrAmount, "invalid asset id: %q", c.Asset)
	}
	if c.Amount < 0 {
		return errors.Wrapf(errors.ErrAmount, "negative amount of %s", c.Asset)
	}
	if c.Amount > maxAmount {
		return errors.Wrapf(errors.ErrOverflow, "%s amount", c.Asset)
	}
	return nil
}

// Equals returns true when both asset and amount match.
func (c Coin) Equals(o Coin) bool {
	return c.Asset == o.Asset && c.Amount == o.Amount
}

func (c Coin) String() string {
	return fmt.Sprintf("%d %s", c.Amount, c.Asset)
}

// Marshal implements the Persistent interface.
func (c *Coin) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal implements the Persistent interface.
func (c *Coin) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}
