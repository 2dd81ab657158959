// Package operators maintains transfer grants: an owner can allow
// another address to move a specific asset (or any asset) out of the
// owner's wallet. The ledger consults this registry for transfers that
// are not signed by the owner.
package operators

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
)

// WildcardAsset grants an operator all assets of the owner.
const WildcardAsset = "*"

// Grant is the stored record of one operator permission. The bucket key
// is (owner | operator | asset), so the model only repeats the asset for
// readability of raw dumps.
type Grant struct {
	Asset string `json:"asset"`
}

var _ orm.Model = (*Grant)(nil)

func (g *Grant) Marshal() ([]byte, error) {
	return json.Marshal(g)
}

func (g *Grant) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, g)
}

func (g *Grant) Validate() error {
	return validateAsset(g.Asset)
}

// NewGrantBucket returns the bucket holding all operator grants.
func NewGrantBucket() orm.ModelBucket {
	return orm.NewModelBucket("grant")
}

// grantKey builds the bucket key. Addresses have a fixed length, so the
// concatenation is unambiguous.
func grantKey(owner, operator bazaar.Address, asset string) []byte {
	key := make([]byte, 0, len(owner)+len(operator)+len(asset))
	key = append(key, owner...)
	key = append(key, operator...)
	return append(key, asset...)
}

func validateAsset(asset string) error {
	if asset == WildcardAsset {
		return nil
	}
	if err := coin.NewCoin(asset, 0).Validate(); err != nil {
		return errors.Wrapf(errors.ErrInput, "asset %q", asset)
	}
	return nil
}

// Configuration is the operators package policy singleton.
type Configuration struct {
	// Admin may update this configuration.
	Admin bazaar.Address `json:"admin"`
	// AdminCanTransfer extends every transfer authorization to the
	// admin. Disabled unless the host explicitly opts in.
	AdminCanTransfer bool `json:"admin_can_transfer"`
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
	return nil
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	switch err := gconf.Load(db, "operators", &conf); {
	case err == nil:
		return conf, nil
	case errors.ErrNotFound.Is(err):
		// No configuration means no admin and default policy.
		return Configuration{}, nil
	default:
		return Configuration{}, err
	}
}
