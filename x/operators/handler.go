package operators

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
	"github.com/iov-one/bazaar/x"
)

// Registry answers transfer authorization questions. It implements the
// ledger.TransferAuthorizer interface.
type Registry struct {
	bucket orm.ModelBucket
}

// NewRegistry returns a registry operating on the default grant bucket.
func NewRegistry() Registry {
	return Registry{bucket: NewGrantBucket()}
}

// IsAuthorized returns true when the caller may move the given asset out
// of the owner's wallet: the caller is the owner, holds an explicit or
// wildcard grant, or is the configured admin while AdminCanTransfer is
// enabled.
func (r Registry) IsAuthorized(db bazaar.ReadOnlyKVStore, caller, owner bazaar.Address, asset string) (bool, error) {
	if caller.Equals(owner) {
		return true, nil
	}
	for _, a := range []string{asset, WildcardAsset} {
		ok, err := r.bucket.Has(db, grantKey(owner, caller, a))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	conf, err := loadConf(db)
	if err != nil {
		return false, err
	}
	if conf.AdminCanTransfer && caller.Equals(conf.Admin) {
		return true, nil
	}
	return false, nil
}

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r bazaar.Registry, auth x.Authenticator, registry Registry) {
	r.Handle(&UpdateOperatorsMsg{}, UpdateOperatorsHandler{auth: auth, registry: registry})
	r.Handle(&UpdateConfigurationMsg{}, UpdateConfigurationHandler{auth: auth})
}

// UpdateOperatorsHandler processes operators/update messages.
type UpdateOperatorsHandler struct {
	auth     x.Authenticator
	registry Registry
}

var _ bazaar.Handler = UpdateOperatorsHandler{}

func (h UpdateOperatorsHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h UpdateOperatorsHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	for _, u := range msg.Updates {
		key := grantKey(msg.Owner, u.Operator, u.Asset)
		switch u.Action {
		case ActionAdd:
			if err := h.registry.bucket.Put(db, key, &Grant{Asset: u.Asset}); err != nil {
				return nil, errors.Wrapf(err, "grant %s to %s", u.Asset, u.Operator)
			}
		case ActionRemove:
			// Removing a grant that does not exist is a success.
			switch err := h.registry.bucket.Delete(db, key); {
			case err == nil, errors.ErrNotFound.Is(err):
			default:
				return nil, errors.Wrapf(err, "revoke %s from %s", u.Asset, u.Operator)
			}
		}
	}
	return &bazaar.DeliverResult{}, nil
}

func (h UpdateOperatorsHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*UpdateOperatorsMsg, error) {
	var msg UpdateOperatorsMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}

	if h.auth.HasAddress(ctx, msg.Owner) {
		return &msg, nil
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if conf.AdminCanTransfer && len(conf.Admin) != 0 && h.auth.HasAddress(ctx, conf.Admin) {
		return &msg, nil
	}
	return nil, errors.Wrapf(errors.ErrUnauthorized, "owner %s", msg.Owner)
}

// UpdateConfigurationHandler processes operators/update_configuration
// messages.
type UpdateConfigurationHandler struct {
	auth x.Authenticator
}

var _ bazaar.Handler = UpdateConfigurationHandler{}

func (h UpdateConfigurationHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := gconf.Save(db, "operators", &msg.Patch); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h UpdateConfigurationHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*UpdateConfigurationMsg, error) {
	var msg UpdateConfigurationMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}

	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if len(conf.Admin) == 0 {
		return nil, errors.Wrap(errors.ErrState, "no admin configured")
	}
	if !h.auth.HasAddress(ctx, conf.Admin) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "admin signature required")
	}
	return &msg, nil
}
