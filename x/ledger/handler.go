package ledger

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/x"
)

// TransferAuthorizer decides if a caller may move funds owned by
// another address. The operators extension implements it; a nil
// authorizer restricts transfers to the owner.
type TransferAuthorizer interface {
	IsAuthorized(db bazaar.ReadOnlyKVStore, caller, owner bazaar.Address, asset string) (bool, error)
}

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r bazaar.Registry, auth x.Authenticator, control Controller, operators TransferAuthorizer) {
	r.Handle(&SendMsg{}, SendHandler{
		auth:      auth,
		control:   control,
		operators: operators,
	})
}

// SendHandler processes ledger/send messages.
type SendHandler struct {
	auth      x.Authenticator
	control   Controller
	operators TransferAuthorizer
}

var _ bazaar.Handler = SendHandler{}

func (h SendHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h SendHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.control.MoveCoins(db, msg.Src, msg.Dest, msg.Amount); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{Log: msg.Memo}, nil
}

func (h SendHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*SendMsg, error) {
	var msg SendMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}

	if h.auth.HasAddress(ctx, msg.Src) {
		return &msg, nil
	}
	if h.operators == nil {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "source %s", msg.Src)
	}

	// Not the owner: the caller needs an operator grant for every
	// moved asset.
	callers := x.GetAddresses(ctx, h.auth)
	for _, a := range msg.Amount {
		switch ok, err := h.anyAuthorized(db, callers, msg.Src, a.Asset); {
		case err != nil:
			return nil, errors.Wrapf(err, "operator grant for %s", a.Asset)
		case !ok:
			return nil, errors.Wrapf(errors.ErrUnauthorized, "no operator grant for %s", a.Asset)
		}
	}
	return &msg, nil
}

func (h SendHandler) anyAuthorized(db bazaar.ReadOnlyKVStore, callers []bazaar.Address, owner bazaar.Address, asset string) (bool, error) {
	for _, c := range callers {
		ok, err := h.operators.IsAuthorized(db, c, owner, asset)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
