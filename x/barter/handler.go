package barter

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
	"github.com/iov-one/bazaar/x"
	"github.com/iov-one/bazaar/x/ledger"
)

// RegisterRoutes will instantiate and register all handlers in this
// package. The mover locks assets into and pays out of the trade custody
// accounts.
func RegisterRoutes(r bazaar.Registry, auth x.Authenticator, mover ledger.CoinMover) {
	trades := NewTradeBucket()
	seq := NewTradeSeq()
	r.Handle(&ProposeTradeMsg{}, ProposeTradeHandler{auth: auth, mover: mover, trades: trades, seq: seq})
	r.Handle(&AcceptTradeMsg{}, AcceptTradeHandler{auth: auth, mover: mover, trades: trades})
	r.Handle(&ExecuteTradeMsg{}, ExecuteTradeHandler{auth: auth, mover: mover, trades: trades})
	r.Handle(&CancelTradeMsg{}, CancelTradeHandler{auth: auth, mover: mover, trades: trades})
	r.Handle(&UpdateConfigurationMsg{}, UpdateConfigurationHandler{auth: auth})
}

func loadTrade(trades orm.ModelBucket, db bazaar.ReadOnlyKVStore, id []byte) (*Trade, error) {
	var t Trade
	if err := trades.One(db, id, &t); err != nil {
		return nil, errors.Wrapf(err, "trade %x", id)
	}
	return &t, nil
}

// requireOpen blocks transitions of settled trades.
func requireOpen(t *Trade, id []byte) error {
	switch t.Status {
	case StatusExecuted:
		return errors.Wrapf(errors.ErrExecuted, "trade %x", id)
	case StatusCancelled:
		return errors.Wrapf(errors.ErrCancelled, "trade %x", id)
	}
	return nil
}

// ProposeTradeHandler processes barter/propose messages.
type ProposeTradeHandler struct {
	auth   x.Authenticator
	mover  ledger.CoinMover
	trades orm.ModelBucket
	seq    orm.Sequence
}

var _ bazaar.Handler = ProposeTradeHandler{}

func (h ProposeTradeHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h ProposeTradeHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, issuer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	id, err := h.seq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "trade sequence")
	}

	// The offered side is locked up front. A trade that cannot afford
	// its own offer never comes into existence.
	if err := h.mover.MoveCoins(db, issuer, TradeCondition(id).Address(), msg.Offered); err != nil {
		return nil, errors.Wrapf(err, "lock offered assets")
	}

	trade := Trade{
		Issuer:       issuer,
		Counterparty: msg.Counterparty,
		Offered:      msg.Offered,
		Requested:    msg.Requested,
		IssuerLocked: true,
		Status:       StatusOpen,
	}
	if err := h.trades.Put(db, id, &trade); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{Data: id}, nil
}

func (h ProposeTradeHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*ProposeTradeMsg, bazaar.Address, error) {
	var msg ProposeTradeMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	issuer := x.MainSigner(ctx, h.auth)
	if issuer == nil {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}

	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range msg.Offered {
		if !conf.Allows(c.Asset) {
			return nil, nil, errors.Wrapf(ErrAssetNotAllowed, "offered %s", c.Asset)
		}
	}
	for _, c := range msg.Requested {
		if !conf.Allows(c.Asset) {
			return nil, nil, errors.Wrapf(ErrAssetNotAllowed, "requested %s", c.Asset)
		}
	}
	return &msg, issuer.Address(), nil
}

// AcceptTradeHandler processes barter/accept messages.
type AcceptTradeHandler struct {
	auth   x.Authenticator
	mover  ledger.CoinMover
	trades orm.ModelBucket
}

var _ bazaar.Handler = AcceptTradeHandler{}

func (h AcceptTradeHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h AcceptTradeHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, trade, accepter, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if err := h.mover.MoveCoins(db, accepter, TradeCondition(msg.TradeID).Address(), msg.Payment); err != nil {
		return nil, errors.Wrapf(err, "lock payment")
	}

	// The first accept of an open offer binds the counterparty for the
	// lifetime of the trade.
	if len(trade.Counterparty) == 0 {
		trade.Counterparty = accepter
	}
	trade.CounterpartyLocked = true
	if err := h.trades.Put(db, msg.TradeID, trade); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h AcceptTradeHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*AcceptTradeMsg, *Trade, bazaar.Address, error) {
	var msg AcceptTradeMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, err
	}
	trade, err := loadTrade(h.trades, db, msg.TradeID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireOpen(trade, msg.TradeID); err != nil {
		return nil, nil, nil, err
	}

	accepter := x.MainSigner(ctx, h.auth)
	if accepter == nil {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	if len(trade.Counterparty) != 0 && !h.auth.HasAddress(ctx, trade.Counterparty) {
		return nil, nil, nil, errors.Wrapf(ErrWrongCounterparty, "trade %x is reserved", msg.TradeID)
	}
	if trade.CounterpartyLocked {
		return nil, nil, nil, errors.Wrapf(errors.ErrState, "trade %x already accepted", msg.TradeID)
	}
	if !msg.Payment.Equals(trade.Requested) {
		return nil, nil, nil, errors.Wrapf(ErrPaymentMismatch, "trade %x requests %s", msg.TradeID, trade.Requested)
	}
	return &msg, trade, accepter.Address(), nil
}

// ExecuteTradeHandler processes barter/execute messages.
type ExecuteTradeHandler struct {
	auth   x.Authenticator
	mover  ledger.CoinMover
	trades orm.ModelBucket
}

var _ bazaar.Handler = ExecuteTradeHandler{}

func (h ExecuteTradeHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h ExecuteTradeHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, trade, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	custody := TradeCondition(msg.TradeID).Address()
	if err := h.mover.MoveCoins(db, custody, trade.Counterparty, trade.Offered); err != nil {
		return nil, errors.Wrapf(err, "pay out offered")
	}
	if err := h.mover.MoveCoins(db, custody, trade.Issuer, trade.Requested); err != nil {
		return nil, errors.Wrapf(err, "pay out requested")
	}

	trade.Status = StatusExecuted
	trade.IssuerLocked = false
	trade.CounterpartyLocked = false
	if err := h.trades.Put(db, msg.TradeID, trade); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h ExecuteTradeHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*ExecuteTradeMsg, *Trade, error) {
	var msg ExecuteTradeMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	trade, err := loadTrade(h.trades, db, msg.TradeID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireOpen(trade, msg.TradeID); err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, trade.Issuer) && !h.auth.HasAddress(ctx, trade.Counterparty) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "only a trade party may execute")
	}
	if !trade.IssuerLocked || !trade.CounterpartyLocked {
		return nil, nil, errors.Wrapf(errors.ErrState, "trade %x is not fully locked", msg.TradeID)
	}
	return &msg, trade, nil
}

// CancelTradeHandler processes barter/cancel messages.
type CancelTradeHandler struct {
	auth   x.Authenticator
	mover  ledger.CoinMover
	trades orm.ModelBucket
}

var _ bazaar.Handler = CancelTradeHandler{}

func (h CancelTradeHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h CancelTradeHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, trade, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	custody := TradeCondition(msg.TradeID).Address()
	switch {
	case h.auth.HasAddress(ctx, trade.Issuer) && trade.IssuerLocked:
		if err := h.mover.MoveCoins(db, custody, trade.Issuer, trade.Offered); err != nil {
			return nil, errors.Wrapf(err, "refund offered")
		}
		trade.IssuerLocked = false
	case len(trade.Counterparty) != 0 && h.auth.HasAddress(ctx, trade.Counterparty) && trade.CounterpartyLocked:
		if err := h.mover.MoveCoins(db, custody, trade.Counterparty, trade.Requested); err != nil {
			return nil, errors.Wrapf(err, "refund payment")
		}
		trade.CounterpartyLocked = false
	default:
		return nil, errors.Wrapf(ErrNothingToCancel, "trade %x", msg.TradeID)
	}

	// Only a trade with no custody left is terminally cancelled. With
	// one side still locked the trade stays open, e.g. for another
	// accept after the responder backed out.
	if !trade.IssuerLocked && !trade.CounterpartyLocked {
		trade.Status = StatusCancelled
	}
	if err := h.trades.Put(db, msg.TradeID, trade); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h CancelTradeHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*CancelTradeMsg, *Trade, error) {
	var msg CancelTradeMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	trade, err := loadTrade(h.trades, db, msg.TradeID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireOpen(trade, msg.TradeID); err != nil {
		return nil, nil, err
	}
	isIssuer := h.auth.HasAddress(ctx, trade.Issuer)
	isCounterparty := len(trade.Counterparty) != 0 && h.auth.HasAddress(ctx, trade.Counterparty)
	if !isIssuer && !isCounterparty {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "only a trade party may cancel")
	}
	return &msg, trade, nil
}

// UpdateConfigurationHandler processes barter/update_configuration
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
	if err := gconf.Save(db, "barter", &msg.Patch); err != nil {
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
