package market

import (
	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/orm"
	"github.com/iov-one/bazaar/x"
	"github.com/iov-one/bazaar/x/ledger"
)

// RegisterRoutes will instantiate and register all handlers in this
// package.
func RegisterRoutes(r bazaar.Registry, auth x.Authenticator, mover ledger.CoinMover) {
	swaps := NewSwapBucket()
	r.Handle(&SwapMsg{}, SwapHandler{auth: auth, mover: mover, swaps: swaps, seq: NewSwapSeq()})
	r.Handle(&CollectMsg{}, CollectHandler{auth: auth, mover: mover, swaps: swaps})
	r.Handle(&CancelSwapMsg{}, CancelSwapHandler{auth: auth, mover: mover, swaps: swaps})
	r.Handle(&UpdateConfigurationMsg{}, UpdateConfigurationHandler{auth: auth})
	r.Handle(&ClaimAdminMsg{}, ClaimAdminHandler{auth: auth})
}

func loadSwap(swaps orm.ModelBucket, db bazaar.ReadOnlyKVStore, id []byte) (*Swap, error) {
	var s Swap
	if err := swaps.One(db, id, &s); err != nil {
		return nil, errors.Wrapf(err, "swap %x", id)
	}
	return &s, nil
}

// SwapHandler processes market/swap messages.
type SwapHandler struct {
	auth  x.Authenticator
	mover ledger.CoinMover
	swaps orm.ModelBucket
	seq   orm.Sequence
}

var _ bazaar.Handler = SwapHandler{}

func (h SwapHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h SwapHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, issuer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	id, err := h.seq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "swap sequence")
	}

	// All editions move into custody up front.
	editions := coin.Coins{coin.NewCoin(msg.Asset, msg.Editions)}
	if err := h.mover.MoveCoins(db, issuer, SwapCondition(id).Address(), editions); err != nil {
		return nil, errors.Wrap(err, "lock editions")
	}

	swap := Swap{
		Issuer:    issuer,
		Asset:     msg.Asset,
		Editions:  msg.Editions,
		Price:     msg.Price,
		Royalties: msg.Royalties,
		Donations: msg.Donations,
	}
	if err := h.swaps.Put(db, id, &swap); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{Data: id}, nil
}

func (h SwapHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*SwapMsg, bazaar.Address, error) {
	var msg SwapMsg
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
	if conf.SwapsPaused {
		return nil, nil, errors.Wrap(ErrPaused, "swaps")
	}
	// The split must never exceed the price, including the platform cut
	// as configured right now.
	s := Swap{Royalties: msg.Royalties, Donations: msg.Donations}
	if s.SharesPermille()+conf.FeePermille > 1000 {
		return nil, nil, errors.Wrapf(errors.ErrAmount, "shares and fee exceed 1000 permille")
	}
	return &msg, issuer.Address(), nil
}

// CollectHandler processes market/collect messages.
type CollectHandler struct {
	auth  x.Authenticator
	mover ledger.CoinMover
	swaps orm.ModelBucket
}

var _ bazaar.Handler = CollectHandler{}

func (h CollectHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h CollectHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, swap, collector, conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if swap.Price.IsPositive() {
		if err := h.paySplits(db, swap, collector, conf); err != nil {
			return nil, err
		}
	}

	// One edition leaves custody.
	edition := coin.Coins{coin.NewCoin(swap.Asset, 1)}
	if err := h.mover.MoveCoins(db, SwapCondition(msg.SwapID).Address(), collector, edition); err != nil {
		return nil, errors.Wrap(err, "release edition")
	}

	swap.Editions--
	if err := h.swaps.Put(db, msg.SwapID, swap); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

// paySplits distributes the price: royalties first, then the platform
// fee, then donations in list order. Every share is floored separately
// and the remainder goes to the issuer, so rounding dust always accrues
// to the final recipient.
func (h CollectHandler) paySplits(db bazaar.KVStore, swap *Swap, collector bazaar.Address, conf Configuration) error {
	remaining := swap.Price.Amount

	pay := func(to bazaar.Address, c coin.Coin) error {
		if !c.IsPositive() {
			return nil
		}
		if err := h.mover.MoveCoins(db, collector, to, coin.Coins{c}); err != nil {
			return err
		}
		remaining -= c.Amount
		return nil
	}

	// A fee raised after the swap was opened must not push the total
	// split past the full price. The fee is clamped, never the shares
	// the issuer declared.
	fee := conf.FeePermille
	if rest := 1000 - swap.SharesPermille(); fee > rest {
		fee = rest
	}

	for i, r := range swap.Royalties {
		if err := pay(r.Recipient, swap.Price.Split(r.Permille)); err != nil {
			return errors.Wrapf(err, "royalty #%d", i)
		}
	}
	if fee > 0 {
		if err := pay(conf.FeeRecipient, swap.Price.Split(fee)); err != nil {
			return errors.Wrap(err, "platform fee")
		}
	}
	for i, d := range swap.Donations {
		if err := pay(d.Recipient, swap.Price.Split(d.Permille)); err != nil {
			return errors.Wrapf(err, "donation #%d", i)
		}
	}
	if err := pay(swap.Issuer, coin.NewCoin(swap.Price.Asset, remaining)); err != nil {
		return errors.Wrap(err, "issuer share")
	}
	return nil
}

func (h CollectHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*CollectMsg, *Swap, bazaar.Address, Configuration, error) {
	var msg CollectMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, Configuration{}, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, nil, Configuration{}, err
	}
	if conf.CollectsPaused {
		return nil, nil, nil, Configuration{}, errors.Wrap(ErrPaused, "collects")
	}
	swap, err := loadSwap(h.swaps, db, msg.SwapID)
	if err != nil {
		return nil, nil, nil, Configuration{}, err
	}
	if swap.Editions < 1 {
		return nil, nil, nil, Configuration{}, errors.Wrapf(errors.ErrEmpty, "swap %x is sold out", msg.SwapID)
	}

	collector := x.MainSigner(ctx, h.auth)
	if collector == nil {
		return nil, nil, nil, Configuration{}, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	if collector.Address().Equals(swap.Issuer) {
		return nil, nil, nil, Configuration{}, errors.Wrap(errors.ErrState, "issuer cannot collect their own swap")
	}
	if !msg.Payment.Equals(swap.Price) {
		return nil, nil, nil, Configuration{}, errors.Wrapf(errors.ErrAmount, "price is %s", swap.Price)
	}
	return &msg, swap, collector.Address(), conf, nil
}

// CancelSwapHandler processes market/cancel_swap messages.
type CancelSwapHandler struct {
	auth  x.Authenticator
	mover ledger.CoinMover
	swaps orm.ModelBucket
}

var _ bazaar.Handler = CancelSwapHandler{}

func (h CancelSwapHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h CancelSwapHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, swap, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	if swap.Editions > 0 {
		refund := coin.Coins{coin.NewCoin(swap.Asset, swap.Editions)}
		if err := h.mover.MoveCoins(db, SwapCondition(msg.SwapID).Address(), swap.Issuer, refund); err != nil {
			return nil, errors.Wrap(err, "refund editions")
		}
	}

	// Cancelled swaps are pruned, not kept around as tombstones.
	if err := h.swaps.Delete(db, msg.SwapID); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h CancelSwapHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*CancelSwapMsg, *Swap, error) {
	var msg CancelSwapMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	swap, err := loadSwap(h.swaps, db, msg.SwapID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, swap.Issuer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "only the issuer may cancel")
	}
	return &msg, swap, nil
}

// UpdateConfigurationHandler processes market/update_configuration
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
	if err := gconf.Save(db, "market", &msg.Patch); err != nil {
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
	// The admin role changes hands only through the two step handover.
	if !msg.Patch.Admin.Equals(conf.Admin) {
		return nil, errors.Wrap(errors.ErrInput, "admin cannot be changed directly")
	}
	return &msg, nil
}

// ClaimAdminHandler processes market/claim_admin messages.
type ClaimAdminHandler struct {
	auth x.Authenticator
}

var _ bazaar.Handler = ClaimAdminHandler{}

func (h ClaimAdminHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h ClaimAdminHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	conf, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf.Admin = conf.ProposedAdmin
	conf.ProposedAdmin = nil
	if err := gconf.Save(db, "market", &conf); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h ClaimAdminHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (Configuration, error) {
	var msg ClaimAdminMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return Configuration{}, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return Configuration{}, err
	}
	if len(conf.ProposedAdmin) == 0 {
		return Configuration{}, errors.Wrap(errors.ErrState, "no admin handover proposed")
	}
	if !h.auth.HasAddress(ctx, conf.ProposedAdmin) {
		return Configuration{}, errors.Wrap(errors.ErrUnauthorized, "proposed admin signature required")
	}
	return conf, nil
}
