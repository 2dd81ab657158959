package barter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/bazaartest"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/gconf"
	"github.com/iov-one/bazaar/store"
	"github.com/iov-one/bazaar/x/ledger"
)

type fixture struct {
	db      *store.BTreeStore
	auth    *bazaartest.CtxAuth
	control ledger.Controller

	propose ProposeTradeHandler
	accept  AcceptTradeHandler
	execute ExecuteTradeHandler
	cancel  CancelTradeHandler

	alice bazaar.Condition
	bob   bazaar.Condition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth := &bazaartest.CtxAuth{Key: "auth"}
	control := ledger.NewController()
	trades := NewTradeBucket()
	f := &fixture{
		db:      store.MemStore(),
		auth:    auth,
		control: control,
		propose: ProposeTradeHandler{auth: auth, mover: control, trades: trades, seq: NewTradeSeq()},
		accept:  AcceptTradeHandler{auth: auth, mover: control, trades: trades},
		execute: ExecuteTradeHandler{auth: auth, mover: control, trades: trades},
		cancel:  CancelTradeHandler{auth: auth, mover: control, trades: trades},
		alice:   bazaartest.NewCondition(),
		bob:     bazaartest.NewCondition(),
	}
	require.NoError(t, control.IssueCoins(f.db, f.alice.Address(), coin.Coins{coin.NewCoin("OBJKT", 3)}))
	require.NoError(t, control.IssueCoins(f.db, f.bob.Address(), coin.Coins{coin.NewCoin("TEZ", 100)}))
	return f
}

func (f *fixture) ctx(signer bazaar.Condition) bazaar.Context {
	return f.auth.SetConditions(context.Background(), signer)
}

// proposeTrade opens alice's default trade: 1 OBJKT for 50 TEZ.
func (f *fixture) proposeTrade(t *testing.T, counterparty bazaar.Address) []byte {
	t.Helper()
	res, err := f.propose.Deliver(f.ctx(f.alice), f.db, &bazaartest.Tx{Msg: &ProposeTradeMsg{
		Counterparty: counterparty,
		Offered:      coin.Coins{coin.NewCoin("OBJKT", 1)},
		Requested:    coin.Coins{coin.NewCoin("TEZ", 50)},
	}})
	require.NoError(t, err)
	return res.Data
}

func (f *fixture) acceptTrade(t *testing.T, signer bazaar.Condition, id []byte, payment coin.Coins) error {
	t.Helper()
	_, err := f.accept.Deliver(f.ctx(signer), f.db, &bazaartest.Tx{Msg: &AcceptTradeMsg{
		TradeID: id,
		Payment: payment,
	}})
	return err
}

func (f *fixture) trade(t *testing.T, id []byte) Trade {
	t.Helper()
	var tr Trade
	require.NoError(t, NewTradeBucket().One(f.db, id, &tr))
	return tr
}

func (f *fixture) balance(t *testing.T, addr bazaar.Address, asset string) int64 {
	t.Helper()
	got, err := f.control.Balance(f.db, addr)
	require.NoError(t, err)
	return got.AmountOf(asset)
}

func TestProposeLocksOfferedAssets(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)

	assert.Equal(t, int64(2), f.balance(t, f.alice.Address(), "OBJKT"))
	assert.Equal(t, int64(1), f.balance(t, TradeCondition(id).Address(), "OBJKT"))

	tr := f.trade(t, id)
	assert.True(t, tr.IssuerLocked)
	assert.False(t, tr.CounterpartyLocked)
	assert.Equal(t, StatusOpen, tr.Status)
}

func TestProposeWithoutFundsFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.propose.Deliver(f.ctx(f.alice), f.db, &bazaartest.Tx{Msg: &ProposeTradeMsg{
		Offered:   coin.Coins{coin.NewCoin("OBJKT", 99)},
		Requested: coin.Coins{coin.NewCoin("TEZ", 1)},
	}})
	assert.True(t, errors.ErrInsufficientFunds.Is(err))
}

func TestAcceptRequiresExactPayment(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)

	err := f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 49)})
	assert.True(t, ErrPaymentMismatch.Is(err), "underpaying must fail")

	err = f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 51)})
	assert.True(t, ErrPaymentMismatch.Is(err), "overpaying must fail")

	err = f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("OBJKT", 1)})
	assert.True(t, ErrPaymentMismatch.Is(err), "wrong asset must fail")

	require.NoError(t, f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)}))
	assert.Equal(t, int64(50), f.balance(t, f.bob.Address(), "TEZ"))
	assert.Equal(t, int64(50), f.balance(t, TradeCondition(id).Address(), "TEZ"))

	// The first accept bound bob as counterparty.
	tr := f.trade(t, id)
	assert.True(t, tr.Counterparty.Equals(f.bob.Address()))

	// No double accept.
	err = f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)})
	assert.True(t, errors.ErrState.Is(err))
}

func TestReservedTradeRejectsOtherAccepters(t *testing.T) {
	f := newFixture(t)
	carol := bazaartest.NewCondition()
	id := f.proposeTrade(t, carol.Address())

	err := f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)})
	assert.True(t, ErrWrongCounterparty.Is(err))
}

func TestExecuteSwapsBothSides(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)

	execTx := &bazaartest.Tx{Msg: &ExecuteTradeMsg{TradeID: id}}

	// Execution needs both sides locked.
	_, err := f.execute.Deliver(f.ctx(f.alice), f.db, execTx)
	assert.True(t, errors.ErrState.Is(err))

	require.NoError(t, f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)}))

	// Strangers cannot settle someone else's trade.
	stranger := bazaartest.NewCondition()
	_, err = f.execute.Deliver(f.ctx(stranger), f.db, execTx)
	assert.True(t, errors.ErrUnauthorized.Is(err))

	_, err = f.execute.Deliver(f.ctx(f.bob), f.db, execTx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.balance(t, f.bob.Address(), "OBJKT"))
	assert.Equal(t, int64(50), f.balance(t, f.alice.Address(), "TEZ"))
	assert.Equal(t, int64(0), f.balance(t, TradeCondition(id).Address(), "OBJKT"))
	assert.Equal(t, int64(0), f.balance(t, TradeCondition(id).Address(), "TEZ"))
	assert.Equal(t, StatusExecuted, f.trade(t, id).Status)

	// Supply is conserved across the whole swap.
	supply, err := f.control.AssetSupply(f.db, "TEZ")
	require.NoError(t, err)
	assert.Equal(t, int64(100), supply)

	_, err = f.execute.Deliver(f.ctx(f.alice), f.db, execTx)
	assert.True(t, errors.ErrExecuted.Is(err))
}

func TestIssuerCancelRefundsOnce(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)

	cancelTx := &bazaartest.Tx{Msg: &CancelTradeMsg{TradeID: id}}
	_, err := f.cancel.Deliver(f.ctx(f.alice), f.db, cancelTx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), f.balance(t, f.alice.Address(), "OBJKT"))
	assert.Equal(t, StatusCancelled, f.trade(t, id).Status)

	// Everything is terminal now.
	_, err = f.cancel.Deliver(f.ctx(f.alice), f.db, cancelTx)
	assert.True(t, errors.ErrCancelled.Is(err))
	err = f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)})
	assert.True(t, errors.ErrCancelled.Is(err))
}

func TestCounterpartyCancelKeepsTradeOpen(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)
	require.NoError(t, f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)}))

	cancelTx := &bazaartest.Tx{Msg: &CancelTradeMsg{TradeID: id}}
	_, err := f.cancel.Deliver(f.ctx(f.bob), f.db, cancelTx)
	require.NoError(t, err)

	assert.Equal(t, int64(100), f.balance(t, f.bob.Address(), "TEZ"))
	tr := f.trade(t, id)
	assert.Equal(t, StatusOpen, tr.Status, "issuer side is still locked")
	assert.True(t, tr.IssuerLocked)
	assert.False(t, tr.CounterpartyLocked)

	// A second cancel from bob has nothing left to refund.
	_, err = f.cancel.Deliver(f.ctx(f.bob), f.db, cancelTx)
	assert.True(t, ErrNothingToCancel.Is(err))

	// Bob can change his mind again and re-accept.
	require.NoError(t, f.acceptTrade(t, f.bob, id, coin.Coins{coin.NewCoin("TEZ", 50)}))
	_, err = f.execute.Deliver(f.ctx(f.alice), f.db, &bazaartest.Tx{Msg: &ExecuteTradeMsg{TradeID: id}})
	require.NoError(t, err)
}

func TestStrangerCannotCancel(t *testing.T) {
	f := newFixture(t)
	id := f.proposeTrade(t, nil)

	stranger := bazaartest.NewCondition()
	_, err := f.cancel.Deliver(f.ctx(stranger), f.db, &bazaartest.Tx{Msg: &CancelTradeMsg{TradeID: id}})
	assert.True(t, errors.ErrUnauthorized.Is(err))
}

func TestAssetAllowList(t *testing.T) {
	f := newFixture(t)
	admin := bazaartest.NewCondition().Address()
	require.NoError(t, gconf.Save(f.db, "barter", &Configuration{
		Admin:         admin,
		AllowedAssets: []string{"TEZ", "OBJKT"},
	}))

	// Allowed assets trade as usual.
	f.proposeTrade(t, nil)

	_, err := f.propose.Deliver(f.ctx(f.alice), f.db, &bazaartest.Tx{Msg: &ProposeTradeMsg{
		Offered:   coin.Coins{coin.NewCoin("OBJKT", 1)},
		Requested: coin.Coins{coin.NewCoin("HDAO", 5)},
	}})
	assert.True(t, ErrAssetNotAllowed.Is(err))
}

func TestUpdateConfiguration(t *testing.T) {
	f := newFixture(t)
	adminCond := bazaartest.NewCondition()
	require.NoError(t, gconf.Save(f.db, "barter", &Configuration{Admin: adminCond.Address()}))

	h := UpdateConfigurationHandler{auth: f.auth}
	msg := &UpdateConfigurationMsg{Patch: Configuration{
		Admin:         adminCond.Address(),
		AllowedAssets: []string{"TEZ"},
	}}

	_, err := h.Deliver(f.ctx(f.alice), f.db, &bazaartest.Tx{Msg: msg})
	assert.True(t, errors.ErrUnauthorized.Is(err))

	_, err = h.Deliver(f.ctx(adminCond), f.db, &bazaartest.Tx{Msg: msg})
	require.NoError(t, err)

	conf, err := loadConf(f.db)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEZ"}, conf.AllowedAssets)
}
