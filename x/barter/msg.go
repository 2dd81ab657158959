package barter

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
)

const (
	pathProposeTradeMsg        = "barter/propose"
	pathAcceptTradeMsg         = "barter/accept"
	pathExecuteTradeMsg        = "barter/execute"
	pathCancelTradeMsg         = "barter/cancel"
	pathUpdateConfigurationMsg = "barter/update_configuration"
)

// ProposeTradeMsg opens a trade and locks the offered assets into the
// trade custody account.
type ProposeTradeMsg struct {
	// Counterparty reserves the trade for one address. Empty leaves the
	// trade open for anyone; the first accept then binds it.
	Counterparty bazaar.Address `json:"counterparty,omitempty"`
	Offered      coin.Coins     `json:"offered"`
	Requested    coin.Coins     `json:"requested"`
}

var _ bazaar.Msg = (*ProposeTradeMsg)(nil)

func (ProposeTradeMsg) Path() string {
	return pathProposeTradeMsg
}

func (m *ProposeTradeMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ProposeTradeMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *ProposeTradeMsg) Validate() error {
	if len(m.Counterparty) != 0 {
		if err := m.Counterparty.Validate(); err != nil {
			return errors.Wrap(err, "counterparty")
		}
	}
	if m.Offered.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "offered")
	}
	if err := m.Offered.Validate(); err != nil {
		return errors.Wrap(err, "offered")
	}
	if m.Requested.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "requested")
	}
	return errors.Wrap(m.Requested.Validate(), "requested")
}

// AcceptTradeMsg locks the requested side into custody. The attached
// payment must equal the requested side exactly.
type AcceptTradeMsg struct {
	TradeID []byte     `json:"trade_id"`
	Payment coin.Coins `json:"payment"`
}

var _ bazaar.Msg = (*AcceptTradeMsg)(nil)

func (AcceptTradeMsg) Path() string {
	return pathAcceptTradeMsg
}

func (m *AcceptTradeMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AcceptTradeMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *AcceptTradeMsg) Validate() error {
	if len(m.TradeID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "trade id")
	}
	if m.Payment.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "payment")
	}
	return errors.Wrap(m.Payment.Validate(), "payment")
}

// ExecuteTradeMsg settles a fully locked trade: custody pays each side's
// assets to the other party.
type ExecuteTradeMsg struct {
	TradeID []byte `json:"trade_id"`
}

var _ bazaar.Msg = (*ExecuteTradeMsg)(nil)

func (ExecuteTradeMsg) Path() string {
	return pathExecuteTradeMsg
}

func (m *ExecuteTradeMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExecuteTradeMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *ExecuteTradeMsg) Validate() error {
	if len(m.TradeID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "trade id")
	}
	return nil
}

// CancelTradeMsg refunds the caller's locked side. The trade is
// cancelled once no side remains locked.
type CancelTradeMsg struct {
	TradeID []byte `json:"trade_id"`
}

var _ bazaar.Msg = (*CancelTradeMsg)(nil)

func (CancelTradeMsg) Path() string {
	return pathCancelTradeMsg
}

func (m *CancelTradeMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CancelTradeMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CancelTradeMsg) Validate() error {
	if len(m.TradeID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "trade id")
	}
	return nil
}

// UpdateConfigurationMsg replaces the package configuration. Only the
// current admin may issue it.
type UpdateConfigurationMsg struct {
	Patch Configuration `json:"patch"`
}

var _ bazaar.Msg = (*UpdateConfigurationMsg)(nil)

func (UpdateConfigurationMsg) Path() string {
	return pathUpdateConfigurationMsg
}

func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *UpdateConfigurationMsg) Validate() error {
	return m.Patch.Validate()
}
