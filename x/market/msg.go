package market

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
)

const (
	pathSwapMsg                = "market/swap"
	pathCollectMsg             = "market/collect"
	pathCancelSwapMsg          = "market/cancel_swap"
	pathUpdateConfigurationMsg = "market/update_configuration"
	pathClaimAdminMsg          = "market/claim_admin"
)

// SwapMsg puts editions up for sale and locks them into the swap
// custody account.
type SwapMsg struct {
	Asset     string    `json:"asset"`
	Editions  int64     `json:"editions"`
	Price     coin.Coin `json:"price"`
	Royalties []Share   `json:"royalties,omitempty"`
	Donations []Share   `json:"donations,omitempty"`
}

var _ bazaar.Msg = (*SwapMsg)(nil)

func (SwapMsg) Path() string {
	return pathSwapMsg
}

func (m *SwapMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SwapMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *SwapMsg) Validate() error {
	if m.Editions < 1 {
		return errors.Wrap(errors.ErrAmount, "editions")
	}
	s := Swap{
		// The issuer is assigned by the handler; a placeholder passes
		// the shared model validation here.
		Issuer:    make(bazaar.Address, bazaar.AddressLength),
		Asset:     m.Asset,
		Editions:  m.Editions,
		Price:     m.Price,
		Royalties: m.Royalties,
		Donations: m.Donations,
	}
	return s.Validate()
}

// CollectMsg buys one edition for the exact price.
type CollectMsg struct {
	SwapID []byte `json:"swap_id"`
	// Payment must equal the swap price exactly.
	Payment coin.Coin `json:"payment"`
}

var _ bazaar.Msg = (*CollectMsg)(nil)

func (CollectMsg) Path() string {
	return pathCollectMsg
}

func (m *CollectMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CollectMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CollectMsg) Validate() error {
	if len(m.SwapID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "swap id")
	}
	return errors.Wrap(m.Payment.Validate(), "payment")
}

// CancelSwapMsg refunds the remaining editions and removes the swap.
type CancelSwapMsg struct {
	SwapID []byte `json:"swap_id"`
}

var _ bazaar.Msg = (*CancelSwapMsg)(nil)

func (CancelSwapMsg) Path() string {
	return pathCancelSwapMsg
}

func (m *CancelSwapMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CancelSwapMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CancelSwapMsg) Validate() error {
	if len(m.SwapID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "swap id")
	}
	return nil
}

// UpdateConfigurationMsg replaces the package configuration. Only the
// current admin may issue it. Changing the admin directly is not
// possible; propose a new admin and let them claim the role.
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

// ClaimAdminMsg completes a two step admin handover. Only the proposed
// admin may issue it.
type ClaimAdminMsg struct{}

var _ bazaar.Msg = (*ClaimAdminMsg)(nil)

func (ClaimAdminMsg) Path() string {
	return pathClaimAdminMsg
}

func (m *ClaimAdminMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ClaimAdminMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *ClaimAdminMsg) Validate() error {
	return nil
}
