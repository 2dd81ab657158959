package operators

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

const (
	pathUpdateOperatorsMsg     = "operators/update"
	pathUpdateConfigurationMsg = "operators/update_configuration"
)

// Update actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// OperatorUpdate is a single add or remove instruction.
type OperatorUpdate struct {
	Action   string         `json:"action"`
	Operator bazaar.Address `json:"operator"`
	Asset    string         `json:"asset"`
}

func (u OperatorUpdate) Validate() error {
	if u.Action != ActionAdd && u.Action != ActionRemove {
		return errors.Wrapf(errors.ErrInput, "unknown action %q", u.Action)
	}
	if err := u.Operator.Validate(); err != nil {
		return errors.Wrap(err, "operator")
	}
	return validateAsset(u.Asset)
}

// UpdateOperatorsMsg applies a batch of grant updates for one owner.
type UpdateOperatorsMsg struct {
	Owner   bazaar.Address   `json:"owner"`
	Updates []OperatorUpdate `json:"updates"`
}

var _ bazaar.Msg = (*UpdateOperatorsMsg)(nil)

func (UpdateOperatorsMsg) Path() string {
	return pathUpdateOperatorsMsg
}

func (m *UpdateOperatorsMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *UpdateOperatorsMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *UpdateOperatorsMsg) Validate() error {
	if err := m.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if len(m.Updates) == 0 {
		return errors.Wrap(errors.ErrEmpty, "updates")
	}
	for i, u := range m.Updates {
		if err := u.Validate(); err != nil {
			return errors.Wrapf(err, "update #%d", i)
		}
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
