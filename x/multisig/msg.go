package multisig

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
)

const (
	pathCreateContractMsg  = "multisig/create_contract"
	pathSubmitProposalMsg  = "multisig/submit_proposal"
	pathVoteMsg            = "multisig/vote"
	pathExecuteProposalMsg = "multisig/execute_proposal"
	pathCancelProposalMsg  = "multisig/cancel_proposal"
)

// CreateContractMsg creates a new member contract. The id is assigned by
// the handler and returned in the result data.
type CreateContractMsg struct {
	Participants   []bazaar.Address    `json:"participants"`
	Threshold      uint32              `json:"threshold"`
	ProposalExpiry bazaar.UnixDuration `json:"proposal_expiry"`
}

var _ bazaar.Msg = (*CreateContractMsg)(nil)

func (CreateContractMsg) Path() string {
	return pathCreateContractMsg
}

func (m *CreateContractMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CreateContractMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CreateContractMsg) Validate() error {
	c := Contract{
		Participants:   m.Participants,
		Threshold:      m.Threshold,
		ProposalExpiry: m.ProposalExpiry,
	}
	return c.Validate()
}

// SubmitProposalMsg submits a new proposal to a contract. Members only.
type SubmitProposalMsg struct {
	ContractID []byte
	Payload    Payload
}

var _ bazaar.Msg = (*SubmitProposalMsg)(nil)

type serializedSubmitProposalMsg struct {
	ContractID []byte          `json:"contract_id"`
	Payload    json.RawMessage `json:"payload"`
}

func (SubmitProposalMsg) Path() string {
	return pathSubmitProposalMsg
}

func (m *SubmitProposalMsg) Marshal() ([]byte, error) {
	payload, err := marshalPayload(m.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "payload")
	}
	return json.Marshal(serializedSubmitProposalMsg{
		ContractID: m.ContractID,
		Payload:    payload,
	})
}

func (m *SubmitProposalMsg) Unmarshal(raw []byte) error {
	var s serializedSubmitProposalMsg
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	payload, err := unmarshalPayload(s.Payload)
	if err != nil {
		return errors.Wrap(err, "payload")
	}
	m.ContractID = s.ContractID
	m.Payload = payload
	return nil
}

func (m *SubmitProposalMsg) Validate() error {
	if len(m.ContractID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "contract id")
	}
	if m.Payload == nil {
		return errors.Wrap(errors.ErrEmpty, "payload")
	}
	return errors.Wrap(m.Payload.Validate(), "payload")
}

// VoteMsg records or replaces the vote of a member on a proposal.
type VoteMsg struct {
	ProposalID []byte `json:"proposal_id"`
	Approved   bool   `json:"approved"`
}

var _ bazaar.Msg = (*VoteMsg)(nil)

func (VoteMsg) Path() string {
	return pathVoteMsg
}

func (m *VoteMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *VoteMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *VoteMsg) Validate() error {
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal id")
	}
	return nil
}

// ExecuteProposalMsg applies the payload of a proposal that reached its
// quorum.
type ExecuteProposalMsg struct {
	ProposalID []byte `json:"proposal_id"`
}

var _ bazaar.Msg = (*ExecuteProposalMsg)(nil)

func (ExecuteProposalMsg) Path() string {
	return pathExecuteProposalMsg
}

func (m *ExecuteProposalMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ExecuteProposalMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *ExecuteProposalMsg) Validate() error {
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal id")
	}
	return nil
}

// CancelProposalMsg terminates an open proposal. Issuer only.
type CancelProposalMsg struct {
	ProposalID []byte `json:"proposal_id"`
}

var _ bazaar.Msg = (*CancelProposalMsg)(nil)

func (CancelProposalMsg) Path() string {
	return pathCancelProposalMsg
}

func (m *CancelProposalMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CancelProposalMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CancelProposalMsg) Validate() error {
	if len(m.ProposalID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "proposal id")
	}
	return nil
}
