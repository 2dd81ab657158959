// Package multisig implements member contracts with quorum voting: a
// group of participants shares an account and mutates shared state
// through proposals that members vote on and execute once enough
// positive votes accumulated.
package multisig

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/orm"
)

// minProposalExpiry is the shortest allowed proposal expiry window.
const minProposalExpiry = bazaar.UnixDuration(24 * 60 * 60)

// MultiSigCondition returns the condition from which the shared account
// address of a contract is derived.
func MultiSigCondition(contractID []byte) bazaar.Condition {
	return bazaar.NewCondition("multisig", "usage", contractID)
}

// Contract is a group of participants sharing an account. Threshold
// many positive votes execute a proposal.
type Contract struct {
	Participants   []bazaar.Address    `json:"participants"`
	Threshold      uint32              `json:"threshold"`
	ProposalExpiry bazaar.UnixDuration `json:"proposal_expiry"`
}

var _ orm.Model = (*Contract)(nil)

func (c *Contract) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

func (c *Contract) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

func (c *Contract) Validate() error {
	if len(c.Participants) == 0 {
		return errors.Wrap(errors.ErrEmpty, "participants")
	}
	for i, p := range c.Participants {
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "participant #%d", i)
		}
		for _, q := range c.Participants[:i] {
			if p.Equals(q) {
				return errors.Wrapf(errors.ErrDuplicate, "participant %s", p)
			}
		}
	}
	if c.Threshold < 1 || int(c.Threshold) > len(c.Participants) {
		return errors.Wrapf(ErrThresholdOutOfRange, "%d of %d members", c.Threshold, len(c.Participants))
	}
	if c.ProposalExpiry < minProposalExpiry {
		return errors.Wrapf(errors.ErrInput, "proposal expiry shorter than %s", minProposalExpiry)
	}
	return nil
}

// IsMember returns true when the address is a contract participant.
func (c *Contract) IsMember(a bazaar.Address) bool {
	for _, p := range c.Participants {
		if p.Equals(a) {
			return true
		}
	}
	return false
}

// Status of a stored proposal. Expiry is not a stored status but derived
// from the submission time, and an open proposal can lose its approvals
// again, so only terminal transitions are persisted.
type Status string

const (
	StatusOpen      Status = "open"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
)

// Proposal is a pending action of a contract.
type Proposal struct {
	ContractID    []byte
	Issuer        bazaar.Address
	SubmittedAt   bazaar.UnixTime
	Status        Status
	PositiveVotes uint32
	Payload       Payload
}

var _ orm.Model = (*Proposal)(nil)

// serializedProposal mirrors Proposal with the payload replaced by its
// tagged envelope.
type serializedProposal struct {
	ContractID    []byte          `json:"contract_id"`
	Issuer        bazaar.Address  `json:"issuer"`
	SubmittedAt   bazaar.UnixTime `json:"submitted_at"`
	Status        Status          `json:"status"`
	PositiveVotes uint32          `json:"positive_votes"`
	Payload       json.RawMessage `json:"payload"`
}

func (p *Proposal) Marshal() ([]byte, error) {
	payload, err := marshalPayload(p.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "payload")
	}
	return json.Marshal(serializedProposal{
		ContractID:    p.ContractID,
		Issuer:        p.Issuer,
		SubmittedAt:   p.SubmittedAt,
		Status:        p.Status,
		PositiveVotes: p.PositiveVotes,
		Payload:       payload,
	})
}

func (p *Proposal) Unmarshal(raw []byte) error {
	var s serializedProposal
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	payload, err := unmarshalPayload(s.Payload)
	if err != nil {
		return errors.Wrap(err, "payload")
	}
	*p = Proposal{
		ContractID:    s.ContractID,
		Issuer:        s.Issuer,
		SubmittedAt:   s.SubmittedAt,
		Status:        s.Status,
		PositiveVotes: s.PositiveVotes,
		Payload:       payload,
	}
	return nil
}

func (p *Proposal) Validate() error {
	if len(p.ContractID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "contract id")
	}
	if err := p.Issuer.Validate(); err != nil {
		return errors.Wrap(err, "issuer")
	}
	if err := p.SubmittedAt.Validate(); err != nil {
		return errors.Wrap(err, "submitted at")
	}
	switch p.Status {
	case StatusOpen, StatusExecuted, StatusCancelled:
	default:
		return errors.Wrapf(errors.ErrState, "status %q", p.Status)
	}
	if p.Payload == nil {
		return errors.Wrap(errors.ErrEmpty, "payload")
	}
	return errors.Wrap(p.Payload.Validate(), "payload")
}

// Vote is the current vote of one member on one proposal. The bucket
// key is (proposal id | voter address).
type Vote struct {
	Approved bool `json:"approved"`
}

var _ orm.Model = (*Vote)(nil)

func (v *Vote) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

func (v *Vote) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, v)
}

func (v *Vote) Validate() error {
	return nil
}

func voteKey(proposalID []byte, voter bazaar.Address) []byte {
	key := make([]byte, 0, len(proposalID)+len(voter))
	key = append(key, proposalID...)
	return append(key, voter...)
}

// NewContractBucket returns the bucket holding all contracts, keyed by
// the contract sequence id.
func NewContractBucket() orm.ModelBucket {
	return orm.NewModelBucket("mscontract")
}

// NewProposalBucket returns the bucket holding all proposals, keyed by
// the global proposal sequence id.
func NewProposalBucket() orm.ModelBucket {
	return orm.NewModelBucket("msproposal")
}

// NewVoteBucket returns the bucket holding all votes.
func NewVoteBucket() orm.ModelBucket {
	return orm.NewModelBucket("msvote")
}

// NewContractSeq returns the contract id sequence.
func NewContractSeq() orm.Sequence {
	return orm.NewSequence("multisig", "contract_id")
}

// NewProposalSeq returns the proposal id sequence. Ids are global, not
// per contract.
func NewProposalSeq() orm.Sequence {
	return orm.NewSequence("multisig", "proposal_id")
}
