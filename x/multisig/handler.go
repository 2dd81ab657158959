package multisig

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/errors"
	"github.com/iov-one/bazaar/orm"
	"github.com/iov-one/bazaar/x"
	"github.com/iov-one/bazaar/x/ledger"
)

// EffectRegistry resolves effect proposals to host callbacks. Effects
// run only after the proposal is marked executed; a failing effect does
// not revert the execution.
type EffectRegistry interface {
	RunEffect(ctx bazaar.Context, db bazaar.KVStore, name string, params json.RawMessage) error
}

// RegisterRoutes will instantiate and register all handlers in this
// package. The mover is used to pay out Send and TokenTransfer payloads
// from the contract accounts. A nil effects registry rejects every
// effect proposal at execution; a nil logger silences effect alerts.
func RegisterRoutes(r bazaar.Registry, auth x.Authenticator, mover ledger.CoinMover, effects EffectRegistry, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	buckets := newBuckets()
	r.Handle(&CreateContractMsg{}, CreateContractHandler{auth: auth, buckets: buckets})
	r.Handle(&SubmitProposalMsg{}, SubmitProposalHandler{auth: auth, buckets: buckets})
	r.Handle(&VoteMsg{}, VoteHandler{auth: auth, buckets: buckets})
	r.Handle(&ExecuteProposalMsg{}, ExecuteProposalHandler{
		auth:    auth,
		buckets: buckets,
		mover:   mover,
		effects: effects,
		log:     log,
	})
	r.Handle(&CancelProposalMsg{}, CancelProposalHandler{auth: auth, buckets: buckets})
}

// buckets groups the storage access shared by all handlers.
type buckets struct {
	contracts   orm.ModelBucket
	proposals   orm.ModelBucket
	votes       orm.ModelBucket
	contractSeq orm.Sequence
	proposalSeq orm.Sequence
}

func newBuckets() buckets {
	return buckets{
		contracts:   NewContractBucket(),
		proposals:   NewProposalBucket(),
		votes:       NewVoteBucket(),
		contractSeq: NewContractSeq(),
		proposalSeq: NewProposalSeq(),
	}
}

func (b buckets) loadContract(db bazaar.ReadOnlyKVStore, id []byte) (*Contract, error) {
	var c Contract
	if err := b.contracts.One(db, id, &c); err != nil {
		return nil, errors.Wrapf(err, "contract %x", id)
	}
	return &c, nil
}

func (b buckets) loadProposal(db bazaar.ReadOnlyKVStore, id []byte) (*Proposal, error) {
	var p Proposal
	if err := b.proposals.One(db, id, &p); err != nil {
		return nil, errors.Wrapf(err, "proposal %x", id)
	}
	return &p, nil
}

// requireOpenAndUnexpired ensures the proposal can still transition.
// Terminal states and the expiry window block every transition, no
// matter the vote count.
func requireOpenAndUnexpired(ctx bazaar.Context, c *Contract, p *Proposal, id []byte) error {
	switch p.Status {
	case StatusExecuted:
		return errors.Wrapf(errors.ErrExecuted, "proposal %x", id)
	case StatusCancelled:
		return errors.Wrapf(errors.ErrCancelled, "proposal %x", id)
	}
	if bazaar.IsExpired(ctx, p.SubmittedAt.Add(c.ProposalExpiry)) {
		return errors.Wrapf(errors.ErrExpired, "proposal %x", id)
	}
	return nil
}

// memberCaller returns the first caller address that is a contract
// member.
func memberCaller(ctx bazaar.Context, auth x.Authenticator, c *Contract) (bazaar.Address, error) {
	for _, addr := range x.GetAddresses(ctx, auth) {
		if c.IsMember(addr) {
			return addr, nil
		}
	}
	return nil, errors.Wrap(errors.ErrUnauthorized, "not a contract member")
}

// CreateContractHandler processes multisig/create_contract messages.
type CreateContractHandler struct {
	auth    x.Authenticator
	buckets buckets
}

var _ bazaar.Handler = CreateContractHandler{}

func (h CreateContractHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	var msg CreateContractMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h CreateContractHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	var msg CreateContractMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}

	id, err := h.buckets.contractSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "contract sequence")
	}
	contract := Contract{
		Participants:   msg.Participants,
		Threshold:      msg.Threshold,
		ProposalExpiry: msg.ProposalExpiry,
	}
	if err := h.buckets.contracts.Put(db, id, &contract); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{Data: id}, nil
}

// SubmitProposalHandler processes multisig/submit_proposal messages.
type SubmitProposalHandler struct {
	auth    x.Authenticator
	buckets buckets
}

var _ bazaar.Handler = SubmitProposalHandler{}

func (h SubmitProposalHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h SubmitProposalHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, issuer, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	now, err := bazaar.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	id, err := h.buckets.proposalSeq.NextVal(db)
	if err != nil {
		return nil, errors.Wrap(err, "proposal sequence")
	}
	proposal := Proposal{
		ContractID:  msg.ContractID,
		Issuer:      issuer,
		SubmittedAt: bazaar.AsUnixTime(now),
		Status:      StatusOpen,
		Payload:     msg.Payload,
	}
	if err := h.buckets.proposals.Put(db, id, &proposal); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{Data: id}, nil
}

func (h SubmitProposalHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*SubmitProposalMsg, bazaar.Address, error) {
	var msg SubmitProposalMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	contract, err := h.buckets.loadContract(db, msg.ContractID)
	if err != nil {
		return nil, nil, err
	}
	issuer, err := memberCaller(ctx, h.auth, contract)
	if err != nil {
		return nil, nil, err
	}

	// Stateful payload checks against the current contract.
	switch p := msg.Payload.(type) {
	case *ThresholdPayload:
		if p.Threshold < 1 || int(p.Threshold) > len(contract.Participants) {
			return nil, nil, errors.Wrapf(ErrThresholdOutOfRange, "%d of %d members", p.Threshold, len(contract.Participants))
		}
	case *AddMemberPayload:
		if contract.IsMember(p.Member) {
			return nil, nil, errors.Wrapf(errors.ErrDuplicate, "member %s", p.Member)
		}
	case *RemoveMemberPayload:
		if !contract.IsMember(p.Member) {
			return nil, nil, errors.Wrapf(errors.ErrNotFound, "member %s", p.Member)
		}
	}
	return &msg, issuer, nil
}

// VoteHandler processes multisig/vote messages.
type VoteHandler struct {
	auth    x.Authenticator
	buckets buckets
}

var _ bazaar.Handler = VoteHandler{}

func (h VoteHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h VoteHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, proposal, voter, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Replace semantics: first undo the recorded vote, then apply the
	// new one. The count always equals the number of distinct members
	// whose current vote is positive.
	key := voteKey(msg.ProposalID, voter)
	var prev Vote
	switch err := h.buckets.votes.One(db, key, &prev); {
	case err == nil:
		if prev.Approved {
			proposal.PositiveVotes--
		}
	case errors.ErrNotFound.Is(err):
	default:
		return nil, errors.Wrapf(err, "vote of %s", voter)
	}
	if msg.Approved {
		proposal.PositiveVotes++
	}

	if err := h.buckets.votes.Put(db, key, &Vote{Approved: msg.Approved}); err != nil {
		return nil, err
	}
	if err := h.buckets.proposals.Put(db, msg.ProposalID, proposal); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h VoteHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*VoteMsg, *Proposal, bazaar.Address, error) {
	var msg VoteMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, err
	}
	proposal, err := h.buckets.loadProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	contract, err := h.buckets.loadContract(db, proposal.ContractID)
	if err != nil {
		return nil, nil, nil, err
	}
	voter, err := memberCaller(ctx, h.auth, contract)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireOpenAndUnexpired(ctx, contract, proposal, msg.ProposalID); err != nil {
		return nil, nil, nil, err
	}
	return &msg, proposal, voter, nil
}

// ExecuteProposalHandler processes multisig/execute_proposal messages.
type ExecuteProposalHandler struct {
	auth    x.Authenticator
	buckets buckets
	mover   ledger.CoinMover
	effects EffectRegistry
	log     *zap.Logger
}

var _ bazaar.Handler = ExecuteProposalHandler{}

func (h ExecuteProposalHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h ExecuteProposalHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, proposal, contract, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	// Preconditions that depend on the current contract state are
	// re-checked before anything is written. A doomed execution must
	// leave no trace, even on a store without a rollback wrap.
	if err := checkApplicable(proposal, contract); err != nil {
		return nil, err
	}

	// Terminal state first. Whatever the payload application does, a
	// second execution of this proposal is impossible.
	proposal.Status = StatusExecuted
	if err := h.buckets.proposals.Put(db, msg.ProposalID, proposal); err != nil {
		return nil, err
	}

	res := &bazaar.DeliverResult{Data: msg.ProposalID}

	switch p := proposal.Payload.(type) {
	case *TextPayload:
		// A decision on record, nothing to apply.

	case *SendPayload:
		src := MultiSigCondition(proposal.ContractID).Address()
		if err := h.mover.MoveCoins(db, src, p.Dest, p.Amount); err != nil {
			return nil, errors.Wrapf(err, "proposal %x", msg.ProposalID)
		}

	case *TokenTransferPayload:
		src := MultiSigCondition(proposal.ContractID).Address()
		for i, tr := range p.Transfers {
			if err := h.mover.MoveCoins(db, src, tr.Dest, tr.Amount); err != nil {
				return nil, errors.Wrapf(err, "proposal %x transfer #%d", msg.ProposalID, i)
			}
		}

	case *ThresholdPayload:
		contract.Threshold = p.Threshold
		if err := h.buckets.contracts.Put(db, proposal.ContractID, contract); err != nil {
			return nil, err
		}

	case *ExpiryPayload:
		contract.ProposalExpiry = p.Expiry
		if err := h.buckets.contracts.Put(db, proposal.ContractID, contract); err != nil {
			return nil, err
		}

	case *AddMemberPayload:
		contract.Participants = append(contract.Participants, p.Member)
		if err := h.buckets.contracts.Put(db, proposal.ContractID, contract); err != nil {
			return nil, err
		}

	case *RemoveMemberPayload:
		members := contract.Participants[:0]
		for _, m := range contract.Participants {
			if !m.Equals(p.Member) {
				members = append(members, m)
			}
		}
		contract.Participants = members
		// The threshold is clamped down to the new membership, never
		// raised.
		if int(contract.Threshold) > len(members) {
			contract.Threshold = uint32(len(members))
		}
		if err := h.buckets.contracts.Put(db, proposal.ContractID, contract); err != nil {
			return nil, err
		}

	case *EffectPayload:
		// The proposal stays executed even when the host callback
		// fails. The failure is surfaced in the result log and through
		// the logger, not as a delivery error.
		if err := h.runEffect(ctx, db, p); err != nil {
			wrapped := errors.Wrapf(ErrEffectFailed, "proposal %x: %s", msg.ProposalID, err)
			h.log.Error("proposal effect failed",
				zap.Binary("proposal_id", msg.ProposalID),
				zap.String("effect", p.Name),
				zap.Error(err),
			)
			res.Log = wrapped.Error()
		}

	default:
		return nil, errors.Wrapf(errors.ErrType, "payload %T", proposal.Payload)
	}

	return res, nil
}

// checkApplicable re-validates payloads whose preconditions may have
// changed since submission. Membership may have moved under an open
// proposal, so the bounds are checked against the contract as it is
// now.
func checkApplicable(proposal *Proposal, contract *Contract) error {
	switch p := proposal.Payload.(type) {
	case *ThresholdPayload:
		if p.Threshold < 1 || int(p.Threshold) > len(contract.Participants) {
			return errors.Wrapf(ErrThresholdOutOfRange, "%d of %d members", p.Threshold, len(contract.Participants))
		}
	case *AddMemberPayload:
		if contract.IsMember(p.Member) {
			return errors.Wrapf(errors.ErrDuplicate, "member %s", p.Member)
		}
	case *RemoveMemberPayload:
		if !contract.IsMember(p.Member) {
			return errors.Wrapf(errors.ErrNotFound, "member %s", p.Member)
		}
		if len(contract.Participants) == 1 {
			return errors.Wrapf(ErrLastMember, "contract %x", proposal.ContractID)
		}
	}
	return nil
}

func (h ExecuteProposalHandler) runEffect(ctx bazaar.Context, db bazaar.KVStore, p *EffectPayload) error {
	if h.effects == nil {
		return errors.Wrapf(errors.ErrNotFound, "no effect registry")
	}
	return h.effects.RunEffect(ctx, db, p.Name, p.Params)
}

func (h ExecuteProposalHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*ExecuteProposalMsg, *Proposal, *Contract, error) {
	var msg ExecuteProposalMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, err
	}
	proposal, err := h.buckets.loadProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, nil, err
	}
	contract, err := h.buckets.loadContract(db, proposal.ContractID)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := memberCaller(ctx, h.auth, contract); err != nil {
		return nil, nil, nil, err
	}
	if err := requireOpenAndUnexpired(ctx, contract, proposal, msg.ProposalID); err != nil {
		return nil, nil, nil, err
	}
	if proposal.PositiveVotes < contract.Threshold {
		return nil, nil, nil, errors.Wrapf(ErrQuorumNotReached, "proposal %x has %d of %d votes", msg.ProposalID, proposal.PositiveVotes, contract.Threshold)
	}
	return &msg, proposal, contract, nil
}

// CancelProposalHandler processes multisig/cancel_proposal messages.
type CancelProposalHandler struct {
	auth    x.Authenticator
	buckets buckets
}

var _ bazaar.Handler = CancelProposalHandler{}

func (h CancelProposalHandler) Check(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &bazaar.CheckResult{}, nil
}

func (h CancelProposalHandler) Deliver(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*bazaar.DeliverResult, error) {
	msg, proposal, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	proposal.Status = StatusCancelled
	if err := h.buckets.proposals.Put(db, msg.ProposalID, proposal); err != nil {
		return nil, err
	}
	return &bazaar.DeliverResult{}, nil
}

func (h CancelProposalHandler) validate(ctx bazaar.Context, db bazaar.KVStore, tx bazaar.Tx) (*CancelProposalMsg, *Proposal, error) {
	var msg CancelProposalMsg
	if err := bazaar.LoadMsg(tx, &msg); err != nil {
		return nil, nil, err
	}
	proposal, err := h.buckets.loadProposal(db, msg.ProposalID)
	if err != nil {
		return nil, nil, err
	}
	contract, err := h.buckets.loadContract(db, proposal.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if !h.auth.HasAddress(ctx, proposal.Issuer) {
		return nil, nil, errors.Wrapf(errors.ErrUnauthorized, "only the issuer may cancel")
	}
	if err := requireOpenAndUnexpired(ctx, contract, proposal, msg.ProposalID); err != nil {
		return nil, nil, err
	}
	return &msg, proposal, nil
}
