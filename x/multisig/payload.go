package multisig

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
)

// Payload is the action a proposal carries. Exactly one concrete type
// exists per kind; execution dispatches on the type.
type Payload interface {
	// Kind returns the serialization tag of this payload.
	Kind() string
	// Validate performs stateless checks of the payload content.
	Validate() error
}

// Payload kinds.
const (
	KindText          = "text"
	KindSend          = "send"
	KindTokenTransfer = "token_transfer"
	KindThreshold     = "threshold"
	KindExpiry        = "expiry"
	KindAddMember     = "add_member"
	KindRemoveMember  = "remove_member"
	KindEffect        = "effect"
)

// TextPayload records a decision with no on-ledger effect.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) Kind() string { return KindText }

func (p *TextPayload) Validate() error {
	if p.Text == "" {
		return errors.Wrap(errors.ErrEmpty, "text")
	}
	return nil
}

// SendPayload moves funds from the contract's own account to the
// destination.
type SendPayload struct {
	Dest   bazaar.Address `json:"dest"`
	Amount coin.Coins     `json:"amount"`
}

func (SendPayload) Kind() string { return KindSend }

func (p *SendPayload) Validate() error {
	if err := p.Dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	if p.Amount.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "amount")
	}
	return errors.Wrap(p.Amount.Validate(), "amount")
}

// TokenTransfer is a single leg of a distribution.
type TokenTransfer struct {
	Dest   bazaar.Address `json:"dest"`
	Amount coin.Coins     `json:"amount"`
}

// TokenTransferPayload distributes assets from the contract's account to
// many destinations at once.
type TokenTransferPayload struct {
	Transfers []TokenTransfer `json:"transfers"`
}

func (TokenTransferPayload) Kind() string { return KindTokenTransfer }

func (p *TokenTransferPayload) Validate() error {
	if len(p.Transfers) == 0 {
		return errors.Wrap(errors.ErrEmpty, "transfers")
	}
	for i, tr := range p.Transfers {
		if err := tr.Dest.Validate(); err != nil {
			return errors.Wrapf(err, "transfer #%d dest", i)
		}
		if tr.Amount.IsEmpty() {
			return errors.Wrapf(errors.ErrEmpty, "transfer #%d amount", i)
		}
		if err := tr.Amount.Validate(); err != nil {
			return errors.Wrapf(err, "transfer #%d amount", i)
		}
	}
	return nil
}

// ThresholdPayload changes the number of approvals a proposal needs.
type ThresholdPayload struct {
	Threshold uint32 `json:"threshold"`
}

func (ThresholdPayload) Kind() string { return KindThreshold }

func (p *ThresholdPayload) Validate() error {
	if p.Threshold < 1 {
		return errors.Wrap(ErrThresholdOutOfRange, "below one")
	}
	return nil
}

// ExpiryPayload changes the proposal expiry window of the contract.
type ExpiryPayload struct {
	Expiry bazaar.UnixDuration `json:"expiry"`
}

func (ExpiryPayload) Kind() string { return KindExpiry }

func (p *ExpiryPayload) Validate() error {
	if p.Expiry < minProposalExpiry {
		return errors.Wrapf(errors.ErrInput, "expiry shorter than %s", minProposalExpiry)
	}
	return nil
}

// AddMemberPayload extends the contract membership.
type AddMemberPayload struct {
	Member bazaar.Address `json:"member"`
}

func (AddMemberPayload) Kind() string { return KindAddMember }

func (p *AddMemberPayload) Validate() error {
	return errors.Wrap(p.Member.Validate(), "member")
}

// RemoveMemberPayload shrinks the contract membership. The threshold is
// clamped down if it no longer fits.
type RemoveMemberPayload struct {
	Member bazaar.Address `json:"member"`
}

func (RemoveMemberPayload) Kind() string { return KindRemoveMember }

func (p *RemoveMemberPayload) Validate() error {
	return errors.Wrap(p.Member.Validate(), "member")
}

// EffectPayload triggers a host registered callback once the proposal is
// executed. Params are opaque to the engine.
type EffectPayload struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (EffectPayload) Kind() string { return KindEffect }

func (p *EffectPayload) Validate() error {
	if p.Name == "" {
		return errors.Wrap(errors.ErrEmpty, "name")
	}
	return nil
}

// payloadEnvelope is the serialized form of a tagged payload.
type payloadEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func marshalPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "payload")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadEnvelope{Kind: p.Kind(), Payload: raw})
}

func unmarshalPayload(raw []byte) (Payload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	var p Payload
	switch env.Kind {
	case KindText:
		p = &TextPayload{}
	case KindSend:
		p = &SendPayload{}
	case KindTokenTransfer:
		p = &TokenTransferPayload{}
	case KindThreshold:
		p = &ThresholdPayload{}
	case KindExpiry:
		p = &ExpiryPayload{}
	case KindAddMember:
		p = &AddMemberPayload{}
	case KindRemoveMember:
		p = &RemoveMemberPayload{}
	case KindEffect:
		p = &EffectPayload{}
	default:
		return nil, errors.Wrapf(errors.ErrType, "unknown payload kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, p); err != nil {
		return nil, err
	}
	return p, nil
}
