package ledger

import (
	"encoding/json"

	"github.com/iov-one/bazaar"
	"github.com/iov-one/bazaar/coin"
	"github.com/iov-one/bazaar/errors"
)

const pathSendMsg = "ledger/send"

// SendMsg moves funds from the source to the destination wallet. The
// transaction must be authorized by the source owner or by an operator
// holding a grant for every moved asset.
type SendMsg struct {
	Src    bazaar.Address `json:"src"`
	Dest   bazaar.Address `json:"dest"`
	Amount coin.Coins     `json:"amount"`
	Memo   string         `json:"memo,omitempty"`
}

var _ bazaar.Msg = (*SendMsg)(nil)

func (SendMsg) Path() string {
	return pathSendMsg
}

func (m *SendMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SendMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *SendMsg) Validate() error {
	if err := m.Src.Validate(); err != nil {
		return errors.Wrap(err, "src")
	}
	if err := m.Dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	if m.Amount.IsEmpty() {
		return errors.Wrap(errors.ErrEmpty, "amount")
	}
	if err := m.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if len(m.Memo) > 128 {
		return errors.Wrap(errors.ErrInput, "memo too long")
	}
	return nil
}
