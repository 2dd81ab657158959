package multisig

import (
	"github.com/iov-one/bazaar/errors"
)

var (
	// ErrQuorumNotReached is returned when a proposal execution is
	// requested before enough members approved it.
	ErrQuorumNotReached = errors.Register(1000, "quorum not reached")

	// ErrLastMember is returned when a member removal would leave the
	// contract without any member.
	ErrLastMember = errors.Register(1001, "cannot remove the last member")

	// ErrThresholdOutOfRange is returned when a threshold does not fit
	// the contract membership.
	ErrThresholdOutOfRange = errors.Register(1002, "threshold out of range")

	// ErrEffectFailed marks a host side effect that failed after the
	// proposal was already executed. The proposal stays executed.
	ErrEffectFailed = errors.Register(1003, "proposal effect failed")
)
