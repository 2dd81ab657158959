package barter

import (
	"github.com/iov-one/bazaar/errors"
)

var (
	// ErrWrongCounterparty is returned when a trade is reserved for
	// someone else.
	ErrWrongCounterparty = errors.Register(1100, "wrong counterparty")

	// ErrPaymentMismatch is returned when the attached payment does not
	// equal the requested side of the trade exactly.
	ErrPaymentMismatch = errors.Register(1101, "payment does not match the requested assets")

	// ErrAssetNotAllowed is returned when a trade names an asset outside
	// the configured allow list.
	ErrAssetNotAllowed = errors.Register(1102, "asset not allowed")

	// ErrNothingToCancel is returned when the caller has no locked side
	// to refund.
	ErrNothingToCancel = errors.Register(1103, "nothing to cancel")
)
