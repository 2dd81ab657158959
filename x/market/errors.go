package market

import (
	"github.com/iov-one/bazaar/errors"
)

var (
	// ErrTooManyDonations is returned when a swap declares more
	// donation shares than supported.
	ErrTooManyDonations = errors.Register(1200, "too many donations")

	// ErrPaused is returned while the configuration pauses the
	// requested operation.
	ErrPaused = errors.Register(1201, "operation is paused")
)
