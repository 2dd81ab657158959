package bazaar

import (
	"context"
	"time"

	"github.com/iov-one/bazaar/errors"
)

// Context is just the standard context. We wrap it to add engine-specific
// accessors without binding every package to the context key type.
type Context = context.Context

type contextKey int

const (
	contextKeyTime contextKey = iota
)

// WithBlockTime sets the current time as declared by the host. Every
// operation resolves "now" from its context, never from the wall clock.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyTime, t)
}

// BlockTime returns the current time as declared by the host. An error is
// returned when the time was not set.
func BlockTime(ctx Context) (time.Time, error) {
	val, ok := ctx.Value(contextKeyTime).(time.Time)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	return val, nil
}

// IsExpired returns true if given time is in the past as compared to the
// "now" as declared for the context. Expiration is inclusive, meaning that
// if current time is equal to the expiration time this function returns
// true.
//
// This function panics if the block time is not present in the context.
func IsExpired(ctx Context, t UnixTime) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is not present in the context")
	}
	return t <= AsUnixTime(now)
}

// InThePast returns true if given time is in the past compared to the
// current time as declared in the context. Keep in mind that this function
// is not inclusive of current time: if given time is equal to "now" then
// this function returns false.
func InThePast(ctx Context, t time.Time) bool {
	now, err := BlockTime(ctx)
	if err != nil {
		panic("block time is not present in the context")
	}
	return t.Before(now)
}
