// Package x holds the extensions of the engine and the authentication
// glue they share. Each extension lives in its own subpackage and
// registers message handlers for its routes.
package x

import (
	"github.com/iov-one/bazaar"
)

// Authenticator is an interface we can use to extract authentication info
// from the context. This should be passed into the constructor of
// handlers, so the host can plug in its own authentication system rather
// than hard-coding one for all extensions.
type Authenticator interface {
	// GetConditions reveals all Conditions fulfilled,
	// you may want GetAddresses helper
	GetConditions(bazaar.Context) []bazaar.Condition
	// HasAddress checks if any condition matches this address
	HasAddress(bazaar.Context, bazaar.Address) bool
}

// MultiAuth chains together many Authenticators into one
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

// ChainAuth groups together a series of Authenticator
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls}
}

// GetConditions combines all Conditions from all Authenticators
func (m MultiAuth) GetConditions(ctx bazaar.Context) []bazaar.Condition {
	var res []bazaar.Condition
	for _, impl := range m.impls {
		add := impl.GetConditions(ctx)
		if len(add) > 0 {
			res = append(res, add...)
		}
	}
	return res
}

// HasAddress returns true iff any Authenticator support this
func (m MultiAuth) HasAddress(ctx bazaar.Context, addr bazaar.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// GetAddresses wraps the GetConditions method of any Authenticator
func GetAddresses(ctx bazaar.Context, auth Authenticator) []bazaar.Address {
	perms := auth.GetConditions(ctx)
	addrs := make([]bazaar.Address, len(perms))
	for i, p := range perms {
		addrs[i] = p.Address()
	}
	return addrs
}

// MainSigner returns the first permission if any, otherwise nil
func MainSigner(ctx bazaar.Context, auth Authenticator) bazaar.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// HasAllAddresses returns true if all elements in required are
// also in context.
func HasAllAddresses(ctx bazaar.Context, auth Authenticator, required []bazaar.Address) bool {
	for _, r := range required {
		if !auth.HasAddress(ctx, r) {
			return false
		}
	}
	return true
}

// HasNAddresses returns true if at least n elements in required are
// also in context.
func HasNAddresses(ctx bazaar.Context, auth Authenticator, required []bazaar.Address, n int) bool {
	if n <= 0 {
		return true
	}

	for _, r := range required {
		if auth.HasAddress(ctx, r) {
			n--
			if n == 0 {
				return true
			}
		}
	}
	return false
}
