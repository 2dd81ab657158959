/*
Package bazaar defines the common interfaces that tie the engine
subpackages together, as well as implementations of some of the simpler
components (when interfaces would be too much overhead).

The engine models the multi-party proposal, voting and escrow state
machines of a family of marketplace contracts as a plain library. A host
embeds it by providing three things per operation: the caller identity
(through an x.Authenticator), the current time (through the context, see
WithBlockTime) and a KVStore holding the engine state. Every public
operation runs to completion before the next one begins; a host calling
from multiple goroutines must serialize access, for example through
app.Dispatcher, to preserve the atomicity the state machines assume.
*/
package bazaar
