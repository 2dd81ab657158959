package bazaar

// Handler is a core engine that can process a few specific messages.
// This could represent "coin transfer", or "accept a pending trade".
type Handler interface {
	Checker
	Deliverer
}

// Checker is a subset of Handler to verify the validity of a transaction.
// It is its own interface to allow better type controls.
type Checker interface {
	Check(ctx Context, store KVStore, tx Tx) (*CheckResult, error)
}

// Deliverer is a subset of Handler to execute a transaction.
type Deliverer interface {
	Deliver(ctx Context, store KVStore, tx Tx) (*DeliverResult, error)
}

// Registry is an interface to register your handler, the setup side of a
// Router.
type Registry interface {
	// Handle assigns the given handler to handle processing of every
	// message of the provided type.
	Handle(Msg, Handler)
}

// CheckResult captures any non-error response from validating a
// transaction before execution.
type CheckResult struct {
	// Data is a machine-parseable return value, like id of created entity.
	Data []byte

	// Log is a human readable description of the action.
	Log string
}

// DeliverResult captures any non-error response from executing a
// transaction.
type DeliverResult struct {
	// Data is a machine-parseable return value, like id of created entity.
	Data []byte

	// Log is a human readable description of the action.
	Log string
}
