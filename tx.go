package bazaar

import (
	"github.com/iov-one/bazaar/errors"
)

// Msg is a request for the engine to take an action (make a state
// transition). It is just the request, and must be validated by the
// Handlers. All authentication information is in the wrapping Tx.
type Msg interface {
	Persistent

	// Validate returns an error if the message content is not sensible.
	// It performs stateless checks only.
	Validate() error

	// Path returns the routing path for this message. This is used by
	// the Router to locate the proper Handler. Must be of the form
	// "extension/action".
	Path() string
}

// Marshaller is anything that can be represented in binary.
//
// Marshal may validate the data before serializing it and unless you
// previously validated the struct, errors should be expected.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent supports Marshal and Unmarshal.
//
// This is separated from Marshaller, as this almost always requires
// a pointer, and functions that only need to marshal bytes can
// use the Marshaller interface to access non-pointers.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Tx represents the data sent from the host to the engine. It includes
// the actual message to process. The host's transaction layer carries
// the authentication that backs the caller conditions.
type Tx interface {
	// GetMsg returns the action we wish to communicate.
	GetMsg() (Msg, error)
}

// GetPath returns the path of the message, or (missing) if no message.
func GetPath(tx Tx) string {
	msg, err := tx.GetMsg()
	if err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// LoadMsg extracts the message from the transaction, ensures it is of the
// destination type and that it validates. Message is loaded into the
// given destination.
func LoadMsg(tx Tx, destination Msg) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}

	bz, err := msg.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot serialize message")
	}
	if err := destination.Unmarshal(bz); err != nil {
		return errors.Wrapf(errors.ErrType, "%T cannot deserialize into %T", msg, destination)
	}

	if err := destination.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	return nil
}
