package bazaar

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/iov-one/bazaar/errors"
)

// AddressLength is the length of all addresses. You can modify it in
// init() before any addresses are calculated, but it must not change
// during the lifetime of the kvstore.
var AddressLength = 20

// Address represents a collision-free, one-way digest of data (usually a
// public key) that can be used to identify a participant.
//
// It will be of size AddressLength.
type Address []byte

// Equals checks if two addresses are the same.
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// MarshalJSON provides a hex representation for JSON, to override the
// standard base64 []byte encoding.
func (a Address) MarshalJSON() ([]byte, error) {
	return marshalHex(a)
}

// UnmarshalJSON parses JSON in hex representation, to override the
// standard base64 []byte encoding.
func (a *Address) UnmarshalJSON(src []byte) error {
	dst := (*[]byte)(a)
	return unmarshalHex(src, dst)
}

// String returns a human readable string. Currently hex.
func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return strings.ToUpper(hex.EncodeToString(a))
}

// Validate returns an error if the address is not the valid size.
func (a Address) Validate() error {
	if len(a) == 0 {
		return errors.Wrap(errors.ErrEmpty, "address missing")
	}
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address is %d bytes, expected %d", len(a), AddressLength)
	}
	return nil
}

// NewAddress hashes and truncates into the proper size.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:AddressLength]
}

// Condition is a specially formatted array, containing information on who
// can authorize an action. It is of the format:
//
//   sprintf("%s/%s/%s", extension, type, data)
//
// Engine extensions use conditions to derive the addresses of accounts
// that are not backed by any key, such as escrow custody accounts.
type Condition []byte

// NewCondition creates a condition for the given extension, type and data.
func NewCondition(ext, typ string, data []byte) Condition {
	pre := fmt.Sprintf("%s/%s/", ext, typ)
	return append([]byte(pre), data...)
}

// Parse will extract the sections from the Condition bytes and verify
// they are properly formatted.
func (c Condition) Parse() (string, string, []byte, error) {
	chunks := bytes.SplitN(c, []byte("/"), 3)
	if len(chunks) != 3 {
		return "", "", nil, errors.Wrapf(errors.ErrInput, "condition: %X", []byte(c))
	}
	if !isExtensionFormat(string(chunks[0])) || !isExtensionFormat(string(chunks[1])) {
		return "", "", nil, errors.Wrapf(errors.ErrInput, "condition: %X", []byte(c))
	}
	return string(chunks[0]), string(chunks[1]), chunks[2], nil
}

// Address will convert a Condition into an Address.
func (c Condition) Address() Address {
	return NewAddress(c)
}

// Equals checks if two conditions are the same.
func (c Condition) Equals(b Condition) bool {
	return bytes.Equal(c, b)
}

// String returns a human readable string.
func (c Condition) String() string {
	ext, typ, data, err := c.Parse()
	if err != nil {
		return fmt.Sprintf("Invalid Condition: %X", []byte(c))
	}
	return fmt.Sprintf("%s/%s/%X", ext, typ, data)
}

// Validate returns an error if the condition is not in the valid format.
func (c Condition) Validate() error {
	if len(c) == 0 {
		return errors.Wrap(errors.ErrEmpty, "condition missing")
	}
	if _, _, _, err := c.Parse(); err != nil {
		return err
	}
	return nil
}

var isExtensionFormat = regexp.MustCompile(`^[a-z_\-]{3,10}$`).MatchString

func marshalHex(bz []byte) ([]byte, error) {
	s := strings.ToUpper(hex.EncodeToString(bz))
	return []byte(`"` + s + `"`), nil
}

func unmarshalHex(src []byte, dst *[]byte) error {
	var s string
	if len(src) < 2 || src[0] != '"' || src[len(src)-1] != '"' {
		return errors.Wrap(errors.ErrInput, "invalid hex string")
	}
	s = string(src[1 : len(src)-1])
	bz, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	*dst = bz
	return nil
}
