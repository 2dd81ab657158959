package bazaar

import (
	"encoding/json"
	"time"

	"github.com/iov-one/bazaar/errors"
)

// UnixTime represents a point in time as POSIX time.
// This type comes in handy when dealing with serialized state. Instead of
// using Go's time.Time that includes nanoseconds use primitive int64 type
// and seconds precision.
type UnixTime int64

// Time returns a time.Time structure that represents the same moment in time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// IsZero returns true if this time represents a zero value.
func (t UnixTime) IsZero() bool {
	return t == 0
}

// Add modifies this UNIX time by given duration. This is compatible with
// time.Time.Add method. Notice that UnixTime is second precision.
func (t UnixTime) Add(d UnixDuration) UnixTime {
	return t + UnixTime(d)
}

// AsUnixTime converts given Time structure into its UNIX time representation.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// UnmarshalJSON supports unmarshaling both as time.Time and from a number.
// Usually a number is used as a representation of this time in JSON but it
// is convenient to use a string format in configurations.
func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	var unix int64
	if err := json.Unmarshal(raw, &unix); err == nil {
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = UnixTime(unix)
		return nil
	}

	var stdtime time.Time
	if err := json.Unmarshal(raw, &stdtime); err == nil {
		unix := UnixTime(stdtime.Unix())
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = unix
		return nil
	}

	return errors.Wrap(errors.ErrInput, "invalid time format")
}

// Validate returns an error if this time value is invalid.
func (t UnixTime) Validate() error {
	if t < 0 {
		return errors.Wrap(errors.ErrState, "negative value")
	}
	return nil
}

// String returns the usual string representation of this time as the
// time.Time structure would.
func (t UnixTime) String() string {
	return t.Time().UTC().String()
}

// UnixDuration represents a time duration with granularity of a second.
// This type should be used mostly for the state model representation.
type UnixDuration int32

// AsUnixDuration converts given Duration into UnixDuration. Because of the
// second precision, this conversion is lossy.
func AsUnixDuration(d time.Duration) UnixDuration {
	return UnixDuration(d / time.Second)
}

// Duration returns the time.Duration representation of this duration.
func (d UnixDuration) Duration() time.Duration {
	return time.Duration(d) * time.Second
}

// UnmarshalJSON loads JSON serialized representation into this value. JSON
// serialized value can be represented as both number of seconds and a
// human readable string with time unit as used by the time package.
func (d *UnixDuration) UnmarshalJSON(raw []byte) error {
	var secs int32
	if err := json.Unmarshal(raw, &secs); err == nil {
		*d = UnixDuration(secs)
		return nil
	}

	var stdstr string
	if err := json.Unmarshal(raw, &stdstr); err == nil {
		dur, err := time.ParseDuration(stdstr)
		if err != nil {
			return errors.Wrap(errors.ErrInput, "invalid duration string")
		}
		*d = AsUnixDuration(dur)
		return nil
	}

	return errors.Wrap(errors.ErrInput, "invalid duration format")
}

// Validate returns an error if this duration value is invalid.
func (d UnixDuration) Validate() error {
	if d < 0 {
		return errors.Wrap(errors.ErrState, "negative value")
	}
	return nil
}

func (d UnixDuration) String() string {
	return d.Duration().String()
}
