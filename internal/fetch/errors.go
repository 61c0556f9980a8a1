package fetch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Structural failures abort a whole call.
var (
	ErrMissingTotal = errors.New("missing total number of events in response")
)

// Per-record failures only affect one element of an events page.
var (
	ErrEventWithNoID = errors.New("event with no id")
)

// MissingFieldError reports a required field absent from a response.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("the field %s is missing from the json", e.Field)
}

// TransportError wraps a network or transport-level failure. It is never
// retried by this package.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// VersionParseError wraps a malformed instance version in a config response.
type VersionParseError struct {
	Err error
}

func (e *VersionParseError) Error() string {
	return fmt.Sprintf("instance version could not be parsed: %v", e.Err)
}

func (e *VersionParseError) Unwrap() error {
	return e.Err
}

// InvalidPictureURLError reports a picture block whose URL is not an
// absolute URL.
type InvalidPictureURLError struct {
	URL string
}

func (e *InvalidPictureURLError) Error() string {
	return fmt.Sprintf("invalid picture url %s", e.URL)
}

// UnexpectedEventStructureError reports an identified event whose other
// fields are missing or malformed. Dump is the raw element.
type UnexpectedEventStructureError struct {
	ID   uuid.UUID
	Dump string
}

func (e *UnexpectedEventStructureError) Error() string {
	return fmt.Sprintf("unexpected structure of event with id: %s: %s", e.ID, e.Dump)
}
