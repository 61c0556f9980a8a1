package model

import (
	"fmt"
	"time"
)

// DateTime is an absolute UTC instant as exchanged with the GraphQL API.
// Local-time conversion happens only when rendering.
type DateTime struct {
	underlying time.Time
}

// NewDateTime normalizes t to UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{underlying: t.UTC()}
}

// ParseDateTime parses an RFC 3339 timestamp (any offset, optional
// fractional seconds).
func ParseDateTime(s string) (DateTime, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return DateTime{}, fmt.Errorf("parse datetime %q: %w", s, err)
	}
	return NewDateTime(t), nil
}

// Time returns the instant in UTC.
func (d DateTime) Time() time.Time {
	return d.underlying
}

// RFC3339 renders the wire form. ParseDateTime(d.RFC3339()) == d.
func (d DateTime) RFC3339() string {
	return d.underlying.Format(time.RFC3339Nano)
}

func (d DateTime) String() string {
	return d.RFC3339()
}

func (d DateTime) IsZero() bool {
	return d.underlying.IsZero()
}

func (d DateTime) Before(o DateTime) bool {
	return d.underlying.Before(o.underlying)
}

func (d DateTime) Equal(o DateTime) bool {
	return d.underlying.Equal(o.underlying)
}

// Sub returns d - o.
func (d DateTime) Sub(o DateTime) time.Duration {
	return d.underlying.Sub(o.underlying)
}

func (d DateTime) MarshalText() ([]byte, error) {
	return []byte(d.RFC3339()), nil
}

func (d *DateTime) UnmarshalText(b []byte) error {
	parsed, err := ParseDateTime(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
