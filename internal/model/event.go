package model

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Event is a single upcoming event as listed by the platform.
//
// EndsOn is expected to be after BeginsOn but this is not enforced; a
// negative duration is a data-quality issue that callers surface as-is.
type Event struct {
	ID    uuid.UUID
	Title string
	// PictureURL is an absolute URL, or nil when the event has no picture.
	PictureURL *url.URL
	BeginsOn   DateTime
	EndsOn     DateTime
}

const day = 24 * time.Hour

func (e Event) Duration() time.Duration {
	return e.EndsOn.Sub(e.BeginsOn)
}

// IsLong reports whether the event lasts at least one whole day. The day
// count truncates toward zero, so 23h59m is not long and 27h is.
func (e Event) IsLong() bool {
	return int64(e.Duration()/day) >= 1
}

// DurationInHours truncates toward zero and may be negative.
func (e Event) DurationInHours() int64 {
	return int64(e.Duration() / time.Hour)
}

// HasPicture reports whether a picture URL was provided.
func (e Event) HasPicture() bool {
	return e.PictureURL != nil
}

// Category is an event category advertised by the instance.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FetchConfigResponse is the instance configuration. It is only ever built
// whole: a missing part fails the fetch.
type FetchConfigResponse struct {
	InstanceVersion InstanceVersion `json:"instance_version"`
	Categories      []Category      `json:"categories"`
	Languages       []string        `json:"languages"`
}
