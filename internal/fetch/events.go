package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"eventfeed/internal/graphql"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/model"
)

// EventResult is the outcome of decoding one element: exactly one of Event
// or Err is meaningful.
type EventResult struct {
	Event model.Event
	Err   error
}

func (r EventResult) OK() bool {
	return r.Err == nil
}

// EventsPage is a decoded events response. Total is the count reported by
// the server, whatever the local decode outcome of each element.
type EventsPage struct {
	Results []EventResult
	Total   int64
}

// Events returns the successfully decoded events, in response order.
func (p EventsPage) Events() []model.Event {
	out := make([]model.Event, 0, len(p.Results))
	for _, r := range p.Results {
		if r.OK() {
			out = append(out, r.Event)
		}
	}
	return out
}

// Failures returns the per-element decode errors, in response order.
func (p EventsPage) Failures() []error {
	out := make([]error, 0)
	for _, r := range p.Results {
		if !r.OK() {
			out = append(out, r.Err)
		}
	}
	return out
}

type searchEventsData struct {
	SearchEvents *rawSearchEvents `json:"searchEvents"`
}

type rawSearchEvents struct {
	Total *int64 `json:"total"`
	// Elements are kept raw so that one malformed element cannot fail the
	// decoding of the whole response.
	Elements *[]json.RawMessage `json:"elements"`
}

type rawEvent struct {
	UUID     *string     `json:"uuid"`
	Title    *string     `json:"title"`
	BeginsOn *string     `json:"beginsOn"`
	EndsOn   *string     `json:"endsOn"`
	Picture  *rawPicture `json:"picture"`
}

type rawPicture struct {
	URL *string `json:"url"`
}

// FetchEvents queries the events beginning after now. A structural problem
// fails the call; a malformed element only fails its own EventResult.
func (c *Client) FetchEvents(ctx context.Context) (EventsPage, error) {
	req := graphql.SearchEvents(model.NewDateTime(c.clock.Now()).RFC3339())

	var resp graphql.Response[searchEventsData]
	if err := c.transport.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return EventsPage{}, &TransportError{Err: err}
	}

	page, err := decodeEvents(resp)
	if err != nil {
		return EventsPage{}, err
	}

	failed := 0
	for _, r := range page.Results {
		if !r.OK() {
			failed++
			appLog.Debug("event decode failed", "err", r.Err)
		}
	}
	appLog.Info("events fetched",
		"endpoint", appLog.RedactURL(c.endpoint),
		"total", page.Total,
		"elements", len(page.Results),
		"failed", failed,
	)
	return page, nil
}

// decodeEvents applies the structural checks to a search response and
// decodes every element independently.
func decodeEvents(resp graphql.Response[searchEventsData]) (EventsPage, error) {
	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			return EventsPage{}, graphql.Errors(resp.Errors)
		}
		return EventsPage{}, &MissingFieldError{Field: "data"}
	}
	search := resp.Data.SearchEvents
	if search == nil {
		return EventsPage{}, &MissingFieldError{Field: "searchEvents"}
	}
	if search.Total == nil {
		return EventsPage{}, ErrMissingTotal
	}
	if search.Elements == nil {
		return EventsPage{}, &MissingFieldError{Field: "elements"}
	}

	elements := *search.Elements
	for _, raw := range elements {
		if isNull(raw) {
			return EventsPage{}, &MissingFieldError{Field: "event"}
		}
	}

	results := make([]EventResult, 0, len(elements))
	for _, raw := range elements {
		ev, err := decodeEvent(raw)
		results = append(results, EventResult{Event: ev, Err: err})
	}

	return EventsPage{Results: results, Total: *search.Total}, nil
}

func decodeEvent(raw json.RawMessage) (model.Event, error) {
	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		// The shape is wrong somewhere; report it against the id if one
		// can still be read.
		var idOnly struct {
			UUID *string `json:"uuid"`
		}
		if json.Unmarshal(raw, &idOnly) != nil || idOnly.UUID == nil {
			return model.Event{}, ErrEventWithNoID
		}
		id, perr := uuid.Parse(*idOnly.UUID)
		if perr != nil {
			return model.Event{}, fmt.Errorf("%w: %v", ErrEventWithNoID, perr)
		}
		return model.Event{}, unexpected(id, raw)
	}

	if re.UUID == nil {
		return model.Event{}, ErrEventWithNoID
	}
	id, err := uuid.Parse(*re.UUID)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: %v", ErrEventWithNoID, err)
	}

	if re.Title == nil || re.BeginsOn == nil || re.EndsOn == nil {
		return model.Event{}, unexpected(id, raw)
	}
	if re.Picture != nil && re.Picture.URL == nil {
		return model.Event{}, unexpected(id, raw)
	}

	beginsOn, err := model.ParseDateTime(*re.BeginsOn)
	if err != nil {
		return model.Event{}, unexpected(id, raw)
	}
	endsOn, err := model.ParseDateTime(*re.EndsOn)
	if err != nil {
		return model.Event{}, unexpected(id, raw)
	}

	var picture *url.URL
	if re.Picture != nil {
		picture, err = parsePictureURL(*re.Picture.URL)
		if err != nil {
			return model.Event{}, err
		}
	}

	return model.Event{
		ID:         id,
		Title:      *re.Title,
		PictureURL: picture,
		BeginsOn:   beginsOn,
		EndsOn:     endsOn,
	}, nil
}

// parsePictureURL only accepts absolute URLs.
func parsePictureURL(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &InvalidPictureURLError{URL: s}
	}
	return u, nil
}

func unexpected(id uuid.UUID, raw json.RawMessage) error {
	var compact bytes.Buffer
	dump := string(raw)
	if json.Compact(&compact, raw) == nil {
		dump = compact.String()
	}
	return &UnexpectedEventStructureError{ID: id, Dump: dump}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
