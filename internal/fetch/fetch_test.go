package fetch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventfeed/internal/clock"
	"eventfeed/internal/fetch"
	"eventfeed/internal/graphql"
	"eventfeed/internal/model"
)

const endpoint = "https://events.example.org/api"

type fakeTransport struct {
	response string
	err      error
	pictures map[string][]byte

	gotURL  string
	gotBody any
}

func (f *fakeTransport) PostJSON(_ context.Context, url string, body any, dst any) error {
	f.gotURL = url
	f.gotBody = body
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), dst)
}

func (f *fakeTransport) Get(_ context.Context, url string) ([]byte, error) {
	f.gotURL = url
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.pictures[url]
	if !ok {
		return nil, errors.New("404 Not Found")
	}
	return b, nil
}

func newClient(response string) (*fetch.Client, *fakeTransport) {
	tr := &fakeTransport{response: response}
	now := time.Date(2001, time.January, 30, 9, 0, 0, 0, time.UTC)
	return fetch.New(tr, endpoint, fetch.WithClock(clock.NewFixed(now))), tr
}

const (
	idA = "1f0c2a4e-8a43-4b1e-9a0c-0a6b8f3f8d01"
	idB = "2b3d4c5e-6f70-4182-93a4-b5c6d7e8f902"
	idC = "3c4d5e6f-7081-4293-a4b5-c6d7e8f90a03"
)

func TestFetchEventsIsolatesBadRecord(t *testing.T) {
	client, tr := newClient(`{"data":{"searchEvents":{"total":42,"elements":[
		{"uuid":"` + idA + `","title":"Picnic","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z","picture":{"url":"https://events.example.org/media/a.jpg"}},
		{"uuid":"` + idB + `","title":"Broken","beginsOn":"2001-02-02T10:00:00Z","endsOn":"2001-02-02T12:00:00Z","picture":{"url":"not a url"}},
		{"uuid":"` + idC + `","title":"Talk","beginsOn":"2001-02-03T10:00:00+01:00","endsOn":"2001-02-03T11:00:00+01:00","picture":null}
	]}}}`)

	page, err := client.FetchEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), page.Total)
	require.Len(t, page.Results, 3)

	events := page.Events()
	require.Len(t, events, 2)
	assert.Equal(t, uuid.MustParse(idA), events[0].ID)
	assert.Equal(t, "Picnic", events[0].Title)
	require.NotNil(t, events[0].PictureURL)
	assert.Equal(t, "https://events.example.org/media/a.jpg", events[0].PictureURL.String())
	assert.Equal(t, "2001-02-01T10:00:00Z", events[0].BeginsOn.RFC3339())

	assert.Equal(t, uuid.MustParse(idC), events[1].ID)
	assert.Nil(t, events[1].PictureURL)
	assert.Equal(t, "2001-02-03T09:00:00Z", events[1].BeginsOn.RFC3339())

	failures := page.Failures()
	require.Len(t, failures, 1)
	var urlErr *fetch.InvalidPictureURLError
	require.ErrorAs(t, failures[0], &urlErr)
	assert.Equal(t, "not a url", urlErr.URL)
	assert.False(t, page.Results[1].OK())

	assert.Equal(t, endpoint, tr.gotURL)
}

func TestFetchEventsSendsNowAsFilter(t *testing.T) {
	client, tr := newClient(`{"data":{"searchEvents":{"total":0,"elements":[]}}}`)

	page, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Results)

	req, ok := tr.gotBody.(graphql.Request)
	require.True(t, ok)
	assert.Equal(t, graphql.SearchEventsOperation, req.OperationName)
	assert.Equal(t, "2001-01-30T09:00:00Z", req.Variables["beginsOn"])
}

func TestFetchEventsStructuralFailures(t *testing.T) {
	cases := []struct {
		name     string
		response string
		field    string
		target   error
	}{
		{"null data", `{"data":null}`, "data", nil},
		{"no data", `{}`, "data", nil},
		{"null search", `{"data":{"searchEvents":null}}`, "searchEvents", nil},
		{"null total", `{"data":{"searchEvents":{"total":null,"elements":[]}}}`, "", fetch.ErrMissingTotal},
		{"no total", `{"data":{"searchEvents":{"elements":[]}}}`, "", fetch.ErrMissingTotal},
		{"null elements", `{"data":{"searchEvents":{"total":1,"elements":null}}}`, "elements", nil},
		{"null element", `{"data":{"searchEvents":{"total":2,"elements":[{"uuid":"` + idA + `"},null]}}}`, "event", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newClient(tc.response)

			page, err := client.FetchEvents(context.Background())
			require.Error(t, err)
			assert.Empty(t, page.Results)

			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
				return
			}
			var missing *fetch.MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tc.field, missing.Field)
		})
	}
}

func TestFetchEventsGraphQLErrors(t *testing.T) {
	client, _ := newClient(`{"data":null,"errors":[{"message":"Argument beginsOn has invalid value"}]}`)

	_, err := client.FetchEvents(context.Background())

	var gqlErr graphql.Errors
	require.ErrorAs(t, err, &gqlErr)
	assert.Contains(t, err.Error(), "beginsOn has invalid value")
}

func TestFetchEventsTransportError(t *testing.T) {
	client, tr := newClient("")
	cause := errors.New("connection refused")
	tr.err = cause

	_, err := client.FetchEvents(context.Background())

	var trErr *fetch.TransportError
	require.ErrorAs(t, err, &trErr)
	assert.ErrorIs(t, err, cause)
}

func decodeOne(t *testing.T, element string) fetch.EventResult {
	t.Helper()
	client, _ := newClient(`{"data":{"searchEvents":{"total":1,"elements":[` + element + `]}}}`)
	page, err := client.FetchEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	return page.Results[0]
}

func TestDecodeEventWithoutID(t *testing.T) {
	for _, element := range []string{
		`{"title":"x","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z"}`,
		`{"uuid":null,"title":"x"}`,
		`{"uuid":"not-a-uuid","title":"x","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z"}`,
		`{"uuid":12,"title":"x"}`,
		`"just a string"`,
	} {
		res := decodeOne(t, element)
		assert.ErrorIs(t, res.Err, fetch.ErrEventWithNoID, element)
	}
}

func TestDecodeEventUnexpectedStructure(t *testing.T) {
	for _, element := range []string{
		`{"uuid":"` + idA + `","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z"}`,
		`{"uuid":"` + idA + `","title":"x","endsOn":"2001-02-01T12:00:00Z"}`,
		`{"uuid":"` + idA + `","title":"x","beginsOn":"2001-02-01T10:00:00Z"}`,
		`{"uuid":"` + idA + `","title":"x","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z","picture":{"url":null}}`,
		`{"uuid":"` + idA + `","title":"x","beginsOn":"yesterday","endsOn":"2001-02-01T12:00:00Z"}`,
		`{"uuid":"` + idA + `","title":42,"beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z"}`,
	} {
		res := decodeOne(t, element)

		var structErr *fetch.UnexpectedEventStructureError
		require.ErrorAs(t, res.Err, &structErr, element)
		assert.Equal(t, uuid.MustParse(idA), structErr.ID)
		assert.Contains(t, structErr.Dump, idA)
		assert.Contains(t, structErr.Error(), idA)
	}
}

func TestDecodeEventPictureURL(t *testing.T) {
	res := decodeOne(t, `{"uuid":"`+idA+`","title":"x","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z","picture":{"url":"/media/a.jpg"}}`)
	var urlErr *fetch.InvalidPictureURLError
	require.ErrorAs(t, res.Err, &urlErr)
	assert.Equal(t, "/media/a.jpg", urlErr.URL)

	res = decodeOne(t, `{"uuid":"`+idA+`","title":"x","beginsOn":"2001-02-01T10:00:00Z","endsOn":"2001-02-01T12:00:00Z"}`)
	require.NoError(t, res.Err)
	assert.False(t, res.Event.HasPicture())
}

func TestDecodeEventKeepsNegativeDuration(t *testing.T) {
	res := decodeOne(t, `{"uuid":"`+idA+`","title":"x","beginsOn":"2001-02-01T12:00:00Z","endsOn":"2001-02-01T10:00:00Z"}`)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(-2), res.Event.DurationInHours())
}

func TestFetchConfig(t *testing.T) {
	client, tr := newClient(`{"data":{"config":{
		"version":"4.1.0",
		"eventCategories":[{"id":"ARTS","label":"Arts"},{"id":"MUSIC","label":"Music"}],
		"languages":["fr",null,"en"]
	}}}`)

	cfg, err := client.FetchConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.InstanceVersion{Major: 4, Minor: 1, Patch: 0}, cfg.InstanceVersion)
	assert.Equal(t, []model.Category{{ID: "ARTS", Label: "Arts"}, {ID: "MUSIC", Label: "Music"}}, cfg.Categories)
	assert.Equal(t, []string{"fr", "en"}, cfg.Languages)

	req, ok := tr.gotBody.(graphql.Request)
	require.True(t, ok)
	assert.Equal(t, graphql.ConfigOperation, req.OperationName)
}

func TestFetchConfigMissingParts(t *testing.T) {
	cases := []struct {
		name     string
		response string
		field    string
	}{
		{"null data", `{"data":null}`, "data"},
		{"null config", `{"data":{"config":null}}`, "config"},
		{"no version", `{"data":{"config":{"eventCategories":[],"languages":[]}}}`, "version"},
		{"no categories", `{"data":{"config":{"version":"1.2.3","languages":[]}}}`, "eventCategories"},
		{"null category", `{"data":{"config":{"version":"1.2.3","eventCategories":[{"id":"A","label":"a"},null],"languages":[]}}}`, "category"},
		{"null label", `{"data":{"config":{"version":"1.2.3","eventCategories":[{"id":"A","label":null}],"languages":[]}}}`, "label"},
		{"null id", `{"data":{"config":{"version":"1.2.3","eventCategories":[{"id":null,"label":"a"}],"languages":[]}}}`, "id"},
		{"no languages", `{"data":{"config":{"version":"1.2.3","eventCategories":[]}}}`, "languages"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newClient(tc.response)

			_, err := client.FetchConfig(context.Background())

			var missing *fetch.MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tc.field, missing.Field)
		})
	}
}

func TestFetchConfigBadVersion(t *testing.T) {
	client, _ := newClient(`{"data":{"config":{"version":"4.1.0-rc.1","eventCategories":[],"languages":[]}}}`)

	_, err := client.FetchConfig(context.Background())

	var versionErr *fetch.VersionParseError
	require.ErrorAs(t, err, &versionErr)
	assert.ErrorIs(t, err, model.ErrInvalidInstanceVersion)

	client, _ = newClient(`{"data":{"config":{"version":"4.1","eventCategories":[],"languages":[]}}}`)
	_, err = client.FetchConfig(context.Background())
	var shapeErr *model.VersionShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "4.1", shapeErr.Version)
}

func TestFetchEventPicture(t *testing.T) {
	client, tr := newClient("")
	tr.pictures = map[string][]byte{"https://events.example.org/media/a.jpg": []byte("jpeg")}

	u, err := url.Parse("https://events.example.org/media/a.jpg")
	require.NoError(t, err)

	body, err := client.FetchEventPicture(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), body)

	missing, err := url.Parse("https://events.example.org/media/b.jpg")
	require.NoError(t, err)
	_, err = client.FetchEventPicture(context.Background(), missing)
	var trErr *fetch.TransportError
	assert.ErrorAs(t, err, &trErr)

	_, err = client.FetchEventPicture(context.Background(), nil)
	assert.Error(t, err)
}
