// Package fetch issues the GraphQL queries of the platform and decodes the
// responses into domain records.
package fetch

import (
	"context"
	"errors"
	"net/url"

	"eventfeed/internal/clock"
)

// Transport is everything the pipeline needs from the network.
type Transport interface {
	// PostJSON encodes body as JSON, POSTs it to url and decodes the JSON
	// response into dst.
	PostJSON(ctx context.Context, url string, body any, dst any) error
	// Get retrieves url and returns the raw body.
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client is safe for concurrent use; every call owns its request and
// response values.
type Client struct {
	transport Transport
	endpoint  string
	clock     clock.Clock
}

type Option func(*Client)

// WithClock overrides the instant used for the "begins after" filter.
func WithClock(c clock.Clock) Option {
	return func(client *Client) {
		client.clock = c
	}
}

// New creates a client for the GraphQL endpoint, e.g.
// "https://mobilizon.fr/api".
func New(transport Transport, endpoint string, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		endpoint:  endpoint,
		clock:     clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchEventPicture retrieves a picture once. There is no retry, caching or
// size limit at this level.
func (c *Client) FetchEventPicture(ctx context.Context, pictureURL *url.URL) ([]byte, error) {
	if pictureURL == nil {
		return nil, errors.New("fetch: picture url is nil")
	}

	body, err := c.transport.Get(ctx, pictureURL.String())
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return body, nil
}
