// Package graphql holds the query documents sent to the platform and the
// request/response envelope shared by every operation.
package graphql

import (
	_ "embed"
	"strings"
)

//go:embed queries/search_events.graphql
var searchEventsDocument string

//go:embed queries/config.graphql
var configDocument string

const (
	SearchEventsOperation = "SearchEventsQuery"
	ConfigOperation       = "ConfigQuery"
)

// Request is the JSON body POSTed to the GraphQL endpoint.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// SearchEvents builds the events query; beginsOn is an RFC 3339 instant
// filtering out events that started earlier.
func SearchEvents(beginsOn string) Request {
	return Request{
		Query:         searchEventsDocument,
		OperationName: SearchEventsOperation,
		Variables:     map[string]any{"beginsOn": beginsOn},
	}
}

// Config builds the instance configuration query.
func Config() Request {
	return Request{
		Query:         configDocument,
		OperationName: ConfigOperation,
	}
}

// Response is the standard GraphQL envelope. Data is nil when the server
// returned null or omitted it.
type Response[T any] struct {
	Data   *T      `json:"data"`
	Errors []Error `json:"errors,omitempty"`
}

// Error is a single entry of the "errors" array.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Errors joins the messages of a non-empty "errors" array.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}
