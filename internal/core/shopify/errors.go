package shopify

import (
	"fmt"
	"strings"
)

// TransportError indicates the Shopify API could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("shopify: transport failure: %v", e.Err)
}

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError indicates Shopify answered with a non-2xx status.
type UpstreamError struct {
	// StatusCode is the HTTP status returned by Shopify.
	StatusCode int
	// Body is the (truncated) response body, kept for server-side logging only.
	Body string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify: upstream status %d: %s", e.StatusCode, e.Body)
}

// DecodeError indicates Shopify returned a body that is not valid JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("shopify: decode failure: %v", e.Err)
}

// Unwrap exposes the underlying JSON error.
func (e *DecodeError) Unwrap() error { return e.Err }

// GraphQLErrors indicates the GraphQL endpoint accepted the request but
// reported errors in the response envelope.
type GraphQLErrors struct {
	Messages []string
}

func (e *GraphQLErrors) Error() string {
	return "shopify: graphql errors: " + strings.Join(e.Messages, "; ")
}
