// Package llm provides completion provider clients. Callers treat every
// provider as an opaque text-in/text-out function: a system prompt, a
// list of role-tagged messages and sampling parameters go in, untrusted
// text comes out.
package llm

import "context"

// Client is the interface that all completion providers implement.
type Client interface {
	// Complete sends one completion request and returns the response text.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
