// Package intent extracts structured intents from free-text user messages.
// Two providers implement the Service interface: an api.ai-protocol HTTP
// client and a Gemini-backed structured-output client.
package intent

import "context"

// Result is the structured interpretation of one user message.
type Result struct {
	// ReplyText is the conversational preamble suggested by the NLU service,
	// sent to the user before any search results.
	ReplyText string

	// Action identifies the matched intent, e.g. "where-is-party" or the
	// "where-is-party-next" follow-up family.
	Action string

	// Parameters holds the extracted free-form parameters (genre, category,
	// geo-city, date, ...).
	Parameters map[string]any

	// Contexts carries the active conversation contexts. For follow-up
	// actions the first context's parameters supersede Parameters.
	Contexts []Context
}

// Context is one active conversation context returned by the NLU service.
type Context struct {
	Name       string
	Parameters map[string]any
}

// Service interprets a user's free-text message into a structured intent.
type Service interface {
	Interpret(ctx context.Context, userID int64, text string) (*Result, error)
}
