// Package chattypes defines completion request types for gemchat.
// This file contains the provider-neutral payload handed to a Completer.
package chattypes

// Turn is one entry of the context window sent to the remote model.
// Role uses the remote vocabulary: "user" or "model".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// CompletionRequest is a single generate-content call.
type CompletionRequest struct {
	Model  string
	APIKey string
	Turns  []Turn
}
