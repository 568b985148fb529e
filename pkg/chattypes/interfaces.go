// Package chattypes defines the core interfaces and data structures shared by gemchat components.
//
// # Architecture Overview
//
// gemchat is split into a small core and the surfaces that drive it:
//
//   - Storage Layer: a key-value store holding string values (KVStore)
//   - Core Layer: the session store and the conversation controller
//   - Surface Layer: the interactive shell, the one-shot CLI and the HTTP API
//
// The core only depends on the interfaces in this package, so every surface and
// every test can plug its own storage backend, completer and notifier.
//
// # Package Organization
//
// ## Core Interfaces (interfaces.go)
//
//   - KVStore: persisted string key-value storage
//   - Completer: the remote generate-content service
//   - Notifier: user-visible notices raised by the core
//   - Clock: time source used when stamping messages
//
// ## Session Types (session_types.go)
//
//   - Role: closed set of message authors
//   - Message, Session, Collection: conversation history
//
// ## Completion Types (llm_types.go)
//
//   - Turn, CompletionRequest: the payload sent to the completer
//
// ## Settings Types (settings_types.go)
//
//   - Settings: the active selection (session, context length, credential, model)
//   - storage keys and defaults
package chattypes

import (
	"context"
	"time"
)

// KVStore is the persisted key-value store backing sessions and settings.
// Values are opaque strings; callers own their encoding.
type KVStore interface {
	// Get returns the value stored under key. found is false when the key is absent.
	Get(key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Completer sends a conversation to the remote model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

// Notice levels raised by the core.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notifier surfaces notices to the user. Surfaces decide how to present them.
type Notifier interface {
	Notify(level NoticeLevel, title, text string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(level NoticeLevel, title, text string)

// Notify calls f.
func (f NotifierFunc) Notify(level NoticeLevel, title, text string) {
	f(level, title, text)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time without a monotonic reading.
func (SystemClock) Now() time.Time {
	return time.Now().UTC().Round(0)
}
