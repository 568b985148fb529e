package session

import "errors"

var (
	// ErrSessionNotFound is returned when a named session is not in the collection.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNothingToExport signals that no collection has been stored yet.
	// Surfaces present it as an informational notice, not a failure.
	ErrNothingToExport = errors.New("no chat history to export")

	// ErrImportFormat is returned when an import blob is not a non-empty session collection.
	ErrImportFormat = errors.New("import file is not a valid session collection")

	// ErrInvalidName is returned for empty, overlong or control-character session names.
	ErrInvalidName = errors.New("invalid session name")

	// ErrInvalidContextLength is returned when a context length is not a positive integer.
	ErrInvalidContextLength = errors.New("context length must be a positive integer")

	// ErrInvalidModel is returned for an empty model identifier.
	ErrInvalidModel = errors.New("model identifier cannot be empty")
)
