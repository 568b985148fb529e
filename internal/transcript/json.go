package transcript

import (
	"encoding/json"
	"io"

	"gemchat/pkg/chattypes"
)

// JSONExporter writes a session as indented JSON.
type JSONExporter struct{}

// Export writes session to w.
func (e *JSONExporter) Export(session chattypes.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string {
	return "json"
}
