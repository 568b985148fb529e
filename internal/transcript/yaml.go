package transcript

import (
	"io"

	"gemchat/pkg/chattypes"

	"gopkg.in/yaml.v3"
)

// YAMLExporter writes a session as YAML.
type YAMLExporter struct{}

// Export writes session to w.
func (e *YAMLExporter) Export(session chattypes.Session, w io.Writer) error {
	if session.History == nil {
		session.History = []chattypes.Message{}
	}
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	enc.SetIndent(2)
	return enc.Encode(session)
}

// Extension returns the file extension for this format.
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
