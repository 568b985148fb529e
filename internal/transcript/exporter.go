// Package transcript writes a single session in human- or tool-friendly formats.
package transcript

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gemchat/pkg/chattypes"
)

// Exporter defines the interface for all transcript formats.
type Exporter interface {
	Export(session chattypes.Session, w io.Writer) error
	Extension() string
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"json", "yaml", "md"}
}

// NewExporter creates an exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: json, yaml, md)", format)
	}
}

// FileName is the default file name for a transcript of session.
func FileName(session chattypes.Session, e Exporter) string {
	return fmt.Sprintf("gemini_chat_%s.%s", strings.ReplaceAll(session.Name, "/", "_"), e.Extension())
}

// WriteFile writes a transcript of session to path. An empty path means
// FileName inside dir. It returns the path written.
func WriteFile(session chattypes.Session, format, dir, path string) (string, error) {
	exporter, err := NewExporter(format)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(dir, FileName(session, exporter))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := exporter.Export(session, file); err != nil {
		return "", err
	}
	return path, nil
}
