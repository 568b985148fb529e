package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gemchat/pkg/chattypes"
)

// MarkdownExporter writes a session as a readable Markdown document.
// Assistant replies are already markdown and are written unchanged.
type MarkdownExporter struct{}

// Export writes session to w.
func (e *MarkdownExporter) Export(session chattypes.Session, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# %s\n\n**Messages:** %d\n\n---\n\n", session.Name, len(session.History)); err != nil {
		return err
	}

	for i, msg := range session.History {
		author := "You"
		if msg.Role == chattypes.RoleAssistant {
			author = "Gemini"
		}

		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.UTC().Format(time.RFC3339))
		}

		content := msg.Content
		if msg.Role == chattypes.RoleUser {
			content = escapeMarkdown(content)
		}
		if _, err := fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", author, timestamp, content); err != nil {
			return err
		}

		if i < len(session.History)-1 {
			if _, err := io.WriteString(w, "---\n\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}
	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
