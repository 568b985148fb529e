// Package render turns messages, session listings and notices into terminal output.
package render

import (
	"fmt"
	"strings"
	"time"

	"gemchat/internal/logger"
	"gemchat/pkg/chattypes"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss/list"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// DefaultWordWrap is the wrap width used when none is configured.
const DefaultWordWrap = 80

// previewWidth bounds the last-message preview in session listings.
const previewWidth = 48

// Options configure a Renderer.
type Options struct {
	Style    string
	WordWrap int
	Clock    chattypes.Clock
}

// Renderer formats chat output for a terminal.
type Renderer struct {
	markdown *glamour.TermRenderer
	style    string
	theme    Theme
	clock    chattypes.Clock
}

// New creates a Renderer. Unknown glamour styles fall back to notty.
func New(opts Options) (*Renderer, error) {
	if opts.WordWrap <= 0 {
		opts.WordWrap = DefaultWordWrap
	}
	if opts.Clock == nil {
		opts.Clock = chattypes.SystemClock{}
	}
	style := ResolveStyle(opts.Style)

	md, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(opts.WordWrap),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	logger.Debug("Renderer initialized", "style", style, "word_wrap", opts.WordWrap)
	return &Renderer{
		markdown: md,
		style:    style,
		theme:    newTheme(style),
		clock:    opts.Clock,
	}, nil
}

// Style returns the resolved glamour style.
func (r *Renderer) Style() string {
	return r.style
}

// Markdown renders markdown to ANSI output. Blank input renders as "".
func (r *Renderer) Markdown(markdown string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	rendered, err := r.markdown.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return rendered, nil
}

// Message renders one history entry with its index, author and relative time.
// Assistant replies are rendered as markdown; user input is shown verbatim.
func (r *Renderer) Message(index int, msg chattypes.Message) string {
	author := r.theme.User.Render("You")
	if msg.Role == chattypes.RoleAssistant {
		author = r.theme.Assistant.Render("Gemini")
	}
	header := fmt.Sprintf("[%d] %s", index, author)
	if when := RelativeTime(r.clock.Now(), msg.Timestamp); when != "" {
		header += " " + r.theme.Meta.Render("· "+when)
	}

	body := msg.Content
	if msg.Role == chattypes.RoleAssistant {
		rendered, err := r.Markdown(msg.Content)
		if err != nil {
			logger.Warn("Falling back to plain text", "error", err)
		} else {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	return header + "\n" + body + "\n"
}

// History renders every message of a session.
func (r *Renderer) History(history []chattypes.Message) string {
	if len(history) == 0 {
		return r.theme.Meta.Render("No messages yet.") + "\n"
	}
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.Message(i, msg))
	}
	return b.String()
}

// Sessions renders a session listing, marking the active session.
func (r *Renderer) Sessions(infos []chattypes.SessionInfo) string {
	if len(infos) == 0 {
		return r.theme.Meta.Render("No saved sessions.") + "\n"
	}

	items := make([]any, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if info.Active {
			name = r.theme.Active.Render(name + " *")
		}
		line := fmt.Sprintf("%s %s", name, r.theme.Meta.Render(r.sessionMeta(info)))
		if info.Preview != "" {
			line += "\n" + r.theme.Meta.Render(Preview(info.Preview, previewWidth))
		}
		items = append(items, line)
	}
	return list.New(items...).Enumerator(list.Arabic).String() + "\n"
}

func (r *Renderer) sessionMeta(info chattypes.SessionInfo) string {
	meta := english.Plural(info.Messages, "message", "messages")
	if when := RelativeTime(r.clock.Now(), info.LastActivity); when != "" {
		meta += ", " + when
	}
	return "(" + meta + ")"
}

// Notice renders a user-visible notification.
func (r *Renderer) Notice(level chattypes.NoticeLevel, title, text string) string {
	style := r.theme.Info
	switch level {
	case chattypes.NoticeSuccess:
		style = r.theme.Success
	case chattypes.NoticeError:
		style = r.theme.Error
	}
	if text == "" {
		return style.Render(title)
	}
	return style.Render(title+":") + " " + text
}

// Preview flattens content to one line and truncates it to width cells.
func Preview(content string, width int) string {
	line := strings.Join(strings.Fields(content), " ")
	return ansi.Truncate(line, width, "…")
}

// RelativeTime describes t relative to now: "just now" within a minute,
// otherwise a humanized distance. The zero time yields "".
func RelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < time.Minute && diff > -time.Minute {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
