package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Glamour styles accepted by ResolveStyle.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
	StyleASCII = "ascii"
)

// AvailableStyles lists the accepted render styles.
func AvailableStyles() []string {
	return []string{StyleAuto, StyleDark, StyleLight, StyleNoTTY, StyleASCII}
}

// ResolveStyle maps a configured style to a concrete glamour style. "auto"
// picks notty on colorless terminals and otherwise follows the background.
func ResolveStyle(style string) string {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case StyleDark:
		return StyleDark
	case StyleLight:
		return StyleLight
	case StyleNoTTY, "plain":
		return StyleNoTTY
	case StyleASCII:
		return StyleASCII
	}

	if lipgloss.ColorProfile() == termenv.Ascii {
		return StyleNoTTY
	}
	if termenv.HasDarkBackground() {
		return StyleDark
	}
	return StyleLight
}

// Theme holds the lipgloss styles used around rendered markdown.
type Theme struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Meta      lipgloss.Style
	Active    lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
}

func newTheme(style string) Theme {
	if style == StyleNoTTY || style == StyleASCII {
		plain := lipgloss.NewStyle()
		return Theme{
			User:      plain.Bold(true),
			Assistant: plain.Bold(true),
			Meta:      plain,
			Active:    plain.Bold(true),
			Success:   plain,
			Error:     plain,
			Info:      plain,
		}
	}

	return Theme{
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}),
		Meta:      lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		Active:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Success:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
}
