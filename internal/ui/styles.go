package ui

import (
	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/paneboard/paneboard/internal/detect"
)

// palette holds the active color scheme.
type palette struct {
	Text    lipgloss.Color
	TextDim lipgloss.Color
	Accent  lipgloss.Color
	Green   lipgloss.Color
	Yellow  lipgloss.Color
	Red     lipgloss.Color
	Border  lipgloss.Color
}

// Tokyo Night
var darkPalette = palette{
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
	Border:  lipgloss.Color("#414868"),
}

var lightPalette = palette{
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
	Border:  lipgloss.Color("#9699a3"),
}

// styles are the rendered lipgloss styles for the active palette.
type styles struct {
	Session   lipgloss.Style
	Item      lipgloss.Style
	Selected  lipgloss.Style
	Dim       lipgloss.Style
	Attention lipgloss.Style
	Working   lipgloss.Style
	Idle      lipgloss.Style
	Help      lipgloss.Style
	Filter    lipgloss.Style
}

func newStyles(theme string) styles {
	p := darkPalette
	if resolveTheme(theme) == "light" {
		p = lightPalette
	}
	return styles{
		Session:   lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Item:      lipgloss.NewStyle().Foreground(p.Text),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Dim:       lipgloss.NewStyle().Foreground(p.TextDim),
		Attention: lipgloss.NewStyle().Bold(true).Foreground(p.Red),
		Working:   lipgloss.NewStyle().Foreground(p.Green),
		Idle:      lipgloss.NewStyle().Foreground(p.TextDim),
		Help:      lipgloss.NewStyle().Foreground(p.TextDim),
		Filter:    lipgloss.NewStyle().Foreground(p.Yellow),
	}
}

// resolveTheme maps "system" to the OS dark mode setting, falling back to
// dark on detection failure.
func resolveTheme(theme string) string {
	if theme != "system" {
		return theme
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}

// statusGlyph returns the one-cell status indicator for a kind.
func statusGlyph(k detect.Kind) string {
	switch k {
	case detect.StatusProcessing:
		return "●"
	case detect.StatusAwaitingApproval:
		return "◆"
	case detect.StatusError:
		return "✗"
	case detect.StatusIdle:
		return "○"
	default:
		return "·"
	}
}

// statusStyle picks the style for a status kind.
func (s styles) statusStyle(k detect.Kind) lipgloss.Style {
	switch k {
	case detect.StatusProcessing:
		return s.Working
	case detect.StatusAwaitingApproval, detect.StatusError:
		return s.Attention
	case detect.StatusIdle:
		return s.Idle
	default:
		return s.Dim
	}
}
