package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is a terminal color scheme.
type Theme struct {
	Primary lipgloss.Color // accent for headings and success
	User    lipgloss.Color // user-side transcript
	Model   lipgloss.Color // model-side transcript
	Dim     lipgloss.Color // secondary text
	Error   lipgloss.Color
}

// DarkTheme suits dark terminal backgrounds.
var DarkTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	User:    lipgloss.Color("#7aa2f7"),
	Model:   lipgloss.Color("#e0af68"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#f7768e"),
}

// LightTheme suits light terminal backgrounds.
var LightTheme = Theme{
	Primary: lipgloss.Color("#007a4d"),
	User:    lipgloss.Color("#2f5fd0"),
	Model:   lipgloss.Color("#b05b00"),
	Dim:     lipgloss.Color("#8a8f98"),
	Error:   lipgloss.Color("#c4314b"),
}

// ThemeByName maps a settings theme name to a Theme. Unknown names get
// the dark theme.
func ThemeByName(name string) Theme {
	if name == "light" {
		return LightTheme
	}
	return DarkTheme
}

// Styles are the derived lipgloss styles used by the commands.
type Styles struct {
	Title lipgloss.Style
	User  lipgloss.Style
	Model lipgloss.Style
	Dim   lipgloss.Style
	Error lipgloss.Style
}

// NewStyles derives Styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		User:  lipgloss.NewStyle().Foreground(t.User),
		Model: lipgloss.NewStyle().Foreground(t.Model),
		Dim:   lipgloss.NewStyle().Foreground(t.Dim),
		Error: lipgloss.NewStyle().Foreground(t.Error),
	}
}

// TranscriptLine renders one tagged transcript line.
func (s Styles) TranscriptLine(input bool, text string) string {
	if input {
		return s.User.Render("[user] ") + text
	}
	return s.Model.Render("[model] ") + text
}
