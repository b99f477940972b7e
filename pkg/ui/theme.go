package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme carries the colors and pre-built styles of the editor.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Selection marks
	Checked lipgloss.AdaptiveColor
	Partial lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, built once instead of per frame
	MutedText   lipgloss.Style
	PrimaryBold lipgloss.Style
	CheckedMark lipgloss.Style
	PartialMark lipgloss.Style
	EmptyMark   lipgloss.Style
	ErrorText   lipgloss.Style
	InfoText    lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},

		Checked: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Partial: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.CheckedMark = r.NewStyle().Foreground(t.Checked).Bold(true)
	t.PartialMark = r.NewStyle().Foreground(t.Partial).Bold(true)
	t.EmptyMark = r.NewStyle().Foreground(ThemeFg("#6272A4"))
	t.ErrorText = r.NewStyle().Foreground(ColorDanger)
	t.InfoText = r.NewStyle().Foreground(ColorInfo)

	return t
}

// ThemeFor builds the theme for a configured mode: "dark" and "light" pin
// the adaptive colors, anything else follows the terminal background.
func ThemeFor(mode string) Theme {
	r := lipgloss.NewRenderer(os.Stdout)
	switch mode {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return DefaultTheme(r)
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
