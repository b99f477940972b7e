package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Deal status colors
	ColorDealActive    = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorDealOffMarket = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDealCompleted = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}

	ColorDealActiveBg    = lipgloss.AdaptiveColor{Light: "#D4EDDA", Dark: "#1A3D2A"}
	ColorDealOffMarketBg = lipgloss.AdaptiveColor{Light: "#FFE8CC", Dark: "#3D2A1A"}
	ColorDealCompletedBg = lipgloss.AdaptiveColor{Light: "#E2E3E5", Dark: "#2A2A3D"}

	// Chip colors for serialized selection names
	ColorChip   = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorChipBg = lipgloss.AdaptiveColor{Light: "#E8DDFF", Dark: "#2A1A44"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RenderDealStatusBadge returns a short colored status label
func RenderDealStatusBadge(status string) string {
	var fg, bg lipgloss.AdaptiveColor
	var label string

	switch status {
	case "active":
		fg, bg, label = ColorDealActive, ColorDealActiveBg, "ACTIVE"
	case "off_market":
		fg, bg, label = ColorDealOffMarket, ColorDealOffMarketBg, "OFF MKT"
	case "completed":
		fg, bg, label = ColorDealCompleted, ColorDealCompletedBg, "DONE"
	default:
		fg, bg, label = ColorMuted, ColorBgSubtle, "????"
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Padding(0, 1).
		Render(label)
}

// RenderChip renders one selected name, cut to maxWidth cells.
func RenderChip(name string, maxWidth int, focused bool) string {
	style := lipgloss.NewStyle().
		Foreground(ColorChip).
		Background(ColorChipBg).
		Padding(0, 1)
	if focused {
		style = style.Bold(true).Underline(true)
	}
	return style.Render(truncateRunesHelper(name, maxWidth, "…"))
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
