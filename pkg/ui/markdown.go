package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/dealtree/pkg/marketplace"
	"github.com/vanderheijden86/dealtree/pkg/model"
)

// MarkdownRenderer wraps glamour with a plain-text fallback, so a renderer
// that failed to build never blanks the detail pane.
type MarkdownRenderer struct {
	r     *glamour.TermRenderer
	width int
}

// NewMarkdownRenderer builds a renderer wrapping at width columns.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	if width < 20 {
		width = 20
	}
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	return &MarkdownRenderer{r: r, width: width}
}

// Width returns the wrap width the renderer was built for.
func (m *MarkdownRenderer) Width() int { return m.width }

// Render converts markdown to styled terminal text.
func (m *MarkdownRenderer) Render(md string) string {
	if m == nil || m.r == nil {
		return md
	}
	out, err := m.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func bulletList(b *strings.Builder, heading string, names []string) {
	fmt.Fprintf(b, "### %s\n\n", heading)
	if len(names) == 0 {
		b.WriteString("_any_\n\n")
		return
	}
	for _, n := range names {
		fmt.Fprintf(b, "- %s\n", n)
	}
	b.WriteString("\n")
}

// ProfileMarkdown describes a profile and any names that failed to resolve.
func ProfileMarkdown(p model.Profile, unmatched []marketplace.UnmatchedName) string {
	var b strings.Builder
	company := p.Company
	if company == "" {
		company = "Untitled profile"
	}
	fmt.Fprintf(&b, "## %s\n\n", company)
	fmt.Fprintf(&b, "**Kind:** %s\n\n", p.Kind)
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n\n")
	}
	bulletList(&b, "Countries", p.TargetCriteria.Countries)
	bulletList(&b, "Industry sectors", p.TargetCriteria.IndustrySectors)
	writeUnmatched(&b, unmatched)
	return b.String()
}

// DealInputMarkdown describes a deal being edited.
func DealInputMarkdown(in marketplace.DealInput) string {
	var b strings.Builder
	title := in.Title
	if title == "" {
		title = "Untitled deal"
	}
	fmt.Fprintf(&b, "## %s\n\n", title)
	fmt.Fprintf(&b, "**Geography:** %s  \n", orDash(in.Geography))
	fmt.Fprintf(&b, "**Industry:** %s  \n", orDash(in.Industry))
	fmt.Fprintf(&b, "**Asking price:** %s\n\n", FormatPrice(in.AskingPrice))
	if in.Description != "" {
		b.WriteString(in.Description)
		b.WriteString("\n")
	}
	return b.String()
}

// DealMarkdown describes a stored deal with its ranked buyers.
func DealMarkdown(d model.Deal, matches []marketplace.BuyerMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	fmt.Fprintf(&b, "**Status:** %s  \n", d.Status)
	fmt.Fprintf(&b, "**Geography:** %s  \n", orDash(d.GeographySelection))
	fmt.Fprintf(&b, "**Industry:** %s  \n", orDash(d.IndustrySector))
	fmt.Fprintf(&b, "**Asking price:** %s  \n", FormatPrice(d.AskingPrice))
	fmt.Fprintf(&b, "**Updated:** %s\n\n", FormatTimeRel(d.UpdatedAt))
	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	if matches != nil {
		fmt.Fprintf(&b, "## Matching buyers (%d)\n\n", len(matches))
		for _, m := range matches {
			fmt.Fprintf(&b, "- **%s** geo %d, industry %d\n", m.Profile.Company, m.GeoDistance, m.IndustryDistance)
		}
	}
	return b.String()
}

func writeUnmatched(b *strings.Builder, unmatched []marketplace.UnmatchedName) {
	if len(unmatched) == 0 {
		return
	}
	b.WriteString("### Not in catalog (dropped on save)\n\n")
	for _, u := range unmatched {
		if len(u.Suggestions) > 0 {
			fmt.Fprintf(b, "- %s (%s), did you mean %s?\n", u.Name, u.Field, strings.Join(u.Suggestions, ", "))
		} else {
			fmt.Fprintf(b, "- %s (%s)\n", u.Name, u.Field)
		}
	}
	b.WriteString("\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RenderDeal renders a deal for terminal output.
func RenderDeal(d model.Deal, matches []marketplace.BuyerMatch, width int) string {
	return NewMarkdownRenderer(width).Render(DealMarkdown(d, matches))
}
