package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// pickerRow is one visible line of the flattened tree.
type pickerRow struct {
	node   *taxonomy.Node
	prefix string
	isLast bool
}

// PickerModel is a collapsible checkbox tree over one selector, with a
// search box and a chip row showing the serialized selection.
type PickerModel struct {
	title    string
	sel      *selection.Selector
	theme    Theme
	input    textinput.Model
	focused  bool
	editing  bool
	expanded map[string]bool
	rows     []pickerRow
	cursor   int
	scroll   int

	chipCursor int
	chipWidth  int
	showCounts bool

	width  int
	height int

	status string
	copyFn func(string) error
}

// NewPickerModel creates a picker over sel. Top-level nodes start expanded.
func NewPickerModel(title string, sel *selection.Selector, theme Theme) PickerModel {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Prompt = "/ "

	m := PickerModel{
		title:     title,
		sel:       sel,
		theme:     theme,
		input:     ti,
		expanded:  make(map[string]bool),
		chipWidth: 24,
		width:     60,
		height:    20,
		copyFn:    clipboard.WriteAll,
	}
	for _, r := range sel.Tree().Roots {
		m.expanded[r.ID] = true
	}
	m.rebuild()
	return m
}

// SetSize sets the available dimensions.
func (m *PickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.ensureVisible()
}

// SetChipWidth caps the display width of a single chip.
func (m *PickerModel) SetChipWidth(w int) {
	if w > 3 {
		m.chipWidth = w
	}
}

// SetShowCounts toggles the selected-children counter on branch rows.
func (m *PickerModel) SetShowCounts(v bool) {
	m.showCounts = v
}

// SetCopyFunc replaces the clipboard writer.
func (m *PickerModel) SetCopyFunc(fn func(string) error) {
	m.copyFn = fn
}

// SetSelector swaps the selector, e.g. after the catalog was reloaded.
// Expansion state carries over for IDs that still exist.
func (m *PickerModel) SetSelector(sel *selection.Selector) {
	m.sel = sel
	m.rebuild()
}

// Focus marks the picker as the active pane.
func (m *PickerModel) Focus() { m.focused = true }

// Blur marks the picker as inactive and leaves search editing.
func (m *PickerModel) Blur() {
	m.focused = false
	m.editing = false
	m.input.Blur()
}

// Focused reports whether the picker is the active pane.
func (m *PickerModel) Focused() bool { return m.focused }

// Editing reports whether keystrokes go to the search box.
func (m *PickerModel) Editing() bool { return m.editing }

// Query returns the current search text.
func (m *PickerModel) Query() string { return m.input.Value() }

// Status returns the last transient message (copy result, removal).
func (m *PickerModel) Status() string { return m.status }

// Chips returns the serialized selection shown in the chip row.
func (m *PickerModel) Chips() []string { return m.sel.Serialize() }

// CurrentNode returns the node under the cursor, or nil.
func (m *PickerModel) CurrentNode() *taxonomy.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

// VisibleRows returns the names of the rows currently shown, in order.
func (m *PickerModel) VisibleRows() []string {
	out := make([]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.node.Name
	}
	return out
}

// rebuild flattens either the full tree or the filtered copy. While a query
// is active every branch of the copy is shown open.
func (m *PickerModel) rebuild() {
	query := strings.TrimSpace(m.input.Value())
	var roots []*taxonomy.Node
	if query == "" {
		roots = m.sel.Tree().Roots
	} else {
		roots = m.sel.Filter(query)
	}

	m.rows = m.rows[:0]
	var walk func(nodes []*taxonomy.Node, prefix string, top bool)
	walk = func(nodes []*taxonomy.Node, prefix string, top bool) {
		for i, n := range nodes {
			last := i == len(nodes)-1
			m.rows = append(m.rows, pickerRow{node: n, prefix: prefix, isLast: last})
			if n.IsLeaf() || (query == "" && !m.expanded[n.ID]) {
				continue
			}
			next := prefix
			if !top {
				if last {
					next += "    "
				} else {
					next += "│   "
				}
			}
			walk(n.Children, next, false)
		}
	}
	walk(roots, "", true)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if n := len(m.Chips()); m.chipCursor >= n {
		m.chipCursor = max(n-1, 0)
	}
	m.ensureVisible()
}

func (m *PickerModel) listHeight() int {
	// title, search line, chip line, divider
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *PickerModel) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+h {
		m.scroll = m.cursor - h + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// MoveUp moves the cursor one row up.
func (m *PickerModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.ensureVisible()
	}
}

// MoveDown moves the cursor one row down.
func (m *PickerModel) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		m.ensureVisible()
	}
}

// Expand opens the branch under the cursor, or steps into its first child
// when it is already open.
func (m *PickerModel) Expand() {
	n := m.CurrentNode()
	if n == nil || n.IsLeaf() {
		return
	}
	if m.expanded[n.ID] || m.Query() != "" {
		m.MoveDown()
		return
	}
	m.expanded[n.ID] = true
	m.rebuild()
}

// Collapse closes the branch under the cursor, or jumps to the parent row.
func (m *PickerModel) Collapse() {
	n := m.CurrentNode()
	if n == nil {
		return
	}
	if !n.IsLeaf() && m.expanded[n.ID] && m.Query() == "" {
		m.expanded[n.ID] = false
		m.rebuild()
		return
	}
	if n.Parent == nil {
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].node.ID == n.Parent.ID {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

// ToggleCurrent flips the node under the cursor through the selector.
func (m *PickerModel) ToggleCurrent() {
	n := m.CurrentNode()
	if n == nil {
		return
	}
	if selected, ok := m.sel.ToggleID(n.ID); ok {
		if selected {
			m.status = "Selected " + n.Name
		} else {
			m.status = "Cleared " + n.Name
		}
	}
	m.rebuild()
}

// RemoveChip deselects the chip under the chip cursor.
func (m *PickerModel) RemoveChip() {
	chips := m.Chips()
	if len(chips) == 0 {
		return
	}
	name := chips[m.chipCursor]
	if m.sel.RemoveByName(name) {
		m.status = "Removed " + name
	}
	m.rebuild()
}

// CopyChips writes the serialized selection, one name per line, to the
// clipboard.
func (m *PickerModel) CopyChips() {
	chips := m.Chips()
	if len(chips) == 0 {
		m.status = "Nothing selected"
		return
	}
	if err := m.copyFn(strings.Join(chips, "\n")); err != nil {
		m.status = "Clipboard error: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("Copied %d names", len(chips))
}

// HandleKey processes a key while the picker has focus. It returns false
// when the key is not one the picker uses, so the caller can handle it.
func (m *PickerModel) HandleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "esc":
			m.input.SetValue("")
			m.editing = false
			m.input.Blur()
			m.rebuild()
			return true, nil
		case "enter":
			m.editing = false
			m.input.Blur()
			return true, nil
		case "up", "down":
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.cursor = 0
			m.rebuild()
			return true, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		m.MoveUp()
	case "down", "j":
		m.MoveDown()
	case "right", "l":
		m.Expand()
	case "left", "h":
		m.Collapse()
	case " ", "enter":
		m.ToggleCurrent()
	case "/":
		m.editing = true
		return true, m.input.Focus()
	case "esc":
		if m.Query() == "" {
			return false, nil
		}
		m.input.SetValue("")
		m.rebuild()
	case "[":
		if m.chipCursor > 0 {
			m.chipCursor--
		}
	case "]":
		if m.chipCursor < len(m.Chips())-1 {
			m.chipCursor++
		}
	case "x", "delete":
		m.RemoveChip()
	case "y":
		m.CopyChips()
	default:
		return false, nil
	}
	return true, nil
}

func (m *PickerModel) mark(n *taxonomy.Node) string {
	t := m.theme
	switch m.sel.Mark(n.ID) {
	case selection.MarkAll:
		return t.CheckedMark.Render("[x]")
	case selection.MarkPartial:
		return t.PartialMark.Render("[-]")
	default:
		return t.EmptyMark.Render("[ ]")
	}
}

func (m *PickerModel) selectedChildren(n *taxonomy.Node) int {
	count := 0
	for _, c := range n.Children {
		if m.sel.IsSelected(c.ID) {
			count++
		}
	}
	return count
}

func (m *PickerModel) renderRow(i int) string {
	t := m.theme
	row := m.rows[i]
	n := row.node

	var b strings.Builder
	b.WriteString(row.prefix)
	if n.Level > 0 {
		if row.isLast {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
	}
	switch {
	case n.IsLeaf():
		b.WriteString("• ")
	case m.Query() != "" || m.expanded[n.ID]:
		b.WriteString("▾ ")
	default:
		b.WriteString("▸ ")
	}
	b.WriteString(m.mark(n))
	b.WriteString(" ")

	name := n.Name
	if m.showCounts && !n.IsLeaf() {
		name = fmt.Sprintf("%s (%d/%d)", name, m.selectedChildren(n), len(n.Children))
	}
	avail := m.width - lipgloss.Width(b.String()) - 2
	name = truncateRunesHelper(name, avail, "…")

	line := b.String()
	if i == m.cursor && m.focused {
		return line + t.Selected.Render(padRight(name, avail))
	}
	return line + t.Base.Render(name)
}

func (m *PickerModel) renderChips() string {
	chips := m.Chips()
	if len(chips) == 0 {
		return m.theme.MutedText.Render("(nothing selected)")
	}
	parts := make([]string, 0, len(chips))
	used := 0
	for i, c := range chips {
		chip := RenderChip(c, m.chipWidth, m.focused && i == m.chipCursor)
		w := lipgloss.Width(chip) + 1
		if used+w > m.width-8 && len(parts) > 0 {
			parts = append(parts, m.theme.MutedText.Render(fmt.Sprintf("+%d", len(chips)-i)))
			break
		}
		parts = append(parts, chip)
		used += w
	}
	return strings.Join(parts, " ")
}

// View renders the picker.
func (m *PickerModel) View() string {
	t := m.theme
	var lines []string

	title := t.PrimaryBold.Render(m.title)
	if n := len(m.Chips()); n > 0 {
		title += t.MutedText.Render(fmt.Sprintf("  %d selected", n))
	}
	lines = append(lines, title)

	if m.editing || m.Query() != "" {
		lines = append(lines, m.input.View())
	} else {
		lines = append(lines, t.MutedText.Render("/ search  space toggle  x remove  y copy"))
	}
	lines = append(lines, m.renderChips())
	lines = append(lines, RenderDivider(max(m.width-2, 0)))

	if len(m.rows) == 0 {
		lines = append(lines, t.MutedText.Render("No matches"))
	}
	end := min(m.scroll+m.listHeight(), len(m.rows))
	for i := m.scroll; i < end; i++ {
		lines = append(lines, m.renderRow(i))
	}

	style := PanelStyle
	if m.focused {
		style = FocusedPanelStyle
	}
	return style.Width(max(m.width-2, 10)).Render(strings.Join(lines, "\n"))
}
