package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/marketplace"
	"github.com/vanderheijden86/dealtree/pkg/selection"
)

// CatalogChangedMsg reports that a watched catalog file changed on disk.
type CatalogChangedMsg struct {
	Path string
}

type savedMsg struct {
	status string
	err    error
}

type reboundMsg struct {
	err error
}

// WaitForCatalogChange returns a command that blocks until the next path on
// ch. It yields nil once ch is closed.
func WaitForCatalogChange(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-ch
		if !ok {
			return nil
		}
		return CatalogChangedMsg{Path: path}
	}
}

// editTarget adapts the marketplace editors to the editor screen.
type editTarget interface {
	heading() string
	selectors() (geo, ind *selection.Selector)
	detail() string
	save(ctx context.Context) (string, error)
	rebind(ctx context.Context) error
}

type profileTarget struct {
	e *marketplace.ProfileEditor
}

func (p profileTarget) heading() string {
	if p.e.IsNew() {
		return "New profile"
	}
	return "Profile: " + p.e.Profile.Company
}

func (p profileTarget) selectors() (*selection.Selector, *selection.Selector) {
	return p.e.Geography, p.e.Industry
}

func (p profileTarget) detail() string {
	return ProfileMarkdown(p.e.Profile, p.e.Unmatched())
}

func (p profileTarget) save(ctx context.Context) (string, error) {
	saved, dropped, err := p.e.Save(ctx)
	if err != nil {
		return "", err
	}
	if len(dropped) > 0 {
		return fmt.Sprintf("Saved %s (%d unknown names dropped)", saved.Company, len(dropped)), nil
	}
	return "Saved " + saved.Company, nil
}

func (p profileTarget) rebind(ctx context.Context) error { return p.e.Rebind(ctx) }

type dealTarget struct {
	e *marketplace.DealEditor
}

func (d dealTarget) heading() string {
	if d.e.IsNew() {
		return "New deal"
	}
	return "Deal: " + d.e.Input.Title
}

func (d dealTarget) selectors() (*selection.Selector, *selection.Selector) {
	return d.e.Geography, d.e.Industry
}

func (d dealTarget) detail() string {
	return DealInputMarkdown(d.e.Input)
}

func (d dealTarget) save(ctx context.Context) (string, error) {
	saved, err := d.e.Save(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved %s (%s)", saved.Title, saved.Status), nil
}

func (d dealTarget) rebind(ctx context.Context) error { return d.e.Rebind(ctx) }

// EditorOptions tune the editor screen.
type EditorOptions struct {
	StartPane  string // "geography" or "industry"
	ChipWidth  int
	ShowCounts bool
	Changes    <-chan string
}

const (
	paneGeography = iota
	paneIndustry
)

// EditorModel is the full-screen editor: a geography picker, an industry
// picker and a detail pane describing the record being edited.
type EditorModel struct {
	ctx    context.Context
	target editTarget
	theme  Theme
	opts   EditorOptions

	geo    PickerModel
	ind    PickerModel
	pane   int
	detail viewport.Model
	md     *MarkdownRenderer

	width  int
	height int

	status   string
	err      error
	saving   bool
	quitting bool
}

// NewProfileEditorModel opens the editor over a profile editing session.
func NewProfileEditorModel(ctx context.Context, e *marketplace.ProfileEditor, theme Theme, opts EditorOptions) EditorModel {
	return newEditorModel(ctx, profileTarget{e: e}, theme, opts)
}

// NewDealEditorModel opens the editor over a deal editing session.
func NewDealEditorModel(ctx context.Context, e *marketplace.DealEditor, theme Theme, opts EditorOptions) EditorModel {
	return newEditorModel(ctx, dealTarget{e: e}, theme, opts)
}

func newEditorModel(ctx context.Context, target editTarget, theme Theme, opts EditorOptions) EditorModel {
	geoSel, indSel := target.selectors()
	m := EditorModel{
		ctx:    ctx,
		target: target,
		theme:  theme,
		opts:   opts,
		geo:    NewPickerModel("Geography", geoSel, theme),
		ind:    NewPickerModel("Industry", indSel, theme),
		detail: viewport.New(40, 8),
		md:     NewMarkdownRenderer(60),
		width:  100,
		height: 30,
	}
	for _, p := range []*PickerModel{&m.geo, &m.ind} {
		p.SetChipWidth(opts.ChipWidth)
		p.SetShowCounts(opts.ShowCounts)
	}
	if opts.StartPane == "industry" {
		m.pane = paneIndustry
	}
	m.focusPane()
	m.layout()
	return m
}

// Init starts listening for catalog changes.
func (m EditorModel) Init() tea.Cmd {
	return WaitForCatalogChange(m.opts.Changes)
}

func (m *EditorModel) active() *PickerModel {
	if m.pane == paneIndustry {
		return &m.ind
	}
	return &m.geo
}

func (m *EditorModel) focusPane() {
	if m.pane == paneIndustry {
		m.geo.Blur()
		m.ind.Focus()
	} else {
		m.ind.Blur()
		m.geo.Focus()
	}
}

func (m *EditorModel) layout() {
	pickerH := m.height * 2 / 3
	if pickerH < 8 {
		pickerH = 8
	}
	half := m.width / 2
	m.geo.SetSize(half, pickerH)
	m.ind.SetSize(m.width-half, pickerH)

	detailH := m.height - pickerH - 4
	if detailH < 3 {
		detailH = 3
	}
	m.detail.Width = m.width - 2
	m.detail.Height = detailH
	if m.md.Width() != m.width-4 {
		m.md = NewMarkdownRenderer(m.width - 4)
	}
	m.refreshDetail()
}

func (m *EditorModel) refreshDetail() {
	m.detail.SetContent(m.md.Render(m.target.detail()))
}

func (m *EditorModel) saveCmd() tea.Cmd {
	ctx, target := m.ctx, m.target
	return func() tea.Msg {
		status, err := target.save(ctx)
		return savedMsg{status: status, err: err}
	}
}

func (m *EditorModel) rebindCmd() tea.Cmd {
	ctx, target := m.ctx, m.target
	return func() tea.Msg {
		return reboundMsg{err: target.rebind(ctx)}
	}
}

// Update handles messages.
func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case savedMsg:
		m.saving = false
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		m.refreshDetail()
		return m, nil

	case CatalogChangedMsg:
		debug.Log("catalog changed: %s", msg.Path)
		m.status = "Catalog changed, reloading..."
		return m, tea.Batch(m.rebindCmd(), WaitForCatalogChange(m.opts.Changes))

	case reboundMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("reload catalog: %w", msg.err)
			return m, nil
		}
		geoSel, indSel := m.target.selectors()
		m.geo.SetSelector(geoSel)
		m.ind.SetSelector(indSel)
		m.status = "Catalog reloaded"
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+s":
		if m.saving {
			return m, nil
		}
		m.saving = true
		m.err = nil
		m.status = "Saving..."
		return m, m.saveCmd()
	}

	p := m.active()
	if !p.Editing() {
		switch msg.String() {
		case "tab", "shift+tab":
			m.pane = 1 - m.pane
			m.focusPane()
			return m, nil
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "pgup":
			m.detail.HalfPageUp()
			return m, nil
		case "pgdown":
			m.detail.HalfPageDown()
			return m, nil
		}
	}

	handled, cmd := p.HandleKey(msg)
	if handled {
		m.err = nil
		if s := p.Status(); s != "" {
			m.status = s
		}
		m.refreshDetail()
	}
	return m, cmd
}

// Status returns the last status line.
func (m EditorModel) Status() string { return m.status }

// Err returns the last save or reload error.
func (m EditorModel) Err() error { return m.err }

// Quitting reports whether the user asked to leave.
func (m EditorModel) Quitting() bool { return m.quitting }

// View renders the editor.
func (m EditorModel) View() string {
	if m.quitting {
		return ""
	}
	t := m.theme
	header := t.Header.Render(m.target.heading())

	pickers := lipgloss.JoinHorizontal(lipgloss.Top, m.geo.View(), m.ind.View())
	detail := PanelStyle.Width(max(m.width-2, 10)).Render(m.detail.View())

	var footer string
	switch {
	case m.err != nil:
		footer = t.ErrorText.Render("Error: " + m.err.Error())
	case m.status != "":
		footer = t.InfoText.Render(m.status)
	default:
		footer = t.MutedText.Render("tab switch pane  ctrl+s save  pgup/pgdown scroll  q quit")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, pickers, detail, footer)
}
