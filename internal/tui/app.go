// internal/tui/app.go
//
// This is the interactive brief editor. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: the brief being edited plus widget state
// 2. Update: a function that updates state based on messages
// 3. View: a function that renders state to a string
//
// Every save goes through the document store, so the editor obeys the same
// rules as the CLI and the HTTP API.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
	"github.com/kingrea/brief-maestro/internal/validator"
)

// editorState represents which "screen" we're on
type editorState int

const (
	stateBrowse editorState = iota // Field list
	stateEdit                      // Text area open on one field
)

// Store is what the editor needs from the document store.
type Store interface {
	Schema() *schema.Schema
	Get(ctx context.Context, code string) (*brief.Brief, error)
	SetField(ctx context.Context, code, section, field, raw string) (string, error)
	Validate(ctx context.Context, code string) (*validator.Report, error)
	Finalize(ctx context.Context, code string) (*brief.Brief, error)
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	setStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	finalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	draftStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// fieldItem implements list.Item for one field of the brief.
type fieldItem struct {
	number  int
	section string
	field   brief.Field
}

func (i fieldItem) Title() string {
	mark := "·"
	if i.field.IsSet() {
		mark = "✓"
	}
	title := fmt.Sprintf("%s %s", mark, i.field.Label)
	if i.field.Required {
		title += " *"
	}
	return title
}

func (i fieldItem) Description() string {
	where := fmt.Sprintf("%d. %s", i.number, i.section)
	if !i.field.IsSet() {
		if i.field.Hint != "" {
			return where + " · " + i.field.Hint
		}
		return where + " · " + string(i.field.Kind)
	}
	return where + " · " + preview(i.field.Value.Raw(), 60)
}

func (i fieldItem) FilterValue() string { return i.section + " " + i.field.Label }

func (i fieldItem) path() string { return schema.Path(i.section, i.field.Label) }

type fieldSavedMsg struct {
	path  string
	brief *brief.Brief
	err   error
}

type validatedMsg struct {
	report *validator.Report
	err    error
}

type finalizedMsg struct {
	brief *brief.Brief
	err   error
}

// App is the editor model. In bubbletea, this holds ALL your state.
type App struct {
	ctx   context.Context
	state editorState
	store Store
	code  string
	brief *brief.Brief

	// UI components
	fields    list.Model
	editor    textarea.Model
	editing   *fieldItem
	statusMsg string
	err       error
	missing   []string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp loads the brief and builds the editor.
func NewApp(ctx context.Context, store Store, code string) (*App, error) {
	b, err := store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	fields := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	fields.SetShowStatusBar(false)
	fields.SetShowHelp(false)
	fields.DisableQuitKeybindings()

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0

	a := &App{
		ctx:    ctx,
		state:  stateBrowse,
		store:  store,
		code:   code,
		fields: fields,
		editor: editor,
	}
	a.setBrief(b)
	return a, nil
}

// Run opens the editor full screen until the user quits.
func Run(ctx context.Context, store Store, code string) error {
	app, err := NewApp(ctx, store, code)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (a *App) setBrief(b *brief.Brief) {
	a.brief = b
	a.fields.Title = fmt.Sprintf("BRIEF · %s", b.Code)
	var items []list.Item
	for i, sec := range b.Sections {
		for _, f := range sec.Fields {
			items = append(items, fieldItem{number: i + 1, section: sec.Name, field: f})
		}
	}
	a.fields.SetItems(items)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.fields.SetSize(max(0, msg.Width-4), max(0, msg.Height-8))
		a.editor.SetWidth(max(20, msg.Width-6))
		a.editor.SetHeight(max(3, msg.Height-12))
		return a, nil

	case fieldSavedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.state = stateBrowse
		a.editing = nil
		a.editor.Blur()
		a.setBrief(msg.brief)
		a.statusMsg = "Saved " + msg.path
		return a, nil

	case validatedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.missing = msg.report.Missing
		if msg.report.IsValid() {
			a.statusMsg = "Complete: every required field is filled"
		} else {
			a.statusMsg = fmt.Sprintf("%d required fields missing", len(msg.report.Missing))
		}
		return a, nil

	case finalizedMsg:
		if msg.err != nil {
			a.err = msg.err
			a.missing = brief.MissingFields(msg.err)
			return a, nil
		}
		a.err = nil
		a.missing = nil
		a.setBrief(msg.brief)
		a.statusMsg = "Brief finalized"
		return a, nil

	case tea.KeyMsg:
		if a.state == stateEdit {
			switch msg.String() {
			case "ctrl+c":
				return a, tea.Quit
			case "esc":
				a.state = stateBrowse
				a.editing = nil
				a.editor.Blur()
				a.statusMsg = "Edit cancelled"
				return a, nil
			case "ctrl+s":
				return a, a.saveField(*a.editing, a.editor.Value())
			}
			var cmd tea.Cmd
			a.editor, cmd = a.editor.Update(msg)
			return a, cmd
		}
		if a.fields.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter", "e":
			return a, a.beginEdit()
		case "v":
			return a, a.validate()
		case "f":
			return a, a.finalize()
		}
	}

	var cmd tea.Cmd
	if a.state == stateBrowse {
		a.fields, cmd = a.fields.Update(msg)
	}
	return a, cmd
}

func (a *App) beginEdit() tea.Cmd {
	item, ok := a.fields.SelectedItem().(fieldItem)
	if !ok {
		return nil
	}
	if err := a.brief.Mutable(); err != nil {
		a.err = err
		return nil
	}
	a.err = nil
	a.editing = &item
	a.state = stateEdit
	value := ""
	if item.field.IsSet() {
		value = item.field.Value.Raw()
	}
	a.editor.SetValue(value)
	a.statusMsg = "Editing " + item.path()
	return a.editor.Focus()
}

func (a *App) saveField(item fieldItem, raw string) tea.Cmd {
	ctx, store, code := a.ctx, a.store, a.code
	return func() tea.Msg {
		path, err := store.SetField(ctx, code, item.section, item.field.Label, raw)
		if err != nil {
			return fieldSavedMsg{err: err}
		}
		b, err := store.Get(ctx, code)
		return fieldSavedMsg{path: path, brief: b, err: err}
	}
}

func (a *App) validate() tea.Cmd {
	ctx, store, code := a.ctx, a.store, a.code
	return func() tea.Msg {
		report, err := store.Validate(ctx, code)
		return validatedMsg{report: report, err: err}
	}
}

func (a *App) finalize() tea.Cmd {
	ctx, store, code := a.ctx, a.store, a.code
	return func() tea.Msg {
		b, err := store.Finalize(ctx, code)
		return finalizedMsg{brief: b, err: err}
	}
}

// View renders the current state.
func (a *App) View() string {
	var content string
	switch a.state {
	case stateEdit:
		content = a.renderEditor()
	default:
		content = a.fields.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		content,
		a.renderFooter(),
	)
}

func (a *App) renderHeader() string {
	filled, total, reqFilled, reqTotal := a.brief.Progress()
	status := draftStyle.Render(strings.ToUpper(string(a.brief.Status)))
	if a.brief.Status == brief.StatusFinal {
		status = finalStyle.Render(strings.ToUpper(string(a.brief.Status)))
	}
	if a.brief.Archived {
		status += " " + hintStyle.Render("ARCHIVED")
	}
	progress := detailStyle.Render(fmt.Sprintf("%d/%d fields · %d/%d required", filled, total, reqFilled, reqTotal))
	return fmt.Sprintf("%s  %s  %s\n", headerStyle.Render("⬡ BRIEF MAESTRO · "+a.code), status, progress)
}

func (a *App) renderEditor() string {
	if a.editing == nil {
		return ""
	}
	f := a.editing.field
	lines := []string{
		headerStyle.Render(a.editing.path()),
		detailStyle.Render(kindHint(f)),
	}
	if f.Hint != "" {
		lines = append(lines, hintStyle.Render(f.Hint))
	}
	lines = append(lines, "", a.editor.View())
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderFooter() string {
	var lines []string
	if a.err != nil {
		lines = append(lines, missingStyle.Render("✗ "+a.err.Error()))
	} else if a.statusMsg != "" {
		lines = append(lines, setStyle.Render(a.statusMsg))
	}
	if len(a.missing) > 0 {
		lines = append(lines, missingStyle.Render("Missing: ")+strings.Join(a.missing, ", "))
	}
	help := "enter edit · v validate · f finalize · / filter · q quit"
	if a.state == stateEdit {
		help = "ctrl+s save · esc cancel"
	}
	lines = append(lines, hintStyle.Render(help))
	return strings.Join(lines, "\n")
}

func kindHint(f brief.Field) string {
	switch f.Kind {
	case schema.KindList:
		return "One item per line."
	case schema.KindTable:
		return "One row per line, cells separated by |: " + strings.Join(f.Columns, " | ")
	case schema.KindMultiline:
		return "Free text, line breaks kept."
	default:
		return "Single line."
	}
}

func preview(raw string, limit int) string {
	flat := strings.Join(strings.Fields(raw), " ")
	runes := []rune(flat)
	if len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return flat
}
