package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
	"github.com/kingrea/brief-maestro/internal/store"
)

const testSchemaYAML = `
sections:
  - name: Metadata
    fields:
      - label: Client
        required: true
      - label: Website
        required: true
  - name: Goals
    fields:
      - label: Channels
        kind: list
`

func newTestStore(t *testing.T) *store.Documents {
	t.Helper()
	def, err := schema.ParseDefinitionYAML([]byte(testSchemaYAML))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	s, err := schema.New(def)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "briefs"))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	docs := store.New(backend, s)
	if _, err := docs.Create(context.Background(), "ACME"); err != nil {
		t.Fatalf("create: %v", err)
	}
	return docs
}

func newTestApp(t *testing.T, docs *store.Documents) *App {
	t.Helper()
	app, err := NewApp(context.Background(), docs, "ACME")
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return model.(*App)
}

func TestNewAppMissingBrief(t *testing.T) {
	docs := newTestStore(t)
	_, err := NewApp(context.Background(), docs, "NOPE")
	if !errors.Is(err, brief.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEditAndSaveField(t *testing.T) {
	docs := newTestStore(t)
	app := newTestApp(t, docs)

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if app.state != stateEdit || app.editing == nil {
		t.Fatalf("enter should open the editor")
	}
	if got := app.editing.path(); got != "Metadata.Client" {
		t.Fatalf("editing %q, want Metadata.Client", got)
	}
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Acme")})
	app = model.(*App)

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	app = runCommands(t, model, cmd)
	if app.state != stateBrowse {
		t.Fatalf("save should return to the field list")
	}
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	if app.statusMsg != "Saved Metadata.Client" {
		t.Fatalf("status = %q", app.statusMsg)
	}

	b, err := docs.Get(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	f, _, _ := b.Field(docs.Schema(), "Metadata", "Client")
	if !f.IsSet() || f.Value.Raw() != "Acme" {
		t.Fatalf("client not stored: %#v", f.Value)
	}
	if !strings.Contains(app.View(), "1/3 fields") {
		t.Fatalf("header should show progress:\n%s", app.View())
	}
}

func TestEscapeCancelsEdit(t *testing.T) {
	docs := newTestStore(t)
	app := newTestApp(t, docs)

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("draft text")})
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("cancel should not issue commands")
	}
	if app.state != stateBrowse || app.editing != nil {
		t.Fatalf("esc should close the editor")
	}
	report, err := docs.Validate(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Filled != 0 {
		t.Fatalf("cancelled edit was stored")
	}
}

func TestValidateAndFinalize(t *testing.T) {
	docs := newTestStore(t)
	ctx := context.Background()
	if _, err := docs.SetField(ctx, "ACME", "Metadata", "Client", "Acme"); err != nil {
		t.Fatalf("set: %v", err)
	}
	app := newTestApp(t, docs)

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	app = runCommands(t, model, cmd)
	if diff := cmp.Diff([]string{"Metadata.Website"}, app.missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}

	model, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	app = runCommands(t, model, cmd)
	if !errors.Is(app.err, brief.ErrValidationIncomplete) {
		t.Fatalf("expected incomplete error, got %v", app.err)
	}
	if app.brief.Status != brief.StatusDraft {
		t.Fatalf("brief must stay draft")
	}

	if _, err := docs.SetField(ctx, "ACME", "Metadata", "Website", "acme.com"); err != nil {
		t.Fatalf("set: %v", err)
	}
	model, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	app = runCommands(t, model, cmd)
	if app.err != nil {
		t.Fatalf("finalize: %v", app.err)
	}
	if app.brief.Status != brief.StatusFinal || app.missing != nil {
		t.Fatalf("expected final brief, got %s missing %v", app.brief.Status, app.missing)
	}

	model, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if cmd != nil || app.state == stateEdit {
		t.Fatalf("final brief opened the editor")
	}
	if !errors.Is(app.err, brief.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", app.err)
	}
}

func TestQuit(t *testing.T) {
	app := newTestApp(t, newTestStore(t))
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		var ok bool
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}
