package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/config"
	"github.com/kingrea/brief-maestro/internal/logging"
)

const testSchemaYAML = `
sections:
  - name: Metadata
    note: Who the client is.
    fields:
      - label: Client
        required: true
      - label: Website
        required: true
  - name: Goals
    fields:
      - label: Channels
        kind: list
      - label: KPIs
        kind: table
        columns: [KPI, Target]
`

// setupProject initializes a project using the test schema and the given
// backend, and points the CLI globals at it.
func setupProject(t *testing.T, backend string) string {
	t.Helper()
	logger = zap.NewNop()
	dir := t.TempDir()
	projectDir = dir
	cfg = nil
	setClear, renderFormat, renderPretty, renderOut = false, "markdown", false, ""
	listAll, historyLines = false, 20
	t.Cleanup(func() {
		projectDir = ""
		cfg = nil
	})

	if err := config.InitBriefDir(dir); err != nil {
		t.Fatalf("init brief dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(testSchemaYAML), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	projectConfig := fmt.Sprintf("version: 1\nstore:\n  backend: %s\nschema:\n  path: schema.yaml\n", backend)
	if err := os.WriteFile(filepath.Join(dir, config.BriefDir, "config.yaml"), []byte(projectConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, "", fn, args...)
}

func runWithInput(t *testing.T, stdin string, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := fn(cmd, args)
	return out.String(), err
}

func mustRun(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) string {
	t.Helper()
	out, err := run(t, fn, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestBriefLifecycle(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			setupProject(t, backend)

			out := mustRun(t, runCreate, "ACME")
			if !strings.Contains(out, "Created draft brief ACME (2 required fields)") {
				t.Fatalf("unexpected create output: %q", out)
			}
			_, err := run(t, runCreate, "ACME")
			if exitCode(err) != 3 {
				t.Fatalf("duplicate create: exit %d, err %v", exitCode(err), err)
			}

			mustRun(t, runSet, "ACME", "Metadata", "Client", "Acme")
			out, err = run(t, runValidate, "ACME")
			if err == nil || exitCode(err) != 1 {
				t.Fatalf("validate on incomplete brief: exit %d, err %v", exitCode(err), err)
			}
			if !strings.Contains(out, "  - Metadata.Website\n") {
				t.Fatalf("validate output should list the missing field:\n%s", out)
			}

			_, err = run(t, runFinalize, "ACME")
			if exitCode(err) != 7 || !strings.Contains(err.Error(), "Metadata.Website") {
				t.Fatalf("finalize incomplete: exit %d, err %v", exitCode(err), err)
			}

			mustRun(t, runSet, "ACME", "metadata", "website", "acme.com")
			out = mustRun(t, runValidate, "ACME")
			if !strings.Contains(out, "Ready to finalize") {
				t.Fatalf("expected complete report:\n%s", out)
			}
			mustRun(t, runFinalize, "ACME")

			_, err = run(t, runSet, "ACME", "Metadata", "Client", "Other")
			if exitCode(err) != 6 {
				t.Fatalf("set on final brief: exit %d, err %v", exitCode(err), err)
			}

			out = mustRun(t, runGet, "ACME")
			for _, fragment := range []string{"code: ACME", "status: final", "value: acme.com"} {
				if !strings.Contains(out, fragment) {
					t.Fatalf("get output missing %q:\n%s", fragment, out)
				}
			}

			mustRun(t, runArchive, "ACME")
			_, err = run(t, runArchive, "ACME")
			if exitCode(err) != 8 {
				t.Fatalf("second archive: exit %d, err %v", exitCode(err), err)
			}
			if out := mustRun(t, runList); !strings.Contains(out, "No briefs yet") {
				t.Fatalf("archived brief listed by default:\n%s", out)
			}
			listAll = true
			if out := mustRun(t, runList); !strings.Contains(out, "ACME") || !strings.Contains(out, "final, archived") {
				t.Fatalf("full listing missing archived brief:\n%s", out)
			}
		})
	}
}

func TestSetFromStdinAndClear(t *testing.T) {
	setupProject(t, config.BackendFile)
	mustRun(t, runCreate, "ACME")

	if _, err := runWithInput(t, "Leads | 200\nCAC | 30\n", runSet, "ACME", "Goals", "KPIs", "-"); err != nil {
		t.Fatalf("set from stdin: %v", err)
	}
	out := mustRun(t, runRender, "ACME")
	if !strings.Contains(out, "| Leads | 200 |\n| CAC | 30 |\n") {
		t.Fatalf("table not rendered:\n%s", out)
	}

	setClear = true
	if out := mustRun(t, runSet, "ACME", "Goals", "KPIs"); out != "ACME: cleared Goals.KPIs\n" {
		t.Fatalf("unexpected clear output %q", out)
	}
	_, err := run(t, runSet, "ACME", "Goals", "KPIs", "extra")
	if exitCode(err) != 2 {
		t.Fatalf("--clear with a value: exit %d, err %v", exitCode(err), err)
	}
	setClear = false

	_, err = run(t, runSet, "ACME", "Goals", "Budget", "100")
	if exitCode(err) != 5 || !strings.Contains(err.Error(), "Goals.Budget") {
		t.Fatalf("unknown field: exit %d, err %v", exitCode(err), err)
	}
	_, err = run(t, runSet, "NOPE", "Goals", "Channels", "Web")
	if exitCode(err) != 4 || !strings.Contains(err.Error(), "NOPE") {
		t.Fatalf("missing brief: exit %d, err %v", exitCode(err), err)
	}
}

func TestFillFromFile(t *testing.T) {
	dir := setupProject(t, config.BackendFile)
	mustRun(t, runCreate, "ACME")

	data := filepath.Join(dir, "acme.json")
	if err := os.WriteFile(data, []byte(`{"client":"Acme","website":"Sin datos","channels":["Web","Email"]}`), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	out := mustRun(t, runFill, "ACME", data)
	want := "ACME: filled 3 fields\n  Metadata.Client\n  Metadata.Website\n  Goals.Channels\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("fill output mismatch (-want +got):\n%s", diff)
	}
	report := mustRunErr(t, runValidate, "ACME")
	if !strings.Contains(report, "Metadata.Website") {
		t.Fatalf("placeholder should leave website unset:\n%s", report)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("client: Other\nfax: 555\n"), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	_, err := run(t, runFill, "ACME", bad)
	if exitCode(err) != 5 {
		t.Fatalf("unknown key: exit %d, err %v", exitCode(err), err)
	}
	out = mustRun(t, runGet, "ACME")
	if strings.Contains(out, "Other") {
		t.Fatalf("rejected fill must not write:\n%s", out)
	}
}

func mustRunErr(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) string {
	t.Helper()
	out, err := run(t, fn, args...)
	if err == nil {
		t.Fatalf("%v: expected failure", args)
	}
	return out
}

func TestRenderFormatsAndOutput(t *testing.T) {
	dir := setupProject(t, config.BackendFile)
	mustRun(t, runCreate, "ACME")
	mustRun(t, runSet, "ACME", "Metadata", "Client", "Acme")

	renderFormat = "text"
	out := mustRun(t, runRender, "ACME")
	if !strings.HasPrefix(out, "BRIEF: ACME (draft)\n") || !strings.Contains(out, "Website: Sin datos\n") {
		t.Fatalf("unexpected text rendering:\n%s", out)
	}

	renderPretty = true
	_, err := run(t, runRender, "ACME")
	if exitCode(err) != 2 {
		t.Fatalf("--pretty with text: exit %d, err %v", exitCode(err), err)
	}
	renderPretty = false

	renderFormat = "pdf"
	if _, err := run(t, runRender, "ACME"); exitCode(err) != 2 {
		t.Fatalf("unknown format: exit %d, err %v", exitCode(err), err)
	}

	renderFormat = "markdown"
	renderOut = filepath.Join(dir, "acme.md")
	mustRun(t, runRender, "ACME")
	written, err := os.ReadFile(renderOut)
	if err != nil {
		t.Fatalf("read rendering: %v", err)
	}
	if !strings.HasPrefix(string(written), "# Brief: ACME\n") {
		t.Fatalf("unexpected markdown file:\n%s", written)
	}
}

func TestHistory(t *testing.T) {
	setupProject(t, config.BackendFile)
	mustRun(t, runCreate, "ACME")
	mustRun(t, runSet, "ACME", "Metadata", "Client", "Acme")
	mustRun(t, runSet, "ACME", "Goals", "Channels", "Web;Email")

	historyLines = 2
	out := mustRun(t, runHistory, "ACME")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two entries and a summary, got:\n%s", out)
	}
	if !strings.HasSuffix(lines[0], "set Metadata.Client = Acme") || !strings.HasSuffix(lines[1], "set Goals.Channels = Web Email") {
		t.Fatalf("unexpected entries:\n%s", out)
	}
	if lines[2] != "(showing 2 of 3 entries)" {
		t.Fatalf("unexpected summary %q", lines[2])
	}
}

func TestKeysAndSchema(t *testing.T) {
	dir := setupProject(t, config.BackendFile)
	if diff := cmp.Diff("client\nwebsite\nchannels\nkpis\n", mustRun(t, runKeys)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if out := mustRun(t, runSchemaShow); !strings.Contains(out, "name: Metadata") || !strings.Contains(out, "columns:") {
		t.Fatalf("schema show missing definition:\n%s", out)
	}

	template := filepath.Join(dir, "template.md")
	source := "# Brief Maestro\n\n## Metadatos\n\nDatos del cliente.\n\n- **Cliente/Marca:**\n- **Sitio web:**\n"
	if err := os.WriteFile(template, []byte(source), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	schemaImportOut = ""
	out := mustRun(t, runSchemaImport, template)
	for _, fragment := range []string{"name: Metadatos", "note: Datos del cliente.", "label: Cliente/Marca", "label: Sitio web"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("import output missing %q:\n%s", fragment, out)
		}
	}
}

func TestInitSwitchesBackend(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	projectDir = dir
	cfg = nil
	t.Cleanup(func() {
		projectDir = ""
		cfg = nil
		initBackend = ""
	})

	initBackend = "sqlite"
	out := mustRun(t, runInit)
	if !strings.Contains(out, "backend: sqlite") {
		t.Fatalf("unexpected init output %q", out)
	}
	reloaded, err := config.NewConfig(dir)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if reloaded.Backend() != config.BackendSQLite {
		t.Fatalf("backend not persisted: %s", reloaded.Backend())
	}

	initBackend = "postgres"
	if _, err := run(t, runInit); exitCode(err) != 2 {
		t.Fatalf("bad backend: exit %d, err %v", exitCode(err), err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", usageError{errors.New("accepts 1 arg(s)")}, 2},
		{"unknown-command", errors.New(`unknown command "frob" for "briefmaestro"`), 2},
		{"exists", &brief.Error{Code: "ACME", Err: brief.ErrAlreadyExists}, 3},
		{"not-found", fmt.Errorf("wrapped: %w", &brief.Error{Code: "ACME", Err: brief.ErrNotFound}), 4},
		{"unknown-field", &brief.Error{Code: "ACME", Path: "A.B", Err: brief.ErrUnknownField}, 5},
		{"finalized", &brief.Error{Code: "ACME", Err: brief.ErrFinalized}, 6},
		{"incomplete", &brief.Error{Code: "ACME", Missing: []string{"A.B"}, Err: brief.ErrValidationIncomplete}, 7},
		{"archived", &brief.Error{Code: "ACME", Err: brief.ErrArchived}, 8},
		{"invalid-code", &brief.Error{Code: "a b", Err: brief.ErrInvalidCode}, 1},
		{"other", errors.New("disk full"), 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := exitCode(test.err); got != test.want {
				t.Fatalf("exitCode(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}

func TestExecuteClosesLogOnFailure(t *testing.T) {
	dir := setupProject(t, config.BackendFile)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := execute([]string{"--dir", dir, "get", "NOPE"})
	if exitCode(err) != 4 {
		t.Fatalf("get missing brief: exit %d, err %v", exitCode(err), err)
	}
	if logFile != nil || logger != nil {
		t.Fatalf("log file should be closed after a failed command")
	}
	data, err := os.ReadFile(filepath.Join(dir, config.BriefDir, "logs", logging.FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"command failed"`) || !strings.Contains(string(data), `"exit_code":4`) {
		t.Fatalf("failure not logged:\n%s", data)
	}
	closeLog()
}
