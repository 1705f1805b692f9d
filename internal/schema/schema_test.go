package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinSchemaLoads(t *testing.T) {
	s, err := Builtin()
	if err != nil {
		t.Fatalf("builtin schema: %v", err)
	}
	sections := s.Sections()
	if len(sections) != 9 {
		t.Fatalf("expected 9 sections, got %d", len(sections))
	}
	if sections[0].Name != "Metadatos" || sections[2].Name != "Posicionamiento y narrativa" {
		t.Fatalf("unexpected section order: %q, %q", sections[0].Name, sections[2].Name)
	}
	keys := s.Keys()
	if len(keys) != s.FieldCount() {
		t.Fatalf("keys=%d field count=%d", len(keys), s.FieldCount())
	}
	if keys[0] != "cliente_marca" || keys[1] != "razon_social" {
		t.Fatalf("unexpected leading keys: %v", keys[:2])
	}
	required := s.RequiredPaths()
	if len(required) == 0 || required[0] != "Metadatos.Cliente/Marca" {
		t.Fatalf("unexpected required paths: %v", required)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Cliente/Marca":           "cliente_marca",
		"Razón Social":            "razon_social",
		"  Países / Mercados  ":   "paises_mercados",
		"KPIs":                    "kpis",
		"Línea base (2024)":       "linea_base_2024",
		"¿Qué problema resuelve?": "que_problema_resuelve",
		"Straße":                  "strasse",
		"Øresund Æble":            "oresund_aeble",
		"Łódź Đakovo":             "lodz_dakovo",
		"Cœur":                    "coeur",
		"":                        "",
	}
	for input, want := range tests {
		if got := Slug(input); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseDefinitionYAMLRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name: "missing-section-name",
			payload: `
sections:
  - fields:
      - label: Website
`,
			wantErr: "name is required",
		},
		{
			name: "duplicate-key",
			payload: `
sections:
  - name: Metadata
    fields:
      - label: Website
      - label: website
`,
			wantErr: "duplicates",
		},
		{
			name: "table-without-columns",
			payload: `
sections:
  - name: Goals
    fields:
      - label: KPIs
        kind: table
`,
			wantErr: "needs at least one column",
		},
		{
			name: "unknown-kind",
			payload: `
sections:
  - name: Goals
    fields:
      - label: KPIs
        kind: chart
`,
			wantErr: "unknown kind",
		},
		{
			name:    "no-sections",
			payload: "version: 1\n",
			wantErr: "at least one section",
		},
		{
			name: "dotted-section",
			payload: `
sections:
  - name: v1.0
    fields:
      - label: Website
`,
			wantErr: "may not contain",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseDefinitionYAML([]byte(test.payload))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestLookupMatchesNamesAndSlugs(t *testing.T) {
	s := mustSchema(t, `
sections:
  - name: Metadata
    fields:
      - label: Website
        required: true
      - label: Razón Social
`)
	tests := []struct{ section, field, want string }{
		{"Metadata", "Website", "Website"},
		{"metadata", "WEBSITE", "Website"},
		{"Metadata", "razon_social", "Razón Social"},
		{"Metadata", "razon social", "Razón Social"},
	}
	for _, test := range tests {
		_, f, err := s.Lookup(test.section, test.field)
		if err != nil {
			t.Fatalf("lookup %s.%s: %v", test.section, test.field, err)
		}
		if f.Label != test.want {
			t.Fatalf("lookup %s.%s = %q, want %q", test.section, test.field, f.Label, test.want)
		}
	}
	if _, _, err := s.Lookup("Metadata", "Phone"); !errors.Is(err, ErrNotInSchema) {
		t.Fatalf("expected ErrNotInSchema for unknown field, got %v", err)
	}
	if _, _, err := s.Lookup("Audience", "Website"); !errors.Is(err, ErrNotInSchema) {
		t.Fatalf("expected ErrNotInSchema for unknown section, got %v", err)
	}
}

func TestWithRequiredReplacesMarkers(t *testing.T) {
	s := mustSchema(t, `
sections:
  - name: Metadata
    fields:
      - label: Website
        required: true
      - label: Industry
`)
	replaced, err := s.WithRequired([]string{"metadata.industry"})
	if err != nil {
		t.Fatalf("with required: %v", err)
	}
	if diff := cmp.Diff([]string{"Metadata.Industry"}, replaced.RequiredPaths()); diff != "" {
		t.Fatalf("required paths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Metadata.Website"}, s.RequiredPaths()); diff != "" {
		t.Fatalf("original schema must not change (-want +got):\n%s", diff)
	}
	if _, err := s.WithRequired([]string{"Metadata"}); err == nil {
		t.Fatalf("expected malformed path error")
	}
}

func TestSectionsReturnsCopy(t *testing.T) {
	s := mustSchema(t, `
sections:
  - name: Metadata
    fields:
      - label: Website
`)
	sections := s.Sections()
	sections[0].Name = "Mutated"
	sections[0].Fields[0].Label = "Mutated"
	if s.Sections()[0].Name != "Metadata" || s.Sections()[0].Fields[0].Label != "Website" {
		t.Fatalf("schema state leaked through Sections()")
	}
}

func TestImportMarkdown(t *testing.T) {
	const template = `# Brief Maestro

## 1. Metadatos

Datos del cliente.

- **Cliente/Marca:**
- **Razón Social:**
- Sitio web:

## 2. Posicionamiento y narrativa

Propuesta de valor:
Diferenciales:

## Notas sueltas

Texto sin campos.

` + "```\nIgnorado:\n```\n"

	def, err := ImportMarkdown([]byte(template))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if def.Name != "Brief Maestro" {
		t.Fatalf("expected name from first heading, got %q", def.Name)
	}
	if len(def.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(def.Sections), def.Sections)
	}
	meta := def.Sections[0]
	if meta.Name != "Metadatos" || meta.Note != "Datos del cliente." {
		t.Fatalf("unexpected first section: %+v", meta)
	}
	var labels []string
	for _, f := range meta.Fields {
		labels = append(labels, f.Label)
	}
	if diff := cmp.Diff([]string{"Cliente/Marca", "Razón Social", "Sitio web"}, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	if def.Sections[1].Fields[0].Key != "propuesta_de_valor" {
		t.Fatalf("unexpected key %q", def.Sections[1].Fields[0].Key)
	}
}

func TestImportMarkdownRequiresFields(t *testing.T) {
	if _, err := ImportMarkdown([]byte("# Title\n\nJust prose.\n")); err == nil {
		t.Fatalf("expected error for template without fields")
	}
}

func mustSchema(t *testing.T, payload string) *Schema {
	t.Helper()
	def, err := ParseDefinitionYAML([]byte(payload))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	s, err := New(def)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}
