package validator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
)

const definition = `
sections:
  - name: Metadata
    fields:
      - label: Client
        required: true
      - label: Website
        required: true
      - label: Industry
  - name: Goals
    fields:
      - label: Objectives
        kind: list
        required: true
`

func newBrief(t *testing.T) (*schema.Schema, *brief.Brief) {
	t.Helper()
	def, err := schema.ParseDefinitionYAML([]byte(definition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := schema.New(def)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	b, err := brief.New(s, "ACME", time.Now())
	if err != nil {
		t.Fatalf("brief: %v", err)
	}
	return s, b
}

func TestValidateFreshBriefListsAllRequired(t *testing.T) {
	s, b := newBrief(t)
	got := Validate(s, b)
	if diff := cmp.Diff(s.RequiredPaths(), got); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateTracksPopulatedFields(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want []string
	}{
		{
			name: "website-only",
			set:  map[string]string{"Website": "acme.com"},
			want: []string{"Metadata.Client", "Goals.Objectives"},
		},
		{
			name: "optional-does-not-count",
			set:  map[string]string{"Industry": "Retail"},
			want: []string{"Metadata.Client", "Metadata.Website", "Goals.Objectives"},
		},
		{
			name: "blank-value-is-unset",
			set:  map[string]string{"Client": "   ", "Website": "acme.com"},
			want: []string{"Metadata.Client", "Goals.Objectives"},
		},
		{
			name: "complete",
			set:  map[string]string{"Client": "Acme", "Website": "acme.com", "Objectives": "grow"},
			want: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, b := newBrief(t)
			for label, value := range test.set {
				section := "Metadata"
				if label == "Objectives" {
					section = "Goals"
				}
				if _, err := b.SetRaw(s, section, label, value, time.Now()); err != nil {
					t.Fatalf("set %s: %v", label, err)
				}
			}
			if diff := cmp.Diff(test.want, Validate(s, b)); diff != "" {
				t.Fatalf("missing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateMissingSectionCountsAsUnset(t *testing.T) {
	s, b := newBrief(t)
	b.Sections = b.Sections[:1]
	got := Validate(s, b)
	if len(got) == 0 || got[len(got)-1] != "Goals.Objectives" {
		t.Fatalf("expected Goals.Objectives to be reported, got %v", got)
	}
}

func TestCheckReport(t *testing.T) {
	s, b := newBrief(t)
	_, _ = b.SetRaw(s, "Metadata", "Industry", "Retail", time.Now())
	report := Check(s, b)
	if report.IsValid() {
		t.Fatalf("fresh brief must not be valid")
	}
	if report.Filled != 1 || report.Total != 4 || report.RequiredTotal != 3 || report.RequiredFilled != 0 {
		t.Fatalf("unexpected counters: %+v", report)
	}
}
