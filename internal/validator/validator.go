// Package validator decides whether a brief is complete enough to finalize.
package validator

import (
	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
)

// Validate returns the Section.Field paths of required fields that the brief
// leaves unset, in schema order. An empty result means the brief may be
// finalized. A required field the brief does not carry at all counts as
// missing.
func Validate(s *schema.Schema, b *brief.Brief) []string {
	var missing []string
	for _, sec := range s.Sections() {
		for _, f := range sec.Fields {
			if !f.Required {
				continue
			}
			if !isSet(b, sec.Name, f.Key) {
				missing = append(missing, schema.Path(sec.Name, f.Label))
			}
		}
	}
	return missing
}

func isSet(b *brief.Brief, section, key string) bool {
	for _, sec := range b.Sections {
		if sec.Name != section {
			continue
		}
		for _, f := range sec.Fields {
			if f.Key == key {
				return f.IsSet()
			}
		}
	}
	return false
}

// Report summarizes a validation run for display.
type Report struct {
	Code           string
	Status         brief.Status
	Missing        []string
	Filled         int
	Total          int
	RequiredFilled int
	RequiredTotal  int
}

// Check validates b and collects progress counters alongside the result.
func Check(s *schema.Schema, b *brief.Brief) *Report {
	filled, total, reqFilled, reqTotal := b.Progress()
	return &Report{
		Code:           b.Code,
		Status:         b.Status,
		Missing:        Validate(s, b),
		Filled:         filled,
		Total:          total,
		RequiredFilled: reqFilled,
		RequiredTotal:  reqTotal,
	}
}

// IsValid reports whether the validation passed.
func (r *Report) IsValid() bool {
	return r != nil && len(r.Missing) == 0
}
