package brief

import "time"

// Snapshot is the serializable view of a brief used by the HTTP API and the
// CLI. Values keep their natural shape: a string for text, a list of strings
// for lists, and a list of rows for tables.
type Snapshot struct {
	Code      string            `json:"code" yaml:"code"`
	Status    Status            `json:"status" yaml:"status"`
	Archived  bool              `json:"archived" yaml:"archived"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" yaml:"updated_at"`
	Sections  []SectionSnapshot `json:"sections" yaml:"sections"`
}

type SectionSnapshot struct {
	Name   string          `json:"name" yaml:"name"`
	Note   string          `json:"note,omitempty" yaml:"note,omitempty"`
	Fields []FieldSnapshot `json:"fields" yaml:"fields"`
}

type FieldSnapshot struct {
	Label    string   `json:"label" yaml:"label"`
	Key      string   `json:"key" yaml:"key"`
	Kind     string   `json:"kind" yaml:"kind"`
	Required bool     `json:"required" yaml:"required"`
	Columns  []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Set      bool     `json:"set" yaml:"set"`
	Value    any      `json:"value" yaml:"value"`
}

// Snapshot returns a detached, serializable copy of the brief.
func (b *Brief) Snapshot() Snapshot {
	out := Snapshot{
		Code:      b.Code,
		Status:    b.Status,
		Archived:  b.Archived,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
		Sections:  make([]SectionSnapshot, 0, len(b.Sections)),
	}
	for _, sec := range b.Sections {
		ss := SectionSnapshot{Name: sec.Name, Note: sec.Note, Fields: make([]FieldSnapshot, 0, len(sec.Fields))}
		for _, f := range sec.Fields {
			fs := FieldSnapshot{
				Label:    f.Label,
				Key:      f.Key,
				Kind:     string(f.Kind),
				Required: f.Required,
				Columns:  append([]string(nil), f.Columns...),
				Set:      f.IsSet(),
			}
			if fs.Set {
				fs.Value = plainValue(f.Value)
			}
			ss.Fields = append(ss.Fields, fs)
		}
		out.Sections = append(out.Sections, ss)
	}
	return out
}

func plainValue(v Value) any {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Paragraph:
		return string(val)
	case Lines:
		return append([]string(nil), val...)
	case Table:
		rows := make([][]string, 0, len(val.Rows))
		for _, row := range val.Rows {
			rows = append(rows, append([]string(nil), row...))
		}
		return rows
	default:
		return nil
	}
}
