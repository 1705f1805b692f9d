// Package schema defines the ordered section/field layout every brief is
// built from. A Definition is the editable YAML form; a Schema is the
// validated, read-only value the rest of the program consumes.
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies how a field value is captured and rendered.
type Kind string

const (
	// KindText is a single line of free text.
	KindText Kind = "text"
	// KindMultiline is a block of free text that keeps its line breaks.
	KindMultiline Kind = "multiline"
	// KindList is an ordered list of bullet items.
	KindList Kind = "list"
	// KindTable is a list of rows under fixed columns.
	KindTable Kind = "table"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindMultiline, KindList, KindTable:
		return true
	default:
		return false
	}
}

// Definition is the YAML document describing a brief template.
type Definition struct {
	Version  int          `yaml:"version" json:"version"`
	Name     string       `yaml:"name,omitempty" json:"name,omitempty"`
	Sections []SectionDef `yaml:"sections" json:"sections"`
}

// SectionDef declares one section of the template.
type SectionDef struct {
	Name   string     `yaml:"name" json:"name"`
	Note   string     `yaml:"note,omitempty" json:"note,omitempty"`
	Fields []FieldDef `yaml:"fields" json:"fields"`
}

// FieldDef declares one labeled slot inside a section.
type FieldDef struct {
	Label    string   `yaml:"label" json:"label"`
	Key      string   `yaml:"key,omitempty" json:"key,omitempty"`
	Kind     Kind     `yaml:"kind,omitempty" json:"kind,omitempty"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Columns  []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Hint     string   `yaml:"hint,omitempty" json:"hint,omitempty"`
}

// Path returns the dotted Section.Field path used in validation reports.
func Path(section, field string) string {
	return section + "." + field
}

// Clone returns a deep copy of the definition.
func (def Definition) Clone() Definition {
	clone := Definition{Version: def.Version, Name: def.Name}
	if len(def.Sections) > 0 {
		clone.Sections = make([]SectionDef, len(def.Sections))
		for i, sec := range def.Sections {
			clone.Sections[i] = sec.clone()
		}
	}
	return clone
}

func (sec SectionDef) clone() SectionDef {
	out := SectionDef{Name: sec.Name, Note: sec.Note}
	if len(sec.Fields) > 0 {
		out.Fields = make([]FieldDef, len(sec.Fields))
		for i, f := range sec.Fields {
			f.Columns = append([]string(nil), f.Columns...)
			out.Fields[i] = f
		}
	}
	return out
}

// Normalized trims names, fills default kinds and keys, and validates the
// result.
func (def Definition) Normalized() (Definition, error) {
	clone := def.Clone()
	if clone.Version == 0 {
		clone.Version = 1
	}
	clone.Name = strings.TrimSpace(clone.Name)
	for i := range clone.Sections {
		sec := &clone.Sections[i]
		sec.Name = strings.TrimSpace(sec.Name)
		sec.Note = strings.TrimSpace(sec.Note)
		for j := range sec.Fields {
			f := &sec.Fields[j]
			f.Label = strings.TrimSpace(f.Label)
			f.Hint = strings.TrimSpace(f.Hint)
			f.Kind = Kind(strings.ToLower(strings.TrimSpace(string(f.Kind))))
			if f.Kind == "" {
				f.Kind = KindText
			}
			f.Key = strings.TrimSpace(f.Key)
			if f.Key == "" {
				f.Key = Slug(f.Label)
			}
			for k := range f.Columns {
				f.Columns[k] = strings.TrimSpace(f.Columns[k])
			}
		}
	}
	if err := clone.Validate(); err != nil {
		return Definition{}, err
	}
	return clone, nil
}

// Validate ensures the definition is self-consistent.
func (def Definition) Validate() error {
	if def.Version < 1 {
		return fmt.Errorf("schema: version must be >= 1")
	}
	if len(def.Sections) == 0 {
		return fmt.Errorf("schema: at least one section is required")
	}
	sections := map[string]struct{}{}
	keys := map[string]string{}
	for i, sec := range def.Sections {
		if sec.Name == "" {
			return fmt.Errorf("schema: sections[%d]: name is required", i)
		}
		if strings.Contains(sec.Name, ".") {
			return fmt.Errorf("schema: section %q: name may not contain '.'", sec.Name)
		}
		folded := strings.ToLower(sec.Name)
		if _, dup := sections[folded]; dup {
			return fmt.Errorf("schema: duplicate section %q", sec.Name)
		}
		sections[folded] = struct{}{}
		for j, f := range sec.Fields {
			if err := f.validate(); err != nil {
				return fmt.Errorf("schema: section %q fields[%d]: %w", sec.Name, j, err)
			}
			if prev, dup := keys[f.Key]; dup {
				return fmt.Errorf("schema: field key %q in section %q duplicates %s", f.Key, sec.Name, prev)
			}
			keys[f.Key] = Path(sec.Name, f.Label)
		}
	}
	return nil
}

func (f FieldDef) validate() error {
	if f.Label == "" {
		return fmt.Errorf("label is required")
	}
	if f.Key == "" {
		return fmt.Errorf("key for %q is empty", f.Label)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("unknown kind %q for %q", f.Kind, f.Label)
	}
	if f.Kind == KindTable {
		if len(f.Columns) == 0 {
			return fmt.Errorf("table %q needs at least one column", f.Label)
		}
		for i, col := range f.Columns {
			if col == "" {
				return fmt.Errorf("table %q columns[%d] is empty", f.Label, i)
			}
		}
	} else if len(f.Columns) > 0 {
		return fmt.Errorf("columns are only allowed on table fields (%q)", f.Label)
	}
	return nil
}
