package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotInSchema indicates a section or field path that the schema does not
// declare.
var ErrNotInSchema = errors.New("schema: path not in schema")

// Schema is a validated, read-only brief template. Accessors return copies
// so callers cannot mutate the registry's state.
type Schema struct {
	def   Definition
	byKey map[string]location
}

type location struct {
	section int
	field   int
}

// New validates def and builds a Schema from it.
func New(def Definition) (*Schema, error) {
	normalized, err := def.Normalized()
	if err != nil {
		return nil, err
	}
	s := &Schema{def: normalized, byKey: map[string]location{}}
	for i, sec := range normalized.Sections {
		for j, f := range sec.Fields {
			s.byKey[f.Key] = location{section: i, field: j}
		}
	}
	return s, nil
}

// Name returns the template's display name.
func (s *Schema) Name() string {
	return s.def.Name
}

// Definition returns a copy of the underlying definition.
func (s *Schema) Definition() Definition {
	return s.def.Clone()
}

// Sections returns the ordered section definitions.
func (s *Schema) Sections() []SectionDef {
	return s.def.Clone().Sections
}

// Keys returns every field key in canonical order.
func (s *Schema) Keys() []string {
	var keys []string
	for _, sec := range s.def.Sections {
		for _, f := range sec.Fields {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// FieldCount returns the number of fields across all sections.
func (s *Schema) FieldCount() int {
	return len(s.byKey)
}

// Lookup resolves a section and field by name, case-insensitive name, or
// slug. The returned definitions carry canonical names.
func (s *Schema) Lookup(section, field string) (SectionDef, FieldDef, error) {
	for _, sec := range s.def.Sections {
		if !sameName(section, sec.Name) {
			continue
		}
		for _, f := range sec.Fields {
			if sameName(field, f.Label) || strings.TrimSpace(field) == f.Key {
				return sec.clone(), f, nil
			}
		}
		return SectionDef{}, FieldDef{}, fmt.Errorf("%w: field %q in section %q", ErrNotInSchema, field, sec.Name)
	}
	return SectionDef{}, FieldDef{}, fmt.Errorf("%w: section %q", ErrNotInSchema, section)
}

// ByKey resolves a field by its slug key.
func (s *Schema) ByKey(key string) (SectionDef, FieldDef, bool) {
	loc, ok := s.byKey[strings.TrimSpace(key)]
	if !ok {
		return SectionDef{}, FieldDef{}, false
	}
	sec := s.def.Sections[loc.section]
	return sec.clone(), sec.Fields[loc.field], true
}

// RequiredPaths lists the Section.Field paths marked required, in order.
func (s *Schema) RequiredPaths() []string {
	var paths []string
	for _, sec := range s.def.Sections {
		for _, f := range sec.Fields {
			if f.Required {
				paths = append(paths, Path(sec.Name, f.Label))
			}
		}
	}
	return paths
}

// WithRequired returns a copy of the schema whose required markers are
// exactly the given Section.Field paths.
func (s *Schema) WithRequired(paths []string) (*Schema, error) {
	def := s.def.Clone()
	for i := range def.Sections {
		for j := range def.Sections[i].Fields {
			def.Sections[i].Fields[j].Required = false
		}
	}
	for _, p := range paths {
		section, field, err := SplitPath(p)
		if err != nil {
			return nil, err
		}
		sec, f, err := s.Lookup(section, field)
		if err != nil {
			return nil, err
		}
		for i := range def.Sections {
			if def.Sections[i].Name != sec.Name {
				continue
			}
			for j := range def.Sections[i].Fields {
				if def.Sections[i].Fields[j].Key == f.Key {
					def.Sections[i].Fields[j].Required = true
				}
			}
		}
	}
	return New(def)
}

// SplitPath splits a Section.Field path at its first dot.
func SplitPath(path string) (section, field string, err error) {
	section, field, ok := strings.Cut(strings.TrimSpace(path), ".")
	if !ok || strings.TrimSpace(section) == "" || strings.TrimSpace(field) == "" {
		return "", "", fmt.Errorf("schema: path %q must look like Section.Field", path)
	}
	return strings.TrimSpace(section), strings.TrimSpace(field), nil
}
