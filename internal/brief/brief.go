// Package brief models one client's populated copy of the brief schema and
// the draft/final lifecycle it moves through.
package brief

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/kingrea/brief-maestro/internal/schema"
)

// Status is the lifecycle state of a brief.
type Status string

const (
	StatusDraft Status = "draft"
	StatusFinal Status = "final"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusFinal
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateCode checks that a client code can key a brief on disk and in URLs.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return newError("", code, "", fmt.Errorf("%w: use 1-64 letters, digits, '-' or '_'", ErrInvalidCode))
	}
	return nil
}

// Brief is one client's populated template.
type Brief struct {
	Code      string
	Status    Status
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Sections  []Section
}

// Section is an ordered group of fields. The note is copied from the schema
// and is not editable.
type Section struct {
	Name   string
	Note   string
	Fields []Field
}

// Field is one labeled slot. A nil Value means unset.
type Field struct {
	Label    string
	Key      string
	Kind     schema.Kind
	Required bool
	Columns  []string
	Hint     string
	Value    Value
}

// IsSet reports whether the field carries a non-empty value.
func (f Field) IsSet() bool {
	return f.Value != nil && !f.Value.IsEmpty()
}

// New creates a draft brief with every schema field unset.
func New(s *schema.Schema, code string, now time.Time) (*Brief, error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	b := &Brief{
		Code:      code,
		Status:    StatusDraft,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	for _, sec := range s.Sections() {
		b.Sections = append(b.Sections, sectionFromDef(sec))
	}
	return b, nil
}

func sectionFromDef(sec schema.SectionDef) Section {
	out := Section{Name: sec.Name, Note: sec.Note}
	for _, f := range sec.Fields {
		out.Fields = append(out.Fields, Field{
			Label:    f.Label,
			Key:      f.Key,
			Kind:     f.Kind,
			Required: f.Required,
			Columns:  append([]string(nil), f.Columns...),
			Hint:     f.Hint,
		})
	}
	return out
}

// Clone returns a deep copy of the brief.
func (b *Brief) Clone() *Brief {
	if b == nil {
		return nil
	}
	out := *b
	out.Sections = make([]Section, len(b.Sections))
	for i, sec := range b.Sections {
		fields := make([]Field, len(sec.Fields))
		for j, f := range sec.Fields {
			f.Columns = append([]string(nil), f.Columns...)
			if f.Value != nil {
				f.Value = cloneValue(f.Value)
			}
			fields[j] = f
		}
		out.Sections[i] = Section{Name: sec.Name, Note: sec.Note, Fields: fields}
	}
	return &out
}

// Field returns a pointer to the field at the schema-resolved path.
func (b *Brief) Field(s *schema.Schema, section, field string) (*Field, string, error) {
	secDef, fieldDef, err := s.Lookup(section, field)
	if err != nil {
		path := schema.Path(section, field)
		if errors.Is(err, schema.ErrNotInSchema) {
			return nil, path, newError("", b.Code, path, ErrUnknownField)
		}
		return nil, path, err
	}
	return b.fieldByKey(secDef.Name, fieldDef.Key)
}

// FieldByKey returns the field with the given slug key.
func (b *Brief) FieldByKey(s *schema.Schema, key string) (*Field, string, error) {
	secDef, fieldDef, ok := s.ByKey(key)
	if !ok {
		return nil, key, newError("", b.Code, key, ErrUnknownField)
	}
	return b.fieldByKey(secDef.Name, fieldDef.Key)
}

func (b *Brief) fieldByKey(section, key string) (*Field, string, error) {
	for i := range b.Sections {
		if b.Sections[i].Name != section {
			continue
		}
		for j := range b.Sections[i].Fields {
			f := &b.Sections[i].Fields[j]
			if f.Key == key {
				return f, schema.Path(section, f.Label), nil
			}
		}
	}
	path := section + "." + key
	return nil, path, newError("", b.Code, path, ErrUnknownField)
}

// Mutable reports whether fields may still be changed.
func (b *Brief) Mutable() error {
	if b.Status == StatusFinal {
		return newError("", b.Code, "", ErrFinalized)
	}
	if b.Archived {
		return newError("", b.Code, "", ErrArchived)
	}
	return nil
}

// SetRaw parses raw for the addressed field's kind and stores it. Empty
// input clears the field.
func (b *Brief) SetRaw(s *schema.Schema, section, field, raw string, now time.Time) (string, error) {
	if err := b.Mutable(); err != nil {
		return "", err
	}
	f, path, err := b.Field(s, section, field)
	if err != nil {
		return path, err
	}
	v, err := ParseValue(f.Kind, f.Columns, raw)
	if err != nil {
		return path, newError("", b.Code, path, err)
	}
	f.Value = v
	b.UpdatedAt = now.UTC()
	return path, nil
}

// SetValue stores an already-typed value. Its kind must match the field.
func (b *Brief) SetValue(s *schema.Schema, section, field string, v Value, now time.Time) (string, error) {
	if err := b.Mutable(); err != nil {
		return "", err
	}
	f, path, err := b.Field(s, section, field)
	if err != nil {
		return path, err
	}
	if v != nil && v.Kind() != f.Kind {
		return path, newError("", b.Code, path, fmt.Errorf("%w: field is %s, got %s", ErrInvalidValue, f.Kind, v.Kind()))
	}
	if v != nil && v.IsEmpty() {
		v = nil
	}
	if t, ok := v.(Table); ok {
		t.Columns = append([]string(nil), f.Columns...)
		v = t
	}
	f.Value = v
	b.UpdatedAt = now.UTC()
	return path, nil
}

// MarkFinal moves a draft brief to final. The caller is responsible for
// validating first.
func (b *Brief) MarkFinal(now time.Time) error {
	if err := b.Mutable(); err != nil {
		return err
	}
	b.Status = StatusFinal
	b.UpdatedAt = now.UTC()
	return nil
}

// Align rebuilds the section/field tree in the schema's canonical order,
// carrying values over by key. It returns the keys of stored values the
// schema no longer declares, plus values dropped because their kind
// changed.
func (b *Brief) Align(s *schema.Schema) []string {
	values := map[string]Value{}
	for _, sec := range b.Sections {
		for _, f := range sec.Fields {
			if f.Value != nil {
				values[f.Key] = f.Value
			}
		}
	}
	var sections []Section
	for _, secDef := range s.Sections() {
		sec := sectionFromDef(secDef)
		for i := range sec.Fields {
			f := &sec.Fields[i]
			v, ok := values[f.Key]
			if !ok {
				continue
			}
			delete(values, f.Key)
			if v.Kind() != f.Kind {
				values[f.Key] = v
				continue
			}
			if t, isTable := v.(Table); isTable {
				t.Columns = append([]string(nil), f.Columns...)
				v = t
			}
			f.Value = v
		}
		sections = append(sections, sec)
	}
	b.Sections = sections
	dropped := make([]string, 0, len(values))
	for key := range values {
		dropped = append(dropped, key)
	}
	sort.Strings(dropped)
	return dropped
}

// Paths returns every Section.Field path in canonical order.
func (b *Brief) Paths() []string {
	var paths []string
	for _, sec := range b.Sections {
		for _, f := range sec.Fields {
			paths = append(paths, schema.Path(sec.Name, f.Label))
		}
	}
	return paths
}

// Progress returns how many fields and required fields are populated.
func (b *Brief) Progress() (filled, total, requiredFilled, requiredTotal int) {
	for _, sec := range b.Sections {
		for _, f := range sec.Fields {
			total++
			if f.IsSet() {
				filled++
			}
			if f.Required {
				requiredTotal++
				if f.IsSet() {
					requiredFilled++
				}
			}
		}
	}
	return filled, total, requiredFilled, requiredTotal
}
