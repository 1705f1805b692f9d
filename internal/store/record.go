package store

import (
	"fmt"
	"time"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
)

// record is the persisted form of a brief. Only populated fields are kept;
// the schema supplies everything else when the brief is loaded.
type record struct {
	Code     string          `yaml:"code"`
	Status   brief.Status    `yaml:"status"`
	Archived bool            `yaml:"archived,omitempty"`
	Created  string          `yaml:"created"`
	Updated  string          `yaml:"updated"`
	Sections []recordSection `yaml:"sections,omitempty"`
}

type recordSection struct {
	Name   string        `yaml:"name"`
	Fields []recordField `yaml:"fields"`
}

type recordField struct {
	Key   string      `yaml:"key"`
	Label string      `yaml:"label"`
	Kind  schema.Kind `yaml:"kind"`
	Text  string      `yaml:"text,omitempty"`
	Items []string    `yaml:"items,omitempty"`
	Rows  [][]string  `yaml:"rows,omitempty"`
}

const timeLayout = time.RFC3339Nano

func recordFrom(b *brief.Brief) record {
	rec := record{
		Code:     b.Code,
		Status:   b.Status,
		Archived: b.Archived,
		Created:  b.CreatedAt.UTC().Format(timeLayout),
		Updated:  b.UpdatedAt.UTC().Format(timeLayout),
	}
	for _, sec := range b.Sections {
		out := recordSection{Name: sec.Name}
		for _, f := range sec.Fields {
			if !f.IsSet() {
				continue
			}
			rf := recordField{Key: f.Key, Label: f.Label, Kind: f.Kind}
			switch v := f.Value.(type) {
			case brief.Text:
				rf.Text = string(v)
			case brief.Paragraph:
				rf.Text = string(v)
			case brief.Lines:
				rf.Items = append([]string(nil), v...)
			case brief.Table:
				for _, row := range v.Rows {
					rf.Rows = append(rf.Rows, append([]string(nil), row...))
				}
			}
			out.Fields = append(out.Fields, rf)
		}
		if len(out.Fields) > 0 {
			rec.Sections = append(rec.Sections, out)
		}
	}
	return rec
}

// toBrief rebuilds the stored brief. The result only carries populated
// fields; callers align it with the schema.
func (r record) toBrief() (*brief.Brief, error) {
	if r.Code == "" {
		return nil, fmt.Errorf("store: record missing code")
	}
	if !r.Status.Valid() {
		return nil, fmt.Errorf("store: record %s has unknown status %q", r.Code, r.Status)
	}
	created, err := parseTime(r.Created)
	if err != nil {
		return nil, fmt.Errorf("store: record %s created: %w", r.Code, err)
	}
	updated, err := parseTime(r.Updated)
	if err != nil {
		return nil, fmt.Errorf("store: record %s updated: %w", r.Code, err)
	}
	b := &brief.Brief{
		Code:      r.Code,
		Status:    r.Status,
		Archived:  r.Archived,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	for _, sec := range r.Sections {
		out := brief.Section{Name: sec.Name}
		for _, rf := range sec.Fields {
			f := brief.Field{Key: rf.Key, Label: rf.Label, Kind: rf.Kind}
			switch rf.Kind {
			case schema.KindText:
				f.Value = brief.Text(rf.Text)
			case schema.KindMultiline:
				f.Value = brief.Paragraph(rf.Text)
			case schema.KindList:
				f.Value = brief.Lines(rf.Items)
			case schema.KindTable:
				f.Value = brief.Table{Rows: rf.Rows}
			default:
				return nil, fmt.Errorf("store: record %s field %s has unknown kind %q", r.Code, rf.Key, rf.Kind)
			}
			out.Fields = append(out.Fields, f)
		}
		b.Sections = append(b.Sections, out)
	}
	return b, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
