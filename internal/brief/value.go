package brief

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kingrea/brief-maestro/internal/schema"
)

// Value is the populated content of a field. Each schema kind has exactly
// one implementation: Text, Paragraph, Lines and Table.
type Value interface {
	Kind() schema.Kind
	IsEmpty() bool
	// Raw returns the editable text form accepted by ParseValue.
	Raw() string
	sealed()
}

// Text is a single-line value.
type Text string

// Paragraph is a multi-line value.
type Paragraph string

// Lines is a bullet list value.
type Lines []string

// Table is a list of rows under the schema's columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

func (Text) Kind() schema.Kind      { return schema.KindText }
func (Paragraph) Kind() schema.Kind { return schema.KindMultiline }
func (Lines) Kind() schema.Kind     { return schema.KindList }
func (Table) Kind() schema.Kind     { return schema.KindTable }

func (Text) sealed()      {}
func (Paragraph) sealed() {}
func (Lines) sealed()     {}
func (Table) sealed()     {}

func (v Text) IsEmpty() bool      { return strings.TrimSpace(string(v)) == "" }
func (v Paragraph) IsEmpty() bool { return strings.TrimSpace(string(v)) == "" }

func (v Lines) IsEmpty() bool {
	for _, item := range v {
		if strings.TrimSpace(item) != "" {
			return false
		}
	}
	return true
}

func (v Table) IsEmpty() bool {
	for _, row := range v.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

func (v Text) Raw() string      { return string(v) }
func (v Paragraph) Raw() string { return string(v) }
func (v Lines) Raw() string     { return strings.Join(v, "\n") }

// Raw writes one row per line. A "|" inside a cell is escaped as "\|" so
// ParseValue reads the same cells back.
func (v Table) Raw() string {
	rows := make([]string, 0, len(v.Rows))
	for _, row := range v.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n")
}

var (
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)
	separatorRow = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

// ParseValue converts the raw text an editor typed into a value of the given
// kind. A result that is empty after trimming is reported as nil (unset).
func ParseValue(kind schema.Kind, columns []string, raw string) (Value, error) {
	switch kind {
	case schema.KindText:
		v := Text(strings.Join(strings.Fields(raw), " "))
		return nilIfEmpty(v), nil
	case schema.KindMultiline:
		v := Paragraph(strings.TrimSpace(normalizeNewlines(raw)))
		return nilIfEmpty(v), nil
	case schema.KindList:
		return nilIfEmpty(parseLines(raw)), nil
	case schema.KindTable:
		table, err := parseTable(columns, raw)
		if err != nil {
			return nil, err
		}
		return nilIfEmpty(table), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidValue, kind)
	}
}

// ValueFrom converts decoded YAML/JSON data into a value of the given kind.
// Strings are parsed like ParseValue; lists become items or rows.
func ValueFrom(kind schema.Kind, columns []string, data any) (Value, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseValue(kind, columns, v)
	case []any:
		switch kind {
		case schema.KindList:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, scalarString(item))
			}
			return ParseValue(kind, columns, strings.Join(items, "\n"))
		case schema.KindTable:
			table := Table{Columns: append([]string(nil), columns...)}
			for i, item := range v {
				row, err := rowFrom(columns, item)
				if err != nil {
					return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidValue, i+1, err)
				}
				table.Rows = append(table.Rows, row)
			}
			return nilIfEmpty(table), nil
		default:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, scalarString(item))
			}
			sep := " "
			if kind == schema.KindMultiline {
				sep = "\n"
			}
			return ParseValue(kind, columns, strings.Join(parts, sep))
		}
	default:
		return ParseValue(kind, columns, scalarString(v))
	}
}

func rowFrom(columns []string, item any) ([]string, error) {
	switch row := item.(type) {
	case []any:
		if len(row) > len(columns) {
			return nil, fmt.Errorf("%d cells for %d columns", len(row), len(columns))
		}
		cells := make([]string, len(columns))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(scalarString(cell))
		}
		return cells, nil
	case map[string]any:
		cells := make([]string, len(columns))
		for key, cell := range row {
			idx := columnIndex(columns, key)
			if idx < 0 {
				return nil, fmt.Errorf("unknown column %q", key)
			}
			cells[idx] = strings.TrimSpace(scalarString(cell))
		}
		return cells, nil
	case string:
		return splitRow(columns, row)
	default:
		return nil, fmt.Errorf("unsupported row type %T", item)
	}
}

func columnIndex(columns []string, name string) int {
	for i, col := range columns {
		if strings.EqualFold(col, strings.TrimSpace(name)) || schema.Slug(col) == schema.Slug(name) {
			return i
		}
	}
	return -1
}

func parseLines(raw string) Lines {
	normalized := normalizeNewlines(raw)
	var parts []string
	if strings.Contains(normalized, "\n") {
		parts = strings.Split(normalized, "\n")
	} else {
		parts = strings.Split(normalized, ";")
	}
	var items Lines
	for _, part := range parts {
		item := strings.TrimSpace(bulletPrefix.ReplaceAllString(part, ""))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseTable(columns []string, raw string) (Table, error) {
	table := Table{Columns: append([]string(nil), columns...)}
	for i, line := range strings.Split(normalizeNewlines(raw), "\n") {
		if strings.TrimSpace(line) == "" || separatorRow.MatchString(line) {
			continue
		}
		row, err := splitRow(columns, line)
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: %v", ErrInvalidValue, i+1, err)
		}
		if len(table.Rows) == 0 && isHeaderRow(columns, row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// isHeaderRow reports whether a pasted row just repeats the column names.
func isHeaderRow(columns, row []string) bool {
	for i, col := range columns {
		if !strings.EqualFold(col, row[i]) {
			return false
		}
	}
	return true
}

func splitRow(columns []string, line string) ([]string, error) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	if strings.HasSuffix(trimmed, "|") && !strings.HasSuffix(trimmed, `\|`) {
		trimmed = strings.TrimSuffix(trimmed, "|")
	}
	parts := splitCells(trimmed)
	if len(parts) > len(columns) {
		return nil, fmt.Errorf("%d cells for %d columns (%s)", len(parts), len(columns), strings.Join(columns, " | "))
	}
	cells := make([]string, len(columns))
	for i, part := range parts {
		cells[i] = strings.TrimSpace(part)
	}
	return cells, nil
}

// splitCells splits on "|" except where it is escaped as "\|".
func splitCells(line string) []string {
	var (
		parts []string
		cell  strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cell.WriteByte('|')
			i++
		case line[i] == '|':
			parts = append(parts, cell.String())
			cell.Reset()
		default:
			cell.WriteByte(line[i])
		}
	}
	return append(parts, cell.String())
}

// scalarString flattens one decoded value to text. Maps and lists nested
// where a single value is expected are written as JSON.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case map[string]any, map[any]any, []any:
		return jsonText(s)
	default:
		return fmt.Sprint(s)
	}
}

// jsonText writes v as JSON with ", " and ": " separators and non-ASCII
// text left as is. Object keys are sorted.
func jsonText(v any) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v any) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for key := range val {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSON(b, key)
			b.WriteString(": ")
			writeJSON(b, val[key])
		}
		b.WriteByte('}')
	case map[any]any:
		converted := make(map[string]any, len(val))
		for key, item := range val {
			converted[fmt.Sprint(key)] = item
		}
		writeJSON(b, converted)
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			b.WriteString(fmt.Sprint(val))
			return
		}
		b.WriteString(strings.TrimSuffix(buf.String(), "\n"))
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func nilIfEmpty(v Value) Value {
	if v.IsEmpty() {
		return nil
	}
	return v
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Lines:
		return append(Lines(nil), val...)
	case Table:
		out := Table{Columns: append([]string(nil), val.Columns...)}
		for _, row := range val.Rows {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
		return out
	default:
		return v
	}
}

// DropPlaceholder returns nil when v is a text value that only repeats the
// placeholder shown for unset fields (for example "Sin datos").
func DropPlaceholder(v Value, placeholder string) Value {
	placeholder = strings.TrimSpace(placeholder)
	if v == nil || placeholder == "" {
		return v
	}
	switch val := v.(type) {
	case Text:
		if strings.EqualFold(strings.TrimSpace(string(val)), placeholder) {
			return nil
		}
	case Paragraph:
		if strings.EqualFold(strings.TrimSpace(string(val)), placeholder) {
			return nil
		}
	case Lines:
		if len(val) == 1 && strings.EqualFold(strings.TrimSpace(val[0]), placeholder) {
			return nil
		}
	}
	return v
}
