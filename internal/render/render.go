// Package render turns a brief into formatted text. Rendering is
// deterministic: it reads nothing but the brief and the options.
package render

import (
	"fmt"
	"strings"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
)

// Format selects the output markup.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// DefaultPlaceholder is shown in place of unset fields.
const DefaultPlaceholder = "Sin datos"

// Options controls rendering.
type Options struct {
	Format      Format
	Title       string
	Placeholder string
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = FormatMarkdown
	}
	if strings.TrimSpace(o.Title) == "" {
		o.Title = "Brief"
	}
	if o.Placeholder == "" {
		o.Placeholder = DefaultPlaceholder
	}
	return o
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "txt", "plain":
		return FormatText, nil
	default:
		return "", fmt.Errorf("render: unknown format %q (use markdown or text)", value)
	}
}

// Render formats the brief's sections, notes and field values in canonical
// order. Unset fields show the placeholder.
func Render(b *brief.Brief, opts Options) string {
	opts = opts.withDefaults()
	if opts.Format == FormatText {
		return renderText(b, opts)
	}
	return renderMarkdown(b, opts)
}

func renderMarkdown(b *brief.Brief, opts Options) string {
	var out strings.Builder
	fmt.Fprintf(&out, "# %s: %s\n\n", opts.Title, b.Code)
	fmt.Fprintf(&out, "> Estado: %s", b.Status)
	if b.Archived {
		out.WriteString(" (archivado)")
	}
	out.WriteString("\n")

	for i, sec := range b.Sections {
		fmt.Fprintf(&out, "\n## %d. %s\n", i+1, sec.Name)
		if sec.Note != "" {
			fmt.Fprintf(&out, "\n_%s_\n", sec.Note)
		}
		inTextGroup := false
		for _, f := range sec.Fields {
			if f.Kind == schema.KindText || !f.IsSet() {
				if !inTextGroup {
					out.WriteString("\n")
					inTextGroup = true
				}
				fmt.Fprintf(&out, "- **%s:** %s\n", f.Label, inlineValue(f, opts.Placeholder))
				continue
			}
			inTextGroup = false
			fmt.Fprintf(&out, "\n**%s:**\n\n", f.Label)
			out.WriteString(markdownBlock(f))
		}
	}
	return out.String()
}

func inlineValue(f brief.Field, placeholder string) string {
	if !f.IsSet() {
		return placeholder
	}
	return strings.TrimSpace(f.Value.Raw())
}

func markdownBlock(f brief.Field) string {
	var out strings.Builder
	switch v := f.Value.(type) {
	case brief.Paragraph:
		out.WriteString(strings.TrimSpace(string(v)))
		out.WriteString("\n")
	case brief.Lines:
		for _, item := range v {
			fmt.Fprintf(&out, "- %s\n", item)
		}
	case brief.Table:
		columns := f.Columns
		if len(columns) == 0 {
			columns = v.Columns
		}
		out.WriteString(markdownRow(columns))
		seps := make([]string, len(columns))
		for i := range seps {
			seps[i] = "---"
		}
		out.WriteString(markdownRow(seps))
		for _, row := range v.Rows {
			out.WriteString(markdownRow(padRow(row, len(columns))))
		}
	default:
		out.WriteString(strings.TrimSpace(f.Value.Raw()))
		out.WriteString("\n")
	}
	return out.String()
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = strings.ReplaceAll(cell, "|", `\|`)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func renderText(b *brief.Brief, opts Options) string {
	var out strings.Builder
	header := fmt.Sprintf("%s: %s (%s", strings.ToUpper(opts.Title), b.Code, b.Status)
	if b.Archived {
		header += ", archivado"
	}
	header += ")"
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(strings.Repeat("=", len([]rune(header))))
	out.WriteString("\n")

	for i, sec := range b.Sections {
		title := fmt.Sprintf("%d. %s", i+1, strings.ToUpper(sec.Name))
		fmt.Fprintf(&out, "\n%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
		if sec.Note != "" {
			fmt.Fprintf(&out, "%s\n", sec.Note)
		}
		out.WriteString("\n")
		for _, f := range sec.Fields {
			if f.Kind == schema.KindText || !f.IsSet() {
				fmt.Fprintf(&out, "%s: %s\n", f.Label, inlineValue(f, opts.Placeholder))
				continue
			}
			fmt.Fprintf(&out, "%s:\n", f.Label)
			switch v := f.Value.(type) {
			case brief.Lines:
				for _, item := range v {
					fmt.Fprintf(&out, "  - %s\n", item)
				}
			case brief.Table:
				fmt.Fprintf(&out, "  %s\n", strings.Join(f.Columns, " | "))
				for _, row := range v.Rows {
					fmt.Fprintf(&out, "  %s\n", strings.Join(padRow(row, len(f.Columns)), " | "))
				}
			default:
				for _, line := range strings.Split(strings.TrimSpace(f.Value.Raw()), "\n") {
					fmt.Fprintf(&out, "  %s\n", line)
				}
			}
		}
	}
	return out.String()
}
