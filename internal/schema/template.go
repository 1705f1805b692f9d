package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// defaultImportSection collects labels that appear before the first heading.
const defaultImportSection = "General"

var (
	// labelLine matches a template line that ends with a colon, such as
	// "Cliente/Marca:", "- **Razón Social:**" or "1. Sitio web:".
	labelLine = regexp.MustCompile(`^\s*(?:[-*+]\s+|\d+\.\s+)?(?:\*\*)?([^:*]+?)(?:\*\*)?\s*:\s*(?:\*\*)?\s*$`)
	// headingNumber strips "1." or "1)" prefixes from section headings.
	headingNumber = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// ImportMarkdown derives a definition from a fill-in-the-blank markdown
// template. Headings open sections, the first prose paragraph under a
// heading becomes its note, and every line ending in ":" becomes a text
// field. Headings without fields are dropped; the first one names the
// definition.
func ImportMarkdown(source []byte) (Definition, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	imp := &markdownImporter{source: source, keys: map[string]struct{}{}}
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			imp.openSection(imp.joinLines(node))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			imp.consumeBlock(node)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return Definition{}, fmt.Errorf("schema: walk template: %w", err)
	}

	def := Definition{Version: 1}
	for _, sec := range imp.sections {
		if len(sec.Fields) == 0 {
			if def.Name == "" && len(def.Sections) == 0 {
				def.Name = sec.Name
			}
			continue
		}
		def.Sections = append(def.Sections, sec)
	}
	if len(def.Sections) == 0 {
		return Definition{}, fmt.Errorf("schema: template has no lines ending with ':'")
	}
	return def.Normalized()
}

type markdownImporter struct {
	source   []byte
	sections []SectionDef
	noteSeen bool
	keys     map[string]struct{}
}

func (imp *markdownImporter) openSection(heading string) {
	name := headingNumber.ReplaceAllString(strings.TrimSpace(heading), "")
	name = strings.TrimSpace(strings.ReplaceAll(strings.Trim(name, "*_ "), ".", ""))
	if name == "" {
		name = fmt.Sprintf("Sección %d", len(imp.sections)+1)
	}
	imp.sections = append(imp.sections, SectionDef{Name: name})
	imp.noteSeen = false
}

func (imp *markdownImporter) current() *SectionDef {
	if len(imp.sections) == 0 {
		imp.openSection(defaultImportSection)
	}
	return &imp.sections[len(imp.sections)-1]
}

func (imp *markdownImporter) consumeBlock(n ast.Node) {
	var prose []string
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(imp.source)), "\r\n")
		if m := labelLine.FindStringSubmatch(line); m != nil {
			imp.addField(strings.TrimSpace(m[1]))
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			prose = append(prose, trimmed)
		}
	}
	sec := imp.current()
	if len(prose) > 0 && !imp.noteSeen && len(sec.Fields) == 0 {
		sec.Note = strings.Join(prose, " ")
		imp.noteSeen = true
	}
}

func (imp *markdownImporter) addField(label string) {
	if label == "" {
		return
	}
	sec := imp.current()
	key := Slug(label)
	if _, dup := imp.keys[key]; dup {
		key = Slug(sec.Name) + "_" + key
	}
	imp.keys[key] = struct{}{}
	sec.Fields = append(sec.Fields, FieldDef{Label: label, Key: key, Kind: KindText})
}

func (imp *markdownImporter) joinLines(n ast.Node) string {
	var parts []string
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(imp.source))))
	}
	return strings.Join(parts, " ")
}
