package render

import (
	"fmt"
	"sort"
	"time"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/schema"
)

// PreviewCode names the throwaway brief Preview renders.
const PreviewCode = "preview"

// Preview fills a blank copy of the schema from data keyed by field slug and
// renders it. Nothing is stored. Keys the schema does not declare are
// returned as ignored; values equal to the placeholder stay unset.
func Preview(s *schema.Schema, data map[string]any, opts Options) (string, []string, error) {
	opts = opts.withDefaults()
	b, err := brief.New(s, PreviewCode, time.Unix(0, 0))
	if err != nil {
		return "", nil, err
	}
	var ignored []string
	for key, raw := range data {
		f, _, err := b.FieldByKey(s, key)
		if err != nil {
			ignored = append(ignored, key)
			continue
		}
		v, err := brief.ValueFrom(f.Kind, f.Columns, raw)
		if err != nil {
			return "", nil, fmt.Errorf("render: field %q: %w", key, err)
		}
		f.Value = brief.DropPlaceholder(v, opts.Placeholder)
	}
	sort.Strings(ignored)
	return Render(b, opts), ignored, nil
}
