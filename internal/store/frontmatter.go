package store

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("store: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("store: malformed frontmatter")
)

type envelope struct {
	Brief record `yaml:"brief"`
}

// parseDocument extracts the brief record and rendered body from a document
// that starts with `---` YAML fences.
func parseDocument(content []byte) (record, []byte, error) {
	if len(content) == 0 {
		return record{}, nil, ErrMissingFrontMatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return record{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return record{}, nil, ErrMalformedFrontMatter
	}
	var env envelope
	if err := yaml.Unmarshal(parts[0], &env); err != nil {
		return record{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	if env.Brief.Code == "" {
		return record{}, nil, ErrMalformedFrontMatter
	}
	return env.Brief, bytes.TrimLeft(parts[1], "\n"), nil
}

// writeDocument renders the record and body with YAML fences.
func writeDocument(rec record, body []byte) ([]byte, error) {
	if rec.Code == "" {
		return nil, fmt.Errorf("store: record missing code")
	}
	data, err := yaml.Marshal(envelope{Brief: rec})
	if err != nil {
		return nil, fmt.Errorf("store: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
