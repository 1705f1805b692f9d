package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDefinitionYAML []byte

var (
	builtinOnce   sync.Once
	builtinSchema *Schema
	builtinErr    error
)

// Builtin returns the schema compiled into the binary. It is parsed once per
// process; a malformed built-in definition is reported on every call.
func Builtin() (*Schema, error) {
	builtinOnce.Do(func() {
		def, err := ParseDefinitionYAML(defaultDefinitionYAML)
		if err != nil {
			builtinErr = fmt.Errorf("schema: built-in definition: %w", err)
			return
		}
		builtinSchema, builtinErr = New(def)
	})
	return builtinSchema, builtinErr
}

// MustBuiltin panics if the built-in definition is malformed.
func MustBuiltin() *Schema {
	s, err := Builtin()
	if err != nil {
		panic(err)
	}
	return s
}

// ParseDefinitionYAML decodes and normalizes a definition from YAML bytes.
func ParseDefinitionYAML(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("schema: definition payload is empty")
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("schema: decode definition: %w", err)
	}
	return def.Normalized()
}

// LoadDefinitionReader reads definition data from an io.Reader.
func LoadDefinitionReader(r io.Reader) (Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("schema: read definition: %w", err)
	}
	return ParseDefinitionYAML(content)
}

// LoadDefinitionFile loads a definition from an explicit file path.
func LoadDefinitionFile(path string) (Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	def, parseErr := ParseDefinitionYAML(content)
	if parseErr != nil {
		return Definition{}, fmt.Errorf("schema: %s: %w", path, parseErr)
	}
	return def, nil
}

// Load returns the schema for a project: the definition at path, or the
// built-in one when path is empty. A non-empty required list replaces the
// definition's required markers.
func Load(path string, required []string) (*Schema, error) {
	var (
		s   *Schema
		err error
	)
	if path == "" {
		s, err = Builtin()
	} else {
		var def Definition
		def, err = LoadDefinitionFile(path)
		if err == nil {
			s, err = New(def)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(required) > 0 {
		return s.WithRequired(required)
	}
	return s, nil
}

// MarshalYAML encodes a definition the way ParseDefinitionYAML reads it.
func MarshalYAML(def Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, fmt.Errorf("schema: encode definition: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("schema: encode definition: %w", err)
	}
	return buf.Bytes(), nil
}
