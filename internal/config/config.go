// internal/config/config.go
//
// This package handles configuration and the .brief directory structure.
// Every project that uses Brief Maestro gets a .brief/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// BriefDir is the name of the directory we create in each project
	BriefDir = ".brief"

	// TokenEnv names the environment variable holding the HTTP bearer token.
	TokenEnv = "SERVICE_TOKEN"

	BackendFile   = "file"
	BackendSQLite = "sqlite"

	defaultPlaceholder = "Sin datos"
	defaultWidth       = 80
	defaultAddr        = "127.0.0.1:8080"
)

const defaultProjectConfigYAML = `# brief maestro project configuration
version: 1

store:
  # file keeps one markdown document per brief under .brief/briefs/.
  # sqlite keeps every brief in .brief/briefs.db.
  backend: file

schema:
  # Replace the built-in template with a YAML definition (relative to the project).
  # path: templates/brief.yaml
  # Choose which fields must be filled before a brief can be finalized.
  # required:
  #   - Metadatos.Cliente/Marca

render:
  placeholder: Sin datos
  width: 80

server:
  addr: 127.0.0.1:8080
`

// StoreConfig selects where briefs are persisted.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// SchemaConfig points at a custom template and overrides required fields.
type SchemaConfig struct {
	Path     string   `yaml:"path,omitempty"`
	Required []string `yaml:"required,omitempty"`
}

// RenderConfig captures output preferences.
type RenderConfig struct {
	Title       string `yaml:"title,omitempty"`
	Placeholder string `yaml:"placeholder"`
	Width       int    `yaml:"width"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProjectConfig models .brief/config.yaml.
type ProjectConfig struct {
	Version int          `yaml:"version"`
	Store   StoreConfig  `yaml:"store"`
	Schema  SchemaConfig `yaml:"schema"`
	Render  RenderConfig `yaml:"render"`
	Server  ServerConfig `yaml:"server"`
}

// Config holds the runtime configuration for Brief Maestro.
type Config struct {
	// ProjectDir is the directory the command runs against
	ProjectDir string

	// BriefProjectDir is ProjectDir/.brief
	BriefProjectDir string

	// Token is the bearer token required by the HTTP API. Empty disables auth.
	Token string

	Project ProjectConfig
}

// InitBriefDir creates the .brief directory structure in the given project directory.
//
// Structure created:
// .brief/
// ├── config.yaml
// ├── briefs/     <- one markdown document per brief (file backend)
// ├── history/    <- per-brief change logbooks
// └── logs/       <- operational log
func InitBriefDir(projectDir string) error {
	briefDir := filepath.Join(projectDir, BriefDir)

	dirs := []string{
		filepath.Join(briefDir, "briefs"),
		filepath.Join(briefDir, "history"),
		filepath.Join(briefDir, "logs"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	if err := ensureProjectConfig(filepath.Join(briefDir, "config.yaml")); err != nil {
		return err
	}

	return nil
}

// NewConfig creates a new Config instance populated with project settings.
// A missing config file yields the defaults.
func NewConfig(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir:      abs,
		BriefProjectDir: filepath.Join(abs, BriefDir),
		Token:           strings.TrimSpace(os.Getenv(TokenEnv)),
		Project:         defaultProjectConfig(),
	}
	cfg.Project.normalize(abs)

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BriefsDir returns the directory holding brief documents for the file backend.
func (c *Config) BriefsDir() string {
	if c.Project.Store.Backend == BackendFile && c.Project.Store.Path != "" {
		return c.Project.Store.Path
	}
	return filepath.Join(c.BriefProjectDir, "briefs")
}

// DatabasePath returns the SQLite database file for the sqlite backend.
func (c *Config) DatabasePath() string {
	if c.Project.Store.Backend == BackendSQLite && c.Project.Store.Path != "" {
		return c.Project.Store.Path
	}
	return filepath.Join(c.BriefProjectDir, "briefs.db")
}

// HistoryDir returns the directory holding per-brief logbooks.
func (c *Config) HistoryDir() string {
	return filepath.Join(c.BriefProjectDir, "history")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.BriefProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.BriefProjectDir, "config.yaml")
}

// Backend returns the configured store backend name.
func (c *Config) Backend() string {
	return c.Project.Store.Backend
}

// SchemaPath returns the custom schema definition path, or "" for the built-in template.
func (c *Config) SchemaPath() string {
	return c.Project.Schema.Path
}

// RequiredOverride returns the configured required-field paths, if any.
func (c *Config) RequiredOverride() []string {
	return append([]string(nil), c.Project.Schema.Required...)
}

// SetBackend switches the store backend and persists the value back to
// .brief/config.yaml.
func (c *Config) SetBackend(name string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("config: backend is required")
	}
	c.Project.Store.Backend = name
	c.Project.Store.Path = ""
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Store:   StoreConfig{Backend: BackendFile},
		Render: RenderConfig{
			Placeholder: defaultPlaceholder,
			Width:       defaultWidth,
		},
		Server: ServerConfig{Addr: defaultAddr},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Store.Backend) == "" {
		pc.Store.Backend = BackendFile
	}
	if pc.Render.Placeholder == "" {
		pc.Render.Placeholder = defaultPlaceholder
	}
	if pc.Render.Width == 0 {
		pc.Render.Width = defaultWidth
	}
	if strings.TrimSpace(pc.Server.Addr) == "" {
		pc.Server.Addr = defaultAddr
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Store.Backend = normalizeName(pc.Store.Backend)
	pc.Store.Path = resolvePath(base, pc.Store.Path)
	pc.Schema.Path = resolvePath(base, pc.Schema.Path)
	required := pc.Schema.Required[:0:0]
	for _, path := range pc.Schema.Required {
		if trimmed := strings.TrimSpace(path); trimmed != "" && !contains(required, trimmed) {
			required = append(required, trimmed)
		}
	}
	pc.Schema.Required = required
	pc.Render.Title = strings.TrimSpace(pc.Render.Title)
	pc.Render.Placeholder = strings.TrimSpace(pc.Render.Placeholder)
	pc.Server.Addr = strings.TrimSpace(pc.Server.Addr)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Store.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be '%s' or '%s'", BackendFile, BackendSQLite)
	}
	for i, path := range pc.Schema.Required {
		if !strings.Contains(path, ".") {
			return fmt.Errorf("schema.required[%d]: %q must be a Section.Field path", i, path)
		}
	}
	if pc.Render.Placeholder == "" {
		return fmt.Errorf("render.placeholder is required")
	}
	if pc.Render.Width < 20 {
		return fmt.Errorf("render.width must be >= 20")
	}
	if pc.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

func normalizeName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.BriefProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure brief dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
