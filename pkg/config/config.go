// Package config defines the server configuration file format and its
// loader. Config files are YAML or JSON, auto-detected by extension, and
// validated on load.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrInvalidJSON  = errors.New("invalid JSON syntax")
	ErrEmptyFile    = errors.New("configuration file is empty")
)

// Defaults applied when the corresponding field is unset.
const (
	DefaultAddress          = ":4280"
	DefaultTimelineCapacity = 100
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`
	Specs    []SpecConfig   `yaml:"specs" json:"specs"`

	// Watch enables hot reload of spec documents and handler/seed modules.
	Watch bool `yaml:"watch" json:"watch"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address" json:"address"`
}

// LogConfig holds logging settings. Level and format are parsed leniently;
// unrecognized values fall back to info/text.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// TimelineConfig bounds the request timeline ring buffer.
type TimelineConfig struct {
	Capacity int `yaml:"capacity" json:"capacity"`
}

// SpecConfig describes one mounted OpenAPI document and its customization
// directories.
type SpecConfig struct {
	// ID identifies the instance in multi-spec composition. Defaults to
	// the file name without extension.
	ID string `yaml:"id" json:"id"`

	// File is the OpenAPI document path (YAML or JSON).
	File string `yaml:"file" json:"file"`

	// ProxyPath prefixes every generated route, e.g. "/api".
	ProxyPath string `yaml:"proxyPath" json:"proxyPath"`

	// HandlersDir and SeedsDir are scanned for *.handler.js and *.seed.js
	// modules. Missing directories are treated as empty.
	HandlersDir string `yaml:"handlersDir" json:"handlersDir"`
	SeedsDir    string `yaml:"seedsDir" json:"seedsDir"`

	// Schemas configures per-schema store behavior, keyed by schema name.
	Schemas map[string]SchemaConfig `yaml:"schemas" json:"schemas"`
}

// SchemaConfig mirrors the store's per-schema settings.
type SchemaConfig struct {
	// IDField is the identifier field name. Defaults to "id".
	IDField string `yaml:"idField" json:"idField"`

	// AutoID assigns a UUID on create when the identifier is absent.
	// When false, creates without an identifier fail.
	AutoID bool `yaml:"autoId" json:"autoId"`
}

// Load reads and validates a configuration file. Relative paths inside the
// file (spec documents, module directories) are resolved against the file's
// own directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	cfg, err := Parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range cfg.Specs {
		cfg.Specs[i].resolve(base)
	}
	return cfg, nil
}

// Parse parses config bytes. ext selects the format (".yaml"/".yml" for
// YAML, anything else JSON) and defaults are applied afterwards.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Timeline.Capacity <= 0 {
		c.Timeline.Capacity = DefaultTimelineCapacity
	}
	for i := range c.Specs {
		spec := &c.Specs[i]
		if spec.ID == "" && spec.File != "" {
			name := filepath.Base(spec.File)
			spec.ID = strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
}

// Validate checks structural invariants: at least one spec, unique spec ids,
// unique proxy paths.
func (c *Config) Validate() error {
	if len(c.Specs) == 0 {
		return errors.New("at least one spec is required")
	}

	ids := make(map[string]struct{}, len(c.Specs))
	proxies := make(map[string]struct{}, len(c.Specs))
	for i, spec := range c.Specs {
		if spec.File == "" {
			return fmt.Errorf("spec %d: file is required", i)
		}
		if _, dup := ids[spec.ID]; dup {
			return fmt.Errorf("duplicate spec id %q", spec.ID)
		}
		ids[spec.ID] = struct{}{}

		if spec.ProxyPath != "" {
			if !strings.HasPrefix(spec.ProxyPath, "/") {
				return fmt.Errorf("spec %q: proxyPath must start with /", spec.ID)
			}
			if _, dup := proxies[spec.ProxyPath]; dup {
				return fmt.Errorf("duplicate proxyPath %q", spec.ProxyPath)
			}
			proxies[spec.ProxyPath] = struct{}{}
		}
	}
	return nil
}

func (s *SpecConfig) resolve(base string) {
	s.File = resolvePath(base, s.File)
	s.HandlersDir = resolvePath(base, s.HandlersDir)
	s.SeedsDir = resolvePath(base, s.SeedsDir)
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
