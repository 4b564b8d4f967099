package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File names searched by Load, in order
const (
	YAMLFile = "rill.yaml"
	TOMLFile = "rill.toml"
)

// Config represents the project configuration
type Config struct {
	// Directory scanned for templates
	SourceDir string `yaml:"sourceDir,omitempty" toml:"sourceDir,omitempty"`

	// Directory generated modules are written to; next to the template when empty
	OutDir string `yaml:"outDir,omitempty" toml:"outDir,omitempty"`

	// Module format: "esm" or "cjs"
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`

	// Attribute prefix marking event listeners
	EventPrefix string `yaml:"eventPrefix,omitempty" toml:"eventPrefix,omitempty"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty" toml:"dev,omitempty"`

	// File watcher configuration
	Watch *WatchConfig `yaml:"watch,omitempty" toml:"watch,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	// Server port
	Port int `yaml:"port,omitempty" toml:"port,omitempty"`

	// Server host
	Host string `yaml:"host,omitempty" toml:"host,omitempty"`
}

// WatchConfig contains file watcher configuration
type WatchConfig struct {
	// Quiet period before a burst of file events triggers a rebuild
	DebounceMs int `yaml:"debounceMs,omitempty" toml:"debounceMs,omitempty"`

	// Directory names skipped while watching
	Ignore []string `yaml:"ignore,omitempty" toml:"ignore,omitempty"`
}

// Load loads configuration from rill.yaml or rill.toml in projectPath
func Load(projectPath string) (*Config, error) {
	for _, name := range []string{YAMLFile, TOMLFile} {
		configPath := filepath.Join(projectPath, name)
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			continue
		}
		return LoadFile(configPath)
	}

	// Return default config if no file exists
	return DefaultConfig(), nil
}

// LoadFile loads a configuration file, choosing the decoder by extension
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &config)
	case ".toml":
		err = decodeTOML(data, &config)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}
	return &config, nil
}

func decodeYAML(data []byte, config *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeTOML(data []byte, config *Config) error {
	meta, err := toml.Decode(string(data), config)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Save saves configuration to rill.yaml
func Save(config *Config, projectPath string) error {
	return SaveFile(config, filepath.Join(projectPath, YAMLFile))
}

// SaveFile writes configuration, choosing the encoder by extension
func SaveFile(config *Config, configPath string) error {
	var data []byte
	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		out, err := yaml.Marshal(config)
		if err != nil {
			return err
		}
		data = out
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(config); err != nil {
			return err
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unsupported config format: %s", configPath)
	}

	return os.WriteFile(configPath, data, 0644)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SourceDir:   "src",
		Format:      "esm",
		EventPrefix: "on:",
		Dev: &DevConfig{
			Port: 5173,
			Host: "localhost",
		},
		Watch: &WatchConfig{
			DebounceMs: 100,
			Ignore:     []string{"node_modules", ".git"},
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.SourceDir == "" {
		config.SourceDir = defaults.SourceDir
	}
	if config.Format == "" {
		config.Format = defaults.Format
	}
	if config.EventPrefix == "" {
		config.EventPrefix = defaults.EventPrefix
	}

	// Apply dev server defaults
	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
	}

	// Apply watcher defaults
	if config.Watch == nil {
		config.Watch = defaults.Watch
	} else {
		if config.Watch.DebounceMs == 0 {
			config.Watch.DebounceMs = defaults.Watch.DebounceMs
		}
		if config.Watch.Ignore == nil {
			config.Watch.Ignore = defaults.Watch.Ignore
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Format != "esm" && c.Format != "cjs" {
		return fmt.Errorf("format must be esm or cjs, got %q", c.Format)
	}
	if c.Dev != nil && (c.Dev.Port < 0 || c.Dev.Port > 65535) {
		return fmt.Errorf("dev.port out of range: %d", c.Dev.Port)
	}
	if c.Watch != nil && c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounceMs must not be negative")
	}
	return nil
}

// Debounce returns the watcher quiet period
func (c *Config) Debounce() time.Duration {
	if c.Watch == nil || c.Watch.DebounceMs == 0 {
		return time.Duration(DefaultConfig().Watch.DebounceMs) * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// Address returns the dev server listen address
func (c *Config) Address() string {
	if c.Dev == nil {
		d := DefaultConfig().Dev
		return fmt.Sprintf("%s:%d", d.Host, d.Port)
	}
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}

// Ignored reports whether a directory name is skipped by the watcher
func (c *Config) Ignored(name string) bool {
	if c.Watch == nil {
		return false
	}
	for _, ignore := range c.Watch.Ignore {
		if name == ignore {
			return true
		}
	}
	return false
}

// OutputPath maps a template path to the path of its generated module. With
// OutDir set, the template's position under SourceDir is mirrored there.
func (c *Config) OutputPath(templatePath, outputExt string) string {
	base := strings.TrimSuffix(templatePath, filepath.Ext(templatePath)) + outputExt
	if c.OutDir == "" {
		return base
	}
	rel, err := filepath.Rel(c.SourceDir, base)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(c.OutDir, filepath.Base(base))
	}
	return filepath.Join(c.OutDir, rel)
}
