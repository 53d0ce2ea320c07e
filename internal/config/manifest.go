// Package config loads the hierarchy manifest: the tree of units with their
// kinds, paths, metadata, publishing capability and user-defined operations,
// plus logging, history and metrics settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
)

// SchemaVersion is the manifest schema version written by Init.
const SchemaVersion = "1"

// DefaultFileName is the manifest looked up when no path is given.
const DefaultFileName = "hierbuild.yaml"

// Manifest is the root of a hierarchy manifest file.
type Manifest struct {
	Version string        `yaml:"version"`
	Root    UnitSpec      `yaml:"root"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	path string
}

// UnitSpec declares one unit and, recursively, its children.
type UnitSpec struct {
	Name       string          `yaml:"name"`
	Kind       string          `yaml:"kind,omitempty"`
	Path       string          `yaml:"path,omitempty"` // relative to the parent unit, defaults to name
	Group      string          `yaml:"group,omitempty"`
	Version    string          `yaml:"version,omitempty"`
	Publish    *PublishSpec    `yaml:"publish,omitempty"`
	Operations []OperationSpec `yaml:"operations,omitempty"`
	Children   []UnitSpec      `yaml:"children,omitempty"`
}

// PublishSpec declares the publishable-artifact capability.
type PublishSpec struct {
	Artifacts []string `yaml:"artifacts,omitempty"` // extensions, default [jar]
}

// OperationSpec declares or augments an operation of the unit.
type OperationSpec struct {
	Name      string     `yaml:"name"`
	DependsOn []string   `yaml:"depends_on,omitempty"`
	Command   []string   `yaml:"command,omitempty"` // argv, run in the unit root
	Retry     *RetrySpec `yaml:"retry,omitempty"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Path     string `yaml:"path,omitempty"` // relative to the manifest directory
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // node exporter textfile output
}

// Path is the absolute path the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// Dir is the directory holding the manifest; relative paths resolve against it.
func (m *Manifest) Dir() string { return filepath.Dir(m.path) }

// Resolve makes p absolute relative to the manifest directory.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir(), p)
}

// Load reads, normalizes, defaults and validates the manifest at path.
// Environment variables are expanded after loading .env files next to it.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid manifest path").
			WithContext("path", path).
			Build()
	}
	if envFile, err := loadEnvFile(filepath.Dir(abs)); err == nil {
		slog.Debug("Loaded environment variables", slog.String("path", envFile))
	}

	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ferrors.ConfigError("manifest not found").
			WithContext("path", abs).
			Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read manifest").
			WithContext("path", abs).
			Fatal().
			Build()
	}

	m, err := Parse(bytes.NewBufferString(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	m.path = abs
	return m, nil
}

// Parse decodes, normalizes, defaults and validates a manifest from r.
// Unknown fields are rejected.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ferrors.ConfigError("manifest is empty").Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse manifest").Fatal().Build()
	}

	res := Normalize(&m)
	for _, w := range res.Warnings {
		slog.Warn("Manifest normalization", slog.String("warning", w))
	}
	applyDefaults(&m)
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// NormalizationResult captures coercions made by Normalize.
type NormalizationResult struct{ Warnings []string }

// Normalize canonicalizes enumerated fields in place.
func Normalize(m *Manifest) *NormalizationResult {
	res := &NormalizationResult{}
	if raw := string(m.Logging.Level); raw != "" {
		lvl := NormalizeLogLevel(raw)
		if string(lvl) != raw {
			res.Warnings = append(res.Warnings, fmt.Sprintf("logging.level: %q normalized to %q", raw, lvl))
		}
		m.Logging.Level = lvl
	}
	if raw := string(m.Logging.Format); raw != "" {
		f := NormalizeLogFormat(raw)
		if string(f) != raw {
			res.Warnings = append(res.Warnings, fmt.Sprintf("logging.format: %q normalized to %q", raw, f))
		}
		m.Logging.Format = f
	}
	return res
}

func applyDefaults(m *Manifest) {
	if m.Version == "" {
		m.Version = SchemaVersion
	}
	if m.Logging.Level == "" {
		m.Logging.Level = LogLevelInfo
	}
	if m.Logging.Format == "" {
		m.Logging.Format = LogFormatText
	}
	if m.History.Path == "" {
		m.History.Path = filepath.Join(".hierbuild", "history.db")
	}
	if m.Root.Path == "" {
		m.Root.Path = "."
	}
}
