package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/hierbuild/internal/foundation/errors"
)

// Example returns the starter manifest written by Init: a domain including one
// implementation with a publishable library and an application.
func Example() *Manifest {
	return &Manifest{
		Version: SchemaVersion,
		Root: UnitSpec{
			Name:    "domain",
			Kind:    "domain",
			Path:    ".",
			Group:   "org.example",
			Version: "0.1.0",
			Children: []UnitSpec{
				{
					Name: "platform",
					Kind: "implementation",
					Children: []UnitSpec{
						{Name: "core", Publish: &PublishSpec{Artifacts: []string{"jar", "pom"}}},
						{
							Name: "app",
							Operations: []OperationSpec{
								{Name: "check", DependsOn: []string{":core:build"}, Command: []string{"true"}},
							},
						},
					},
				},
			},
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		History: HistoryConfig{Path: filepath.Join(".hierbuild", "history.db")},
	}
}

// Init writes the example manifest to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("manifest already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create manifest directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write manifest").
			WithContext("path", path).
			Build()
	}
	return nil
}
