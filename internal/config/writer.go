package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists indicates that init would overwrite an existing file.
var ErrConfigExists = errors.New("config file already exists")

const configHeader = "# cdoc configuration. Environment variables (CDOC_*) override these values.\n"

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append([]byte(configHeader), data...), nil
}

// WriteDefault writes the default configuration to .cdoc/config.yml under
// rootDir and returns its path. An existing file is only replaced when force
// is set.
func WriteDefault(rootDir string, force bool) (string, error) {
	dir := filepath.Join(rootDir, ".cdoc")
	path := filepath.Join(dir, "config.yml")

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := Marshal(Default())
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
