// Package config provides configuration loading for cdoc.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (CDOC_*)
//  2. Project config (.cdoc/config.yml or .cdoc/config.yaml)
//  3. Built-in defaults
//
// String values may reference environment variables as ${VAR}; unknown
// variables are left untouched.
package config

// Config represents the complete cdoc configuration.
// It can be loaded from .cdoc/config.yml with environment variable overrides.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// PathsConfig defines which files to extract and which to ignore.
type PathsConfig struct {
	Include    []string `yaml:"include" mapstructure:"include"`         // glob patterns for C/C++ sources
	Ignore     []string `yaml:"ignore" mapstructure:"ignore"`           // glob patterns to skip
	IgnoreFile string   `yaml:"ignore_file" mapstructure:"ignore_file"` // gitignore-style file in the root
}

// ExtractionConfig selects the backend and tunes doc comment attachment.
type ExtractionConfig struct {
	Backend           string `yaml:"backend" mapstructure:"backend"`                         // "heuristic" or "treesitter"
	MaxBlankLines     int    `yaml:"max_blank_lines" mapstructure:"max_blank_lines"`         // blank lines allowed between doc and declaration
	MergeLineComments bool   `yaml:"merge_line_comments" mapstructure:"merge_line_comments"` // join consecutive // runs
}

// ProcessingConfig controls parallelism.
type ProcessingConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means GOMAXPROCS
}

// StorageConfig defines the inventory database and the extraction cache.
type StorageConfig struct {
	Database      string `yaml:"database" mapstructure:"database"`             // relative to the project root
	CacheLocation string `yaml:"cache_location" mapstructure:"cache_location"` // Override default ~/.cdoc/cache, "off" disables
	CacheSize     int    `yaml:"cache_size" mapstructure:"cache_size"`         // in-memory cache entries
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	File    string `yaml:"file" mapstructure:"file"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.c",
				"**/*.h",
				"**/*.cpp",
				"**/*.cc",
				"**/*.cxx",
				"**/*.hpp",
				"**/*.hh",
				"**/*.hxx",
			},
			Ignore: []string{
				".git/**",
				"build/**",
				"cmake-build-*/**",
				"third_party/**",
				"vendor/**",
				"node_modules/**",
			},
			IgnoreFile: ".cdocignore",
		},
		Extraction: ExtractionConfig{
			Backend:           "heuristic",
			MaxBlankLines:     1,
			MergeLineComments: true,
		},
		Processing: ProcessingConfig{
			Workers: 0,
		},
		Storage: StorageConfig{
			Database:      ".cdoc/inventory.db",
			CacheLocation: "", // Empty means use default ~/.cdoc/cache
			CacheSize:     10000,
		},
		Logging: LoggingConfig{
			File:    "",
			Verbose: false,
		},
	}
}

// GetSourceExtensions extracts unique file extensions from include patterns.
// Returns extensions with leading dot (e.g., []string{".c", ".h"}).
func (c *Config) GetSourceExtensions() []string {
	seen := make(map[string]bool)
	var extensions []string
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.c" -> ".c", "*.hpp" -> ".hpp"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
