package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CDOC_*)
// 2. Config file (.cdoc/config.yml or .cdoc/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	// Set up config file search
	configDir := filepath.Join(l.rootDir, ".cdoc")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Enable environment variable overrides
	v.SetEnvPrefix("CDOC")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CDOC_EXTRACTION_BACKEND)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Extraction configuration
	v.BindEnv("extraction.backend")
	v.BindEnv("extraction.max_blank_lines")
	v.BindEnv("extraction.merge_line_comments")

	// Processing configuration
	v.BindEnv("processing.workers")

	// Storage configuration
	v.BindEnv("storage.database")
	v.BindEnv("storage.cache_location")
	v.BindEnv("storage.cache_size")

	// Logging configuration
	v.BindEnv("logging.file")
	v.BindEnv("logging.verbose")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	// Paths defaults
	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("paths.ignore_file", defaults.Paths.IgnoreFile)

	// Extraction defaults
	v.SetDefault("extraction.backend", defaults.Extraction.Backend)
	v.SetDefault("extraction.max_blank_lines", defaults.Extraction.MaxBlankLines)
	v.SetDefault("extraction.merge_line_comments", defaults.Extraction.MergeLineComments)

	// Processing defaults
	v.SetDefault("processing.workers", defaults.Processing.Workers)

	// Storage defaults
	v.SetDefault("storage.database", defaults.Storage.Database)
	v.SetDefault("storage.cache_location", defaults.Storage.CacheLocation)
	v.SetDefault("storage.cache_size", defaults.Storage.CacheSize)

	// Logging defaults
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.verbose", defaults.Logging.Verbose)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnv replaces ${VAR} references with the variable's value. References
// to unset variables are kept verbatim.
func ExpandEnv(value string) string {
	return envRef.ReplaceAllStringFunc(value, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return ref
	})
}

// expandEnv applies ExpandEnv to every string value of cfg.
func expandEnv(cfg *Config) {
	for i, p := range cfg.Paths.Include {
		cfg.Paths.Include[i] = ExpandEnv(p)
	}
	for i, p := range cfg.Paths.Ignore {
		cfg.Paths.Ignore[i] = ExpandEnv(p)
	}
	cfg.Paths.IgnoreFile = ExpandEnv(cfg.Paths.IgnoreFile)
	cfg.Extraction.Backend = ExpandEnv(cfg.Extraction.Backend)
	cfg.Storage.Database = ExpandEnv(cfg.Storage.Database)
	cfg.Storage.CacheLocation = ExpandEnv(cfg.Storage.CacheLocation)
	cfg.Logging.File = ExpandEnv(cfg.Logging.File)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
