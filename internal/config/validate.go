package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidBackend indicates an unsupported extraction backend
	ErrInvalidBackend = errors.New("invalid extraction backend")

	// ErrInvalidBlankLines indicates a negative blank line tolerance
	ErrInvalidBlankLines = errors.New("invalid max blank lines")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a non-positive cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrEmptyDatabase indicates a missing database path
	ErrEmptyDatabase = errors.New("empty database path")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateExtraction(&cfg.Extraction); err != nil {
		errs = append(errs, err)
	}

	if cfg.Processing.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Processing.Workers))
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtraction(cfg *ExtractionConfig) error {
	var errs []error

	backend := strings.ToLower(cfg.Backend)
	if backend != "heuristic" && backend != "treesitter" {
		errs = append(errs, fmt.Errorf("%w: must be 'heuristic' or 'treesitter', got '%s'", ErrInvalidBackend, cfg.Backend))
	}

	if cfg.MaxBlankLines < 0 {
		errs = append(errs, fmt.Errorf("%w: max_blank_lines cannot be negative, got %d", ErrInvalidBlankLines, cfg.MaxBlankLines))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Database) == "" {
		errs = append(errs, fmt.Errorf("%w: database is required", ErrEmptyDatabase))
	}

	if cfg.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error. The result still
// matches every sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
