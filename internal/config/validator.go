package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"

	spinerrors "github.com/opensquiggly/spinach-sub000/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Returns a *errors.ConfigError naming the offending section.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Project.Root == "" {
		return spinerrors.NewConfigError("project.root", "", errors.New("project root cannot be empty"))
	}

	if err := v.validateSearchConfig(&cfg.Search); err != nil {
		return spinerrors.NewConfigError("search", "", err)
	}

	if err := v.validateCacheConfig(&cfg.Cache); err != nil {
		return spinerrors.NewConfigError("cache", "", err)
	}

	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return spinerrors.NewConfigError("index", "", err)
	}

	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return spinerrors.NewConfigError("include/exclude", p, errors.New("invalid glob pattern"))
		}
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateSearchConfig(search *Search) error {
	if search.MaxDocSize <= 0 {
		return fmt.Errorf("MaxDocSize must be positive, got %d", search.MaxDocSize)
	}
	if search.LargeDocThreshold < 0 {
		return fmt.Errorf("LargeDocThreshold cannot be negative, got %d", search.LargeDocThreshold)
	}
	if search.MaxResults < 0 {
		return fmt.Errorf("MaxResults cannot be negative, got %d", search.MaxResults)
	}
	return nil
}

func (v *Validator) validateCacheConfig(c *Cache) error {
	if c.Users < 0 || c.Repositories < 0 || c.Documents < 0 {
		return fmt.Errorf("cache sizes cannot be negative, got users=%d repositories=%d documents=%d",
			c.Users, c.Repositories, c.Documents)
	}
	return nil
}

func (v *Validator) validateIndexConfig(index *Index) error {
	if index.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", index.MaxFileSize)
	}

	if index.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", index.MaxFileSize)
	}

	if index.TimeSliceMs < 0 {
		return fmt.Errorf("TimeSliceMs cannot be negative, got %d", index.TimeSliceMs)
	}

	if index.Workers < 0 {
		return fmt.Errorf("Workers cannot be negative, got %d", index.Workers)
	}

	return nil
}

// setSmartDefaults fills zero values that mean "auto".
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = max(1, runtime.NumCPU()-1)
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = "default"
	}
}

// Validate is a convenience function for quick validation
func Validate(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
