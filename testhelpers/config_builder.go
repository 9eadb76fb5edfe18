package testhelpers

import (
	"github.com/opensquiggly/spinach-sub000/internal/config"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// TestConfigBuilder provides a fluent API for building test configs with
// safe defaults. Gitignore handling is off so tests see exactly the
// patterns they set.
//
//	cfg := testhelpers.NewTestConfigBuilder(dir).
//		WithExclusions("**/vendor/**").
//		WithIncludePatterns("**/*.go").
//		Build()
type TestConfigBuilder struct {
	projectRoot string
	exclusions  []string
	inclusions  []string
	mutate      []func(*config.Config)
}

// NewTestConfigBuilder creates a config builder for a project path.
func NewTestConfigBuilder(projectRoot string) *TestConfigBuilder {
	return &TestConfigBuilder{
		projectRoot: projectRoot,
		exclusions: []string{
			"**/.git/**",
			"**/node_modules/**",
		},
	}
}

// WithExclusions adds additional exclusion patterns
func (b *TestConfigBuilder) WithExclusions(patterns ...string) *TestConfigBuilder {
	b.exclusions = append(b.exclusions, patterns...)
	return b
}

// WithIncludePatterns replaces the include patterns
func (b *TestConfigBuilder) WithIncludePatterns(patterns ...string) *TestConfigBuilder {
	b.inclusions = patterns
	return b
}

// WithMaxFileSize sets the indexing size limit.
func (b *TestConfigBuilder) WithMaxFileSize(n int64) *TestConfigBuilder {
	return b.With(func(c *config.Config) { c.Index.MaxFileSize = n })
}

// With applies an arbitrary change after the defaults.
func (b *TestConfigBuilder) With(fn func(*config.Config)) *TestConfigBuilder {
	b.mutate = append(b.mutate, fn)
	return b
}

// Build creates the final test config with all settings
func (b *TestConfigBuilder) Build() *config.Config {
	cfg := &config.Config{
		Version: 1,
		Project: config.Project{
			Root: b.projectRoot,
			Name: "test-project",
		},
		Search: config.Search{
			MaxDocSize:        types.DefaultMaxDocSize,
			LargeDocThreshold: types.DefaultLargeDocThreshold,
			DocMatchType:      types.FirstMatchOnly,
			CaseSensitive:     true,
			MaxResults:        100,
		},
		Cache: config.Cache{
			Users:        16,
			Repositories: 16,
			Documents:    64,
		},
		Index: config.Index{
			MaxFileSize:            1024 * 1024,
			Workers:                2,
			RespectBinaryDetection: true,
			RespectGitignore:       false,
			WatchDebounceMs:        10,
		},
		Include: append([]string{}, b.inclusions...),
		Exclude: append([]string{}, b.exclusions...),
	}
	for _, fn := range b.mutate {
		fn(cfg)
	}
	return cfg
}
