package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Config file names. A KDL file wins over a TOML file in the same directory.
const (
	KDLFileName  = ".spinach.kdl"
	TOMLFileName = ".spinach.toml"
)

type Config struct {
	Version int
	Project Project
	Search  Search
	Cache   Cache
	Index   Index
	Include []string
	Exclude []string
}

type Project struct {
	Root string
	Name string
}

// Search controls cursor skipping and result shaping.
type Search struct {
	MaxDocSize        int64              // documents larger than this are never surfaced
	LargeDocThreshold int64              // candidates in larger documents seek past the document end
	DocMatchType      types.DocMatchType // first match per document, or all of them
	CaseSensitive     bool
	MaxResults        int  // 0 = unlimited
	AllowFullScan     bool // answer queries without a usable literal by scanning every document
}

// Cache sizes the three entity caches.
type Cache struct {
	Users        int
	Repositories int
	Documents    int
}

type Index struct {
	MaxFileSize            int64
	TimeSliceMs            int // 0 = index a repository to completion in one pass
	Workers                int // parallel file readers; 0 = NumCPU
	RespectBinaryDetection bool
	RespectGitignore       bool
	WatchDebounceMs        int
}

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{
			Root: root,
			Name: filepath.Base(root),
		},
		Search: Search{
			MaxDocSize:        types.DefaultMaxDocSize,
			LargeDocThreshold: types.DefaultLargeDocThreshold,
			DocMatchType:      types.FirstMatchOnly,
			CaseSensitive:     true,
			MaxResults:        1000,
		},
		Cache: Cache{
			Users:        types.DefaultUserCacheSize,
			Repositories: types.DefaultRepositoryCacheSize,
			Documents:    types.DefaultDocumentCacheSize,
		},
		Index: Index{
			MaxFileSize:            types.DefaultMaxFileSize,
			Workers:                runtime.NumCPU(),
			RespectBinaryDetection: true,
			RespectGitignore:       true,
			WatchDebounceMs:        300,
		},
		Include: []string{},
		Exclude: defaultExclusions(),
	}
}

// Load reads configuration for the current directory.
func Load() (*Config, error) {
	return LoadWithRoot("")
}

// LoadWithRoot layers configuration: built-in defaults, then the global file
// in the home directory, then the project file in rootDir. Exclusions
// accumulate across layers; every other setting is overridden.
func LoadWithRoot(rootDir string) (*Config, error) {
	if rootDir == "" {
		rootDir = "."
	}
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	cfg := Default(absRoot)

	if homeDir, err := os.UserHomeDir(); err == nil && filepath.Clean(homeDir) != absRoot {
		if _, err := applyFile(cfg, homeDir); err != nil {
			return nil, err
		}
	}

	if _, err := applyFile(cfg, absRoot); err != nil {
		return nil, err
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = absRoot
	}
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(absRoot, cfg.Project.Root))
	}

	if cfg.Index.RespectGitignore {
		cfg.Exclude = DeduplicatePatterns(append(cfg.Exclude, GitignoreExclusions(cfg.Project.Root)...))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays the config file found in dir, if any, and reports
// which file was applied.
func applyFile(cfg *Config, dir string) (string, error) {
	kdlPath := filepath.Join(dir, KDLFileName)
	if content, err := os.ReadFile(kdlPath); err == nil {
		return kdlPath, applyKDL(cfg, string(content), dir)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	tomlPath := filepath.Join(dir, TOMLFileName)
	if content, err := os.ReadFile(tomlPath); err == nil {
		return tomlPath, applyTOML(cfg, content, dir)
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return "", nil
}

// resolveRoot makes a configured root absolute relative to the directory
// holding the config file.
func resolveRoot(root, configDir string) string {
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Clean(filepath.Join(configDir, root))
}

// DeduplicatePatterns removes duplicate patterns, keeping first occurrences.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}

func defaultExclusions() []string {
	return []string{
		// VCS metadata
		"**/.git/**",
		"**/.hg/**",
		"**/.svn/**",

		// Dependencies
		"**/node_modules/**",
		"**/vendor/**",
		"**/bower_components/**",

		// Build output
		"**/dist/**",
		"**/target/**",
		"**/__pycache__/**",
		"**/*.min.js",
		"**/*.min.css",
		"**/*.pyc",

		// Archives and media
		"**/*.zip",
		"**/*.tar",
		"**/*.gz",
		"**/*.jar",
		"**/*.png",
		"**/*.jpg",
		"**/*.jpeg",
		"**/*.gif",
		"**/*.pdf",
		"**/*.mp4",
		"**/*.mp3",

		// Editor and OS files
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
		"**/Thumbs.db",
	}
}
