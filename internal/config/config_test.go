package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(types.DefaultMaxDocSize), cfg.Search.MaxDocSize)
	assert.Equal(t, int64(types.DefaultLargeDocThreshold), cfg.Search.LargeDocThreshold)
	assert.Equal(t, types.FirstMatchOnly, cfg.Search.DocMatchType)
	assert.True(t, cfg.Search.CaseSensitive)
	assert.Equal(t, types.DefaultDocumentCacheSize, cfg.Cache.Documents)
	assert.Contains(t, cfg.Exclude, "**/.git/**")
}

func TestParseKDL_Sections(t *testing.T) {
	kdlContent := `
search {
    max_doc_size "2MB"
    large_doc_threshold 4096
    doc_match_type "all"
    case_sensitive false
    max_results 25
    allow_full_scan true
}
cache {
    users 8
    repositories 16
    documents 32
}
index {
    max_file_size "1MB"
    time_slice_ms 50
    workers 3
    respect_binary_detection false
}
include "**/*.go" "**/*.md"
exclude {
    "**/generated/**"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, int64(2*1024*1024), cfg.Search.MaxDocSize)
	assert.Equal(t, int64(4096), cfg.Search.LargeDocThreshold)
	assert.Equal(t, types.AllMatchesInDocument, cfg.Search.DocMatchType)
	assert.False(t, cfg.Search.CaseSensitive)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.True(t, cfg.Search.AllowFullScan)

	assert.Equal(t, Cache{Users: 8, Repositories: 16, Documents: 32}, cfg.Cache)

	assert.Equal(t, int64(1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 50, cfg.Index.TimeSliceMs)
	assert.Equal(t, 3, cfg.Index.Workers)
	assert.False(t, cfg.Index.RespectBinaryDetection)

	assert.Equal(t, []string{"**/*.go", "**/*.md"}, cfg.Include)
	assert.Contains(t, cfg.Exclude, "**/generated/**")
	assert.Contains(t, cfg.Exclude, "**/.git/**", "defaults are kept when a file adds exclusions")
}

func TestParseKDL_InvalidDocMatchType(t *testing.T) {
	_, err := parseKDL(`search { doc_match_type "some" }`)
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "search.doc_match_type", cfgErr.Field)
}

func TestParseKDL_Malformed(t *testing.T) {
	_, err := parseKDL(`search {`)
	assert.Error(t, err)
}

func TestLoadWithRoot_NoFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()

	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Project.Root)
	assert.Equal(t, filepath.Base(root), cfg.Project.Name)
	assert.Positive(t, cfg.Index.Workers)
}

func TestLoadWithRoot_TOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, root, TOMLFileName, `
[search]
max_doc_size = "512KB"
doc_match_type = "all"
case_sensitive = false

[cache]
documents = 99

[index]
max_file_size = 2048
time_slice_ms = 10
`)
	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)

	assert.Equal(t, int64(512*1024), cfg.Search.MaxDocSize)
	assert.Equal(t, types.AllMatchesInDocument, cfg.Search.DocMatchType)
	assert.False(t, cfg.Search.CaseSensitive)
	assert.Equal(t, 99, cfg.Cache.Documents)
	assert.Equal(t, int64(2048), cfg.Index.MaxFileSize)
	assert.Equal(t, 10, cfg.Index.TimeSliceMs)
}

func TestLoadWithRoot_TOMLExclude(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, root, TOMLFileName, `
exclude = ["**/third_party/**"]
include = ["**/*.go"]
`)
	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Contains(t, cfg.Exclude, "**/third_party/**")
	assert.Contains(t, cfg.Exclude, "**/.git/**")
	assert.Equal(t, []string{"**/*.go"}, cfg.Include)
}

func TestLoadWithRoot_KDLWinsOverTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, root, KDLFileName, `search { max_results 7 }`)
	writeFile(t, root, TOMLFileName, "[search]\nmax_results = 9\n")

	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxResults)
}

func TestLoadWithRoot_GlobalThenProject(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, KDLFileName, `
search {
    max_results 11
    case_sensitive false
}
exclude "**/global/**"
`)

	root := t.TempDir()
	writeFile(t, root, KDLFileName, `
search { max_results 22 }
exclude "**/project/**"
`)

	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Equal(t, 22, cfg.Search.MaxResults, "project overrides global")
	assert.False(t, cfg.Search.CaseSensitive, "global applies where project is silent")
	assert.Contains(t, cfg.Exclude, "**/global/**")
	assert.Contains(t, cfg.Exclude, "**/project/**")
}

func TestLoadWithRoot_RelativeProjectRoot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0755))
	writeFile(t, root, KDLFileName, `
project {
    root "src"
    name "demo"
}
`)

	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src"), cfg.Project.Root)
	assert.Equal(t, "demo", cfg.Project.Name)
}

func TestLoadWithRoot_Gitignore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# comment\n\nbuild/\n/secret.txt\n*.log\n!keep.log\n")

	cfg, err := LoadWithRoot(root)
	require.NoError(t, err)
	assert.Contains(t, cfg.Exclude, "**/build/**")
	assert.Contains(t, cfg.Exclude, "secret.txt")
	assert.Contains(t, cfg.Exclude, "**/*.log")
	assert.NotContains(t, cfg.Exclude, "**/keep.log")
}

func TestLoadWithRoot_InvalidValue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	writeFile(t, root, KDLFileName, `index { max_file_size 0 }`)

	_, err := LoadWithRoot(root)
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "index", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty root", func(c *Config) { c.Project.Root = "" }, "project.root"},
		{"zero max doc size", func(c *Config) { c.Search.MaxDocSize = 0 }, "search"},
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }, "search"},
		{"negative cache", func(c *Config) { c.Cache.Documents = -1 }, "cache"},
		{"huge file size", func(c *Config) { c.Index.MaxFileSize = 200 * 1024 * 1024 }, "index"},
		{"bad glob", func(c *Config) { c.Exclude = append(c.Exclude, "[") }, "include/exclude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/tmp/project")
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			var cfgErr *errors.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	cfg := Default("/tmp/project")
	cfg.Index.Workers = 0
	require.NoError(t, Validate(cfg))
	assert.GreaterOrEqual(t, cfg.Index.Workers, 1)
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]int64{
		"10":    10,
		"10B":   10,
		"4kb":   4096,
		" 2MB ": 2 * 1024 * 1024,
		"1GB":   1024 * 1024 * 1024,
	} {
		got, err := parseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseSize("lots")
	assert.Error(t, err)
}
