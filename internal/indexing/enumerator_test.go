package indexing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/testhelpers"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func entryPaths(entries []FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestEnumerator_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub/c.go", "package sub\n")
	writeFile(t, dir, "b.txt", "notes\n")
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, ".git/config", "[core]\n")
	writeFile(t, dir, "node_modules/x/index.js", "module.exports = 1\n")
	writeFile(t, dir, "img.png", "not really a png")
	writeFile(t, dir, "big.txt", "this file is larger than the limit")

	cfg := testhelpers.NewTestConfigBuilder(dir).WithMaxFileSize(16).Build()
	entries, err := NewEnumerator(cfg).Enumerate(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "b.txt", "sub/c.go"}, entryPaths(entries))
	assert.Equal(t, filepath.Join(dir, "sub", "c.go"), entries[2].FullPath)
	assert.Equal(t, int64(len("package sub\n")), entries[2].Size)
	assert.NotZero(t, entries[2].ModTime)
}

func TestEnumerator_ReportsOversizedFiles(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	debug.SetLogger(zap.New(core))
	t.Cleanup(func() { debug.SetLogger(nil) })

	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok\n")
	big := writeFile(t, dir, "big.txt", "this file is larger than the limit")

	cfg := testhelpers.NewTestConfigBuilder(dir).WithMaxFileSize(16).Build()
	entries, err := NewEnumerator(cfg).Enumerate(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.txt"}, entryPaths(entries))

	skipped := logs.FilterMessageSnippet("exceeds limit 16").All()
	require.Len(t, skipped, 1)
	assert.Contains(t, skipped[0].Message, big)
	assert.Equal(t, "INDEX", skipped[0].LoggerName)
}

func TestEnumerator_IncludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "b.txt", "notes\n")
	writeFile(t, dir, "vendor/lib/d.go", "package lib\n")
	writeFile(t, dir, "sub/c.go", "package sub\n")

	cfg := testhelpers.NewTestConfigBuilder(dir).
		WithIncludePatterns("**/*.go").
		WithExclusions("vendor/**").
		Build()
	entries, err := NewEnumerator(cfg).Enumerate(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go", "sub/c.go"}, entryPaths(entries))
}

func TestEnumerator_MissingRoot(t *testing.T) {
	cfg := testhelpers.NewTestConfigBuilder("").Build()
	_, err := NewEnumerator(cfg).Enumerate(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
