package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("paths below are POSIX")
	}

	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"simple relative path", "/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"nested relative path", "/home/user/project/internal/core/index.go", "/home/user/project", "internal/core/index.go"},
		{"root level file", "/home/user/project/README.md", "/home/user/project", "README.md"},
		{"same directory", "/home/user/project", "/home/user/project", "."},
		{"already relative path", "src/main.go", "/home/user/project", "src/main.go"},
		{"path outside root", "/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"sibling with shared prefix", "/home/user/project2/a.go", "/home/user/project", "/home/user/project2/a.go"},
		{"dot-dot file name inside root", "/home/user/project/..hidden", "/home/user/project", "..hidden"},
		{"empty root", "/home/user/project/a.go", "", "/home/user/project/a.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToRelative(tt.absPath, tt.rootDir))
		})
	}
}

func TestWithin(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")

	rel, ok := Within(filepath.Join(root, "a", "b.go"), root)
	assert.True(t, ok)
	assert.Equal(t, "a/b.go", rel)

	rel, ok = Within(root, root)
	assert.True(t, ok)
	assert.Equal(t, ".", rel)

	_, ok = Within(filepath.Dir(root), root)
	assert.False(t, ok)
	_, ok = Within(root+"-other"+string(filepath.Separator)+"x", root)
	assert.False(t, ok)
}
