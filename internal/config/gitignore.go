package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// gitignorePattern is one parsed .gitignore line.
type gitignorePattern struct {
	Pattern   string
	Negate    bool
	Directory bool
	Absolute  bool
}

// GitignoreExclusions converts the root .gitignore of a repository into
// doublestar exclusion patterns. Negated lines are dropped. A missing file
// yields nil.
func GitignoreExclusions(root string) []string {
	file, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	var exclusions []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := parseGitignoreLine(line)
		if p.Negate || p.Pattern == "" {
			continue
		}
		exclusions = append(exclusions, p.exclusions()...)
	}
	return exclusions
}

func parseGitignoreLine(line string) gitignorePattern {
	var p gitignorePattern

	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		p.Directory = true
		line = strings.TrimSuffix(line, "/")
	}

	if strings.HasPrefix(line, "/") {
		p.Absolute = true
		line = line[1:]
	}

	p.Pattern = line
	return p
}

// exclusions renders the pattern as doublestar globs relative to the root.
// A pattern without a trailing slash matches both files and directories.
func (p gitignorePattern) exclusions() []string {
	switch {
	case p.Directory && p.Absolute:
		return []string{p.Pattern + "/**"}
	case p.Directory:
		return []string{"**/" + p.Pattern + "/**"}
	case p.Absolute:
		return []string{p.Pattern, p.Pattern + "/**"}
	default:
		return []string{"**/" + p.Pattern, "**/" + p.Pattern + "/**"}
	}
}
