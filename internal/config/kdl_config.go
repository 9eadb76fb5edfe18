package config

import (
	"fmt"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// parseKDL parses content on top of the built-in defaults.
func parseKDL(content string) (*Config, error) {
	cfg := Default(".")
	if err := applyKDL(cfg, content, "."); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyKDL overlays the settings in content onto cfg. configDir resolves a
// relative project root.
func applyKDL(cfg *Config, content, configDir string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = resolveRoot(v, configDir) })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "search":
			if err := applyKDLSearch(cfg, n); err != nil {
				return err
			}
		case "cache":
			for _, cn := range n.Children {
				v, ok := firstIntArg(cn)
				if !ok {
					continue
				}
				switch nodeName(cn) {
				case "users":
					cfg.Cache.Users = v
				case "repositories":
					cfg.Cache.Repositories = v
				case "documents":
					cfg.Cache.Documents = v
				}
			}
		case "index":
			applyKDLIndex(cfg, n)
		case "include":
			cfg.Include = collectStringArgs(n)
		case "exclude":
			cfg.Exclude = DeduplicatePatterns(append(cfg.Exclude, collectStringArgs(n)...))
		default:
			debug.Log("CONFIG", "ignoring unknown KDL node %q", nodeName(n))
		}
	}
	return nil
}

func applyKDLSearch(cfg *Config, n *document.Node) error {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "max_doc_size":
			if v, ok := sizeArg(cn); ok {
				cfg.Search.MaxDocSize = v
			}
		case "large_doc_threshold":
			if v, ok := sizeArg(cn); ok {
				cfg.Search.LargeDocThreshold = v
			}
		case "doc_match_type":
			if s, ok := firstStringArg(cn); ok {
				mt, ok := types.ParseDocMatchType(s)
				if !ok {
					return errors.NewConfigError("search.doc_match_type", s, fmt.Errorf("expected \"first\" or \"all\""))
				}
				cfg.Search.DocMatchType = mt
			}
		case "case_sensitive":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Search.CaseSensitive = b
			}
		case "max_results":
			if v, ok := firstIntArg(cn); ok {
				cfg.Search.MaxResults = v
			}
		case "allow_full_scan":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Search.AllowFullScan = b
			}
		}
	}
	return nil
}

func applyKDLIndex(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "max_file_size":
			if v, ok := sizeArg(cn); ok {
				cfg.Index.MaxFileSize = v
			}
		case "time_slice_ms":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.TimeSliceMs = v
			}
		case "workers":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.Workers = v
			}
		case "respect_binary_detection":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Index.RespectBinaryDetection = b
			}
		case "respect_gitignore":
			if b, ok := firstBoolArg(cn); ok {
				cfg.Index.RespectGitignore = b
			}
		case "watch_debounce_ms":
			if v, ok := firstIntArg(cn); ok {
				cfg.Index.WatchDebounceMs = v
			}
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// sizeArg accepts a plain integer or a size string such as "4MB".
func sizeArg(n *document.Node) (int64, bool) {
	if v, ok := firstIntArg(n); ok {
		return int64(v), true
	}
	if s, ok := firstStringArg(n); ok {
		if sz, err := parseSize(s); err == nil {
			return sz, true
		}
		debug.Log("CONFIG", "invalid size %q for %s", s, nodeName(n))
	}
	return 0, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block form: exclude { "pattern" }. Each string is a child node whose
	// name is the value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}

	return num * multiplier, nil
}
