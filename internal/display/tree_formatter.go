// Package display renders query plans for humans and tools.
package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensquiggly/spinach-sub000/internal/query"
)

// TreeFormatter formats query trees for display
type TreeFormatter struct {
	options FormatterOptions
}

// FormatterOptions controls tree formatting
type FormatterOptions struct {
	Format   string // "text", "json", "compact"
	MaxDepth int    // 0 = unlimited
}

// NewTreeFormatter creates a new tree formatter
func NewTreeFormatter(options FormatterOptions) *TreeFormatter {
	return &TreeFormatter{options: options}
}

// Format renders n in the configured format.
func (tf *TreeFormatter) Format(n *query.Node) string {
	if n == nil {
		return "No plan available"
	}

	switch tf.options.Format {
	case "json":
		return tf.formatJSON(n)
	case "compact":
		return n.String()
	default:
		return tf.formatText(n)
	}
}

func (tf *TreeFormatter) formatText(n *query.Node) string {
	var sb strings.Builder
	tf.formatNode(&sb, n, "", true, true, 0)
	return sb.String()
}

func (tf *TreeFormatter) formatNode(sb *strings.Builder, n *query.Node, prefix string, isLast, isRoot bool, depth int) {
	if tf.options.MaxDepth > 0 && depth > tf.options.MaxDepth {
		return
	}

	var branch string
	switch {
	case isRoot:
		branch = ""
	case isLast:
		branch = "└── "
	default:
		branch = "├── "
	}

	sb.WriteString(prefix)
	sb.WriteString(branch)
	sb.WriteString(label(n))
	sb.WriteString("\n")

	var childPrefix string
	switch {
	case isRoot:
		childPrefix = prefix
	case isLast:
		childPrefix = prefix + "    "
	default:
		childPrefix = prefix + "│   "
	}
	for i, child := range n.Children {
		tf.formatNode(sb, child, childPrefix, i == len(n.Children)-1, false, depth+1)
	}
}

func label(n *query.Node) string {
	switch n.Kind {
	case query.KindAll:
		return "ALL"
	case query.KindLiteral:
		if n.FoldCase {
			return fmt.Sprintf("%q (case-folded)", n.Literal)
		}
		return fmt.Sprintf("%q", n.Literal)
	case query.KindUnion:
		return "OR"
	default:
		return "AND"
	}
}

type jsonNode struct {
	Op       string      `json:"op"`
	Literal  string      `json:"literal,omitempty"`
	FoldCase bool        `json:"fold_case,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func toJSONNode(n *query.Node) *jsonNode {
	out := &jsonNode{Op: "all"}
	switch n.Kind {
	case query.KindLiteral:
		out.Op = "literal"
		out.Literal = n.Literal
		out.FoldCase = n.FoldCase
	case query.KindUnion:
		out.Op = "or"
	case query.KindIntersect:
		out.Op = "and"
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, toJSONNode(child))
	}
	return out
}

func (tf *TreeFormatter) formatJSON(n *query.Node) string {
	data, err := json.MarshalIndent(toJSONNode(n), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
