// Package query reduces a regular expression to a boolean tree of literal
// constraints and compiles that tree into seekable cursors.
package query

import (
	"fmt"
	"strings"
)

// Kind tags the variant held by a Node.
type Kind uint8

const (
	// KindAll matches every document; it carries no trigram constraint.
	KindAll Kind = iota
	// KindLiteral requires a literal of at least three bytes.
	KindLiteral
	// KindUnion requires any child.
	KindUnion
	// KindIntersect requires every child.
	KindIntersect
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindLiteral:
		return "literal"
	case KindUnion:
		return "union"
	case KindIntersect:
		return "intersect"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one vertex of a query tree. Literal and FoldCase are set for
// KindLiteral; Children for KindUnion and KindIntersect, which always have
// two or more.
type Node struct {
	Kind     Kind
	Literal  string
	FoldCase bool // the literal matches ASCII case-insensitively
	Children []*Node
}

var allDocuments = &Node{Kind: KindAll}

// All returns the node that matches every document.
func All() *Node { return allDocuments }

// Lit returns a literal node, or All when s is shorter than a trigram.
func Lit(s string) *Node {
	if len(s) < 3 {
		return All()
	}
	return &Node{Kind: KindLiteral, Literal: s}
}

// Or combines nodes under union. All absorbs the whole union; no children
// also yields All.
func Or(children ...*Node) *Node {
	kept := make([]*Node, 0, len(children))
	for _, c := range children {
		if c.IsAll() {
			return All()
		}
		if c.Kind == KindUnion {
			kept = append(kept, c.Children...)
			continue
		}
		kept = append(kept, c)
	}
	return collapse(KindUnion, kept)
}

// And combines nodes under intersection. All children are dropped; no
// remaining children yields All.
func And(children ...*Node) *Node {
	kept := make([]*Node, 0, len(children))
	for _, c := range children {
		if c.IsAll() {
			continue
		}
		if c.Kind == KindIntersect {
			kept = append(kept, c.Children...)
			continue
		}
		kept = append(kept, c)
	}
	return collapse(KindIntersect, kept)
}

func collapse(kind Kind, children []*Node) *Node {
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	default:
		return &Node{Kind: kind, Children: children}
	}
}

// IsAll reports whether n places no constraint on documents.
func (n *Node) IsAll() bool { return n == nil || n.Kind == KindAll }

// Literals returns every literal in the tree, left to right.
func (n *Node) Literals() []string {
	var out []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Kind == KindLiteral {
			out = append(out, n.Literal)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// String prints the tree, e.g. AND(LIT("foo"), OR(LIT("bar"), LIT("baz"))).
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	if n.IsAll() {
		sb.WriteString("ALL")
		return
	}
	switch n.Kind {
	case KindLiteral:
		if n.FoldCase {
			fmt.Fprintf(sb, "LIT(%q/i)", n.Literal)
		} else {
			fmt.Fprintf(sb, "LIT(%q)", n.Literal)
		}
		return
	case KindUnion:
		sb.WriteString("OR(")
	case KindIntersect:
		sb.WriteString("AND(")
	}
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		c.format(sb)
	}
	sb.WriteByte(')')
}
