package query

import (
	"regexp/syntax"
	"strings"
	"unicode"
)

// ParseFlags are the regexp/syntax flags patterns are parsed with.
const ParseFlags = syntax.Perl

// BuildQuery parses pattern and reduces it to a query tree. When
// caseSensitive is false every literal is matched ASCII case-insensitively.
func BuildQuery(pattern string, caseSensitive bool) (*Node, error) {
	flags := ParseFlags
	if !caseSensitive {
		flags |= syntax.FoldCase
	}
	re, err := syntax.Parse(pattern, flags)
	if err != nil {
		return nil, err
	}
	return Build(re.Simplify()), nil
}

// Build reduces a parsed expression. Literals keep the case folding the
// parser recorded on them.
func Build(re *syntax.Regexp) *Node {
	switch re.Op {
	case syntax.OpCapture:
		return Build(re.Sub[0])
	case syntax.OpLiteral, syntax.OpCharClass:
		return buildConcat([]*syntax.Regexp{re})
	case syntax.OpConcat:
		return buildConcat(re.Sub)
	case syntax.OpAlternate:
		children := make([]*Node, 0, len(re.Sub))
		for _, sub := range re.Sub {
			children = append(children, Build(sub))
		}
		return Or(children...)
	default:
		return All()
	}
}

// literalRun accumulates adjacent single-character pieces of a
// concatenation into one string.
type literalRun struct {
	sb    strings.Builder
	fold  bool
	parts []*Node
}

func (r *literalRun) add(c rune, fold bool) {
	if r.sb.Len() > 0 && fold != r.fold {
		r.flush()
	}
	r.fold = fold
	if fold && 'A' <= c && c <= 'Z' {
		c += 'a' - 'A'
	}
	r.sb.WriteRune(c)
}

func (r *literalRun) flush() {
	if r.sb.Len() == 0 {
		return
	}
	r.parts = append(r.parts, newLiteral(r.sb.String(), r.fold))
	r.sb.Reset()
}

func (r *literalRun) push(n *Node) {
	r.flush()
	r.parts = append(r.parts, n)
}

func buildConcat(subs []*syntax.Regexp) *Node {
	var run literalRun
	for _, sub := range subs {
		for sub.Op == syntax.OpCapture {
			sub = sub.Sub[0]
		}
		switch sub.Op {
		case syntax.OpLiteral:
			fold := sub.Flags&syntax.FoldCase != 0
			for _, c := range sub.Rune {
				if fold && !asciiFoldable(c) {
					run.push(All())
					continue
				}
				run.add(c, fold)
			}
		case syntax.OpCharClass:
			c, fold, ok := singleCharacter(sub.Rune)
			if !ok {
				run.push(All())
				continue
			}
			run.add(c, fold)
		case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
			syntax.OpBeginText, syntax.OpEndText,
			syntax.OpWordBoundary, syntax.OpNoWordBoundary:
			// Zero-width; neighbouring literals stay contiguous.
		default:
			run.push(Build(sub))
		}
	}
	run.flush()
	return And(run.parts...)
}

func newLiteral(s string, fold bool) *Node {
	n := Lit(s)
	if n.Kind == KindLiteral {
		n.FoldCase = fold
	}
	return n
}

// asciiFoldable reports whether every case variant of c is ASCII, which is
// all the trigram index folds. k and s are not: their orbits include the
// Kelvin sign and the long s.
func asciiFoldable(c rune) bool {
	if unicode.SimpleFold(c) == c {
		return true
	}
	for f := c; ; {
		if f > unicode.MaxASCII {
			return false
		}
		if f = unicode.SimpleFold(f); f == c {
			return true
		}
	}
}

// singleCharacter recognizes classes that match one character: [x], and
// the ASCII case pair [Xx] a case-insensitive parse produces.
func singleCharacter(ranges []rune) (rune, bool, bool) {
	switch {
	case len(ranges) == 2 && ranges[0] == ranges[1]:
		return ranges[0], false, true
	case len(ranges) == 4 && ranges[0] == ranges[1] && ranges[2] == ranges[3] &&
		'A' <= ranges[0] && ranges[0] <= 'Z' && ranges[2] == ranges[0]+'a'-'A':
		return ranges[2], true, true
	default:
		return 0, false, false
	}
}
