package document

import (
	"strings"

	"github.com/dhamidi/jide/java/parser"
)

// comment is a comment token of the old text and its edited literal.
type comment struct {
	tok     parser.Token
	literal string
}

// commentAround finds the comment holding the edit [from, to] of the
// current text. It succeeds only when the comment stays one comment of
// the same kind after inserted replaces the range, so the parse tree does
// not change beyond sizes. bodies are the enclosing bodies of the edit,
// innermost first; the innermost one bounds the scan.
func (d *Document) commentAround(bodies []*parser.ParsedNode, from, to int, inserted string) (comment, bool) {
	start, end := 0, len(d.text)
	if len(bodies) > 0 {
		start, end = bodies[0].Start(), bodies[0].End()
	}
	at := d.lines.Position(start)
	lexer := parser.NewRegionLexer(d.text, start, end, at.Line, at.Column)
	for {
		tok := lexer.NextToken()
		if tok.Kind == parser.TokenEOF || tok.Span.Start.Offset > from {
			return comment{}, false
		}
		if tok.Span.End.Offset < to {
			continue
		}
		if tok.Kind != parser.TokenComment && tok.Kind != parser.TokenLineComment {
			return comment{}, false
		}
		// Errors at the end of input sit after a trailing comment without
		// belonging to a node around it.
		if len(bodies) == 0 && nextSignificant(lexer).Kind == parser.TokenEOF {
			return comment{}, false
		}
		return editComment(tok, from, to, inserted)
	}
}

func nextSignificant(l *parser.Lexer) parser.Token {
	for {
		tok := l.NextToken()
		if tok.Kind != parser.TokenComment && tok.Kind != parser.TokenLineComment {
			return tok
		}
	}
}

func editComment(tok parser.Token, from, to int, inserted string) (comment, bool) {
	lit, base := tok.Literal, tok.Span.Start.Offset
	// Delimiters stay untouched.
	if from-base < 2 || tok.Kind == parser.TokenComment && to > tok.Span.End.Offset-2 {
		return comment{}, false
	}
	edited := lit[:from-base] + inserted + lit[to-base:]
	if isDoc(tok, lit) != isDoc(tok, edited) {
		return comment{}, false
	}

	l := parser.NewLexer([]byte(edited))
	first, next := l.NextToken(), l.NextToken()
	if first.Kind != tok.Kind || first.Span.End.Offset != len(edited) || next.Kind != parser.TokenEOF || l.Truncated() {
		return comment{}, false
	}
	return comment{tok: tok, literal: edited}, true
}

func isDoc(tok parser.Token, lit string) bool {
	return tok.Kind == parser.TokenComment && strings.HasPrefix(lit, "/**") && lit != "/**/"
}

// patchLeaf resizes the innermost node holding the edited comment and its
// ancestors by delta and slides the nodes after the edit. A javadoc node
// takes the new text. An error is recorded at the token that exposed it,
// which may lie past the end of its node, so the nodes ending before the
// comment have their errors shifted too.
func (d *Document) patchLeaf(c comment, offset, removed, delta int) {
	n := d.root
	for {
		child := n.FindChild(offset)
		if child == nil || offset+removed >= child.End() {
			break
		}
		n = child
	}
	if n.Kind == parser.KindComment && n.Start() == c.tok.Span.Start.Offset {
		n.Text = parser.DocText(c.literal)
	}

	n.SlideChildren(offset+removed-n.Start(), delta)
	for a := n; a != nil; a = a.Parent() {
		rel := offset - a.Start()
		shiftErrors(a, rel, delta)
		shiftRegions(a, rel, delta)
		for b := a.ChildBefore(offset); b != nil; b = b.ChildBefore(offset) {
			shiftErrors(b, offset-b.Start(), delta)
		}
		a.Resize(a.Size() + delta)
	}
}
