package parser

import "strings"

// TokenStream is the parser's view of a scan: significant tokens in one
// slice and comments on a hidden side channel keyed by the index of the
// token they precede.
type TokenStream struct {
	Tokens    []Token
	hidden    map[int][]Token
	Truncated bool
}

// Scan drains l into a TokenStream. The last token is always TokenEOF.
func Scan(l *Lexer) *TokenStream {
	s := &TokenStream{hidden: make(map[int][]Token)}
	for {
		tok := l.NextToken()
		if tok.Kind == TokenComment || tok.Kind == TokenLineComment {
			idx := len(s.Tokens)
			s.hidden[idx] = append(s.hidden[idx], tok)
			continue
		}
		s.Tokens = append(s.Tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	s.Truncated = l.Truncated()
	return s
}

func Tokenize(src []byte) *TokenStream {
	return Scan(NewLexer(src))
}

// CommentsBefore returns the comments between token i-1 and token i.
func (s *TokenStream) CommentsBefore(i int) []Token {
	return s.hidden[i]
}

// DocCommentBefore returns the javadoc comment attached to token i: the
// last comment before it, provided that comment starts with "/**".
func (s *TokenStream) DocCommentBefore(i int) (Token, bool) {
	comments := s.hidden[i]
	if len(comments) == 0 {
		return Token{}, false
	}
	last := comments[len(comments)-1]
	if last.Kind != TokenComment || !strings.HasPrefix(last.Literal, "/**") || last.Literal == "/**/" {
		return Token{}, false
	}
	return last, true
}

// Comments returns every hidden comment in source order.
func (s *TokenStream) Comments() []Token {
	var out []Token
	for i := 0; i <= len(s.Tokens); i++ {
		out = append(out, s.hidden[i]...)
	}
	return out
}

// DocText strips the comment delimiters and leading asterisks from a
// javadoc comment.
func DocText(comment string) string {
	text := strings.TrimPrefix(comment, "/**")
	text = strings.TrimSuffix(text, "*/")
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, " ")
		out = append(out, strings.TrimRight(line, " \t\r"))
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
