package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenKind
	}{
		{"", []TokenKind{TokenEOF}},
		{"public class Main {}", []TokenKind{TokenPublic, TokenClass, TokenIdent, TokenLBrace, TokenRBrace, TokenEOF}},
		{"123 3.14 0x1F 1L 1e3 .5f", []TokenKind{TokenIntLiteral, TokenFloatLiteral, TokenIntLiteral, TokenIntLiteral, TokenFloatLiteral, TokenFloatLiteral, TokenEOF}},
		{"\"hi\" 'a' \"\"\"\ntext\"\"\"", []TokenKind{TokenStringLiteral, TokenCharLiteral, TokenTextBlock, TokenEOF}},
		{"a >>>= b >> c -> d :: e ...", []TokenKind{TokenIdent, TokenUShrAssign, TokenIdent, TokenShr, TokenIdent, TokenArrow, TokenIdent, TokenColonColon, TokenIdent, TokenEllipsis, TokenEOF}},
		{"non-sealed sealed record var", []TokenKind{TokenNonSealed, TokenSealed, TokenRecord, TokenVar, TokenEOF}},
		{"non - sealed", []TokenKind{TokenIdent, TokenMinus, TokenSealed, TokenEOF}},
		{"0x1.8p1 1e-3 0b101 0x7fL 1_000", []TokenKind{TokenFloatLiteral, TokenFloatLiteral, TokenIntLiteral, TokenIntLiteral, TokenIntLiteral, TokenEOF}},
		{"0x 0b 1e 1e+ 0x1.8 0x1p 0x.p1", []TokenKind{TokenError, TokenError, TokenError, TokenError, TokenError, TokenError, TokenError, TokenEOF}},
		{"# x", []TokenKind{TokenError, TokenIdent, TokenEOF}},
		{"a // c\nb /* d */ c", []TokenKind{TokenIdent, TokenIdent, TokenIdent, TokenEOF}},
		{"\"open\nx", []TokenKind{TokenError, TokenIdent, TokenEOF}},
		{"héllo", []TokenKind{TokenIdent, TokenEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := kinds(Tokenize([]byte(tt.input)).Tokens)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("token kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	src := []byte("class A {\n  int x;\n}")
	toks := Tokenize(src).Tokens
	intTok := toks[3]
	if intTok.Kind != TokenInt {
		t.Fatalf("toks[3] = %s, want int", intTok)
	}
	want := Position{Offset: 12, Line: 2, Column: 3}
	if intTok.Span.Start != want {
		t.Errorf("int starts at %+v, want %+v", intTok.Span.Start, want)
	}
	if intTok.Span.End.Offset != 15 {
		t.Errorf("int ends at %d, want 15", intTok.Span.End.Offset)
	}
}

func TestRegionLexer(t *testing.T) {
	src := []byte("class A {\n  int x;\n}")

	t.Run("positions match a full scan", func(t *testing.T) {
		stream := Scan(NewRegionLexer(src, 10, len(src), 2, 1))
		full := Tokenize(src).Tokens
		if diff := cmp.Diff(full[3:], stream.Tokens); diff != "" {
			t.Errorf("region tokens differ (-full +region):\n%s", diff)
		}
	})

	tests := []struct {
		name      string
		src       string
		start     int
		end       int
		truncated bool
	}{
		{"complete", "x /* abc */ y", 0, 13, false},
		{"block comment cut", "x /* abc */ y", 0, 6, true},
		{"line comment cut", "a // c\nb", 0, 5, true},
		{"line comment at end of input", "a // c", 0, 6, false},
		{"string cut", "s = \"abc\";", 0, 7, true},
		{"text block cut", "s = \"\"\"\nabc\"\"\";", 0, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := Scan(NewRegionLexer([]byte(tt.src), tt.start, tt.end, 1, 1))
			if stream.Truncated != tt.truncated {
				t.Errorf("Truncated = %v, want %v", stream.Truncated, tt.truncated)
			}
		})
	}
}

func TestDocComments(t *testing.T) {
	src := []byte("/* plain */\n/**\n * Adds two numbers.\n * @param a first\n */\nint add(int a);\n// line\nint other;")
	stream := Tokenize(src)

	doc, ok := stream.DocCommentBefore(0)
	if !ok {
		t.Fatal("expected a doc comment before the first token")
	}
	if got, want := DocText(doc.Literal), "Adds two numbers.\n@param a first"; got != want {
		t.Errorf("DocText = %q, want %q", got, want)
	}
	if n := len(stream.CommentsBefore(0)); n != 2 {
		t.Errorf("CommentsBefore(0) has %d comments, want 2", n)
	}

	// "int other" follows a line comment, which is not javadoc.
	idx := -1
	for i, tok := range stream.Tokens {
		if tok.Literal == "other" {
			idx = i - 1
		}
	}
	if _, ok := stream.DocCommentBefore(idx); ok {
		t.Error("a line comment must not count as javadoc")
	}
	if n := len(stream.Comments()); n != 3 {
		t.Errorf("Comments() has %d comments, want 3", n)
	}
}

func TestTokenKindString(t *testing.T) {
	tests := []struct {
		kind TokenKind
		want string
	}{
		{TokenEOF, "EOF"},
		{TokenIdent, "identifier"},
		{TokenClass, "class"},
		{TokenNonSealed, "non-sealed"},
		{TokenShrAssign, ">>="},
		{TokenKind(9999), "TokenKind(9999)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
