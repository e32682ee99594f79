package parser

import "fmt"

// Parser is a recursive descent parser over a TokenStream. It looks at
// most two tokens ahead; constructs that need more are decided by
// speculative parsing that rolls the token position back.
//
// The parser builds ParsedNodes directly. Facts found inside a node (type
// references, variable names, errors) are recorded on the innermost node
// under construction.
type Parser struct {
	src    []byte
	stream *TokenStream
	tokens []Token
	pos    int
	// split counts the '>' characters already consumed from tokens[pos]
	// when a shift operator closes nested type arguments.
	split   int
	lastEnd int
	// caseLabel is set while parsing a case label, where "A ->" is a
	// label followed by an arrow and not a lambda.
	caseLabel bool

	frames []frame
}

type frame struct {
	node  *ParsedNode
	start int
}

// mark is a saved parser state for backtracking.
type mark struct {
	pos, split, lastEnd  int
	refs, values, errors int
}

func newParser(src []byte, stream *TokenStream) *Parser {
	return &Parser{
		src:    src,
		stream: stream,
		tokens: stream.Tokens,
	}
}

// ParseFile parses a complete compilation unit. It never fails; syntax
// errors are recorded on the nodes where they occur.
func ParseFile(src []byte) *ParsedNode {
	p := newParser(src, Tokenize(src))
	return p.parseCompilationUnit()
}

// RegionResult is the outcome of reparsing the content of one body node.
type RegionResult struct {
	// Node is a detached body node positioned at the region start. Its
	// children are relative to that start.
	Node *ParsedNode
	// Bounded is true when the region scanned without truncation, its
	// braces balance and the parse stopped exactly at the closing brace
	// after the region. A bounded result, errors included, is what a
	// parse of the whole file produces for the same body.
	Bounded bool
	// Clean is true when the result is bounded and has no errors.
	Clean bool
}

// ParseRegion reparses src[start:end], the content between the braces of
// a method body (kind KindMethodBody) or a type body (kind KindTypeBody).
// typeKind is the kind of the type owning a type body. start must be
// described by its line and column, and src[end] must be the closing
// brace.
func ParseRegion(src []byte, kind NodeKind, typeKind TypeKind, start, end int, at Position) RegionResult {
	lexer := NewRegionLexer(src, start, end, at.Line, at.Column)
	stream := Scan(lexer)
	content := stream.Tokens[:len(stream.Tokens)-1]
	closeRegion(stream)
	p := newParser(src, stream)

	node := &ParsedNode{Kind: kind, size: end - start}
	p.push(node, start)
	switch kind {
	case KindMethodBody:
		p.parseBlockStatements()
	default:
		p.parseTypeBodyContent(typeKind)
	}
	closed := p.pos == len(p.tokens)-2 && p.split == 0
	p.pop()

	bounded := closed && !stream.Truncated && balanced(content)
	return RegionResult{Node: node, Bounded: bounded, Clean: bounded && !node.HadError()}
}

// closeRegion puts the brace that follows a region in front of the final
// EOF token, so the region parser sees the same tokens as a full parse.
func closeRegion(s *TokenStream) {
	eof := s.Tokens[len(s.Tokens)-1]
	end := eof.Span.Start
	end.Offset++
	end.Column++
	brace := Token{Kind: TokenRBrace, Literal: "}", Span: Span{Start: eof.Span.Start, End: end}}
	eof.Span = Span{Start: end, End: end}
	s.Tokens = append(s.Tokens[:len(s.Tokens)-1], brace, eof)
}

func balanced(tokens []Token) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// Token access

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	tok := p.tokens[p.pos]
	if p.split > 0 {
		return splitToken(tok, p.split)
	}
	return tok
}

func (p *Parser) peekN(n int) Token {
	if n == 0 {
		return p.peek()
	}
	if p.pos+n >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) && tok.Kind != TokenEOF {
		p.pos++
		p.split = 0
		p.lastEnd = tok.Span.End.Offset
	}
	return tok
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) match(kinds ...TokenKind) bool {
	k := p.peek().Kind
	for _, kind := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (p *Parser) accept(kind TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind TokenKind) *Token {
	tok := p.peek()
	if tok.Kind == kind {
		p.advance()
		return &tok
	}
	p.errorf(tok, "%s expected, got %s", kind, describe(tok))
	return nil
}

func describe(tok Token) string {
	if tok.Kind == TokenEOF {
		return "end of input"
	}
	return "'" + tok.Literal + "'"
}

func (p *Parser) isIdentifierLike() bool {
	return isIdentKind(p.peek().Kind)
}

func isIdentKind(kind TokenKind) bool {
	switch kind {
	case TokenIdent, TokenVar, TokenYield, TokenRecord,
		TokenSealed, TokenPermits:
		return true
	}
	return false
}

func (p *Parser) expectIdentifier() (Token, bool) {
	if p.isIdentifierLike() {
		return p.advance(), true
	}
	tok := p.peek()
	p.errorf(tok, "identifier expected, got %s", describe(tok))
	return tok, false
}

// expectGT consumes one '>' closing a type argument list, splitting
// '>>', '>>>' and their compound forms.
func (p *Parser) expectGT() bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenGT:
		p.advance()
		return true
	case TokenShr, TokenUShr, TokenGE, TokenShrAssign, TokenUShrAssign:
		p.split++
		p.lastEnd = tok.Span.Start.Offset + 1
		return true
	}
	p.errorf(tok, "'>' expected, got %s", describe(tok))
	return false
}

func splitToken(tok Token, n int) Token {
	literal := tok.Literal[n:]
	kind := TokenGT
	for _, op := range operators {
		if op.text == literal {
			kind = op.kind
			break
		}
	}
	start := tok.Span.Start
	start.Offset += n
	start.Column += n
	return Token{Kind: kind, Span: Span{Start: start, End: tok.Span.End}, Literal: literal}
}

// mustProgress returns a function that reports whether the parser has
// advanced since the call. If it has not, the current token is skipped so
// that loops always terminate.
func (p *Parser) mustProgress() func() bool {
	saved, savedSplit := p.pos, p.split
	return func() bool {
		if p.pos == saved && p.split == savedSplit {
			if !p.check(TokenEOF) {
				p.advance()
			}
			return false
		}
		return true
	}
}

// Backtracking

func (p *Parser) mark() mark {
	n := p.cur()
	return mark{
		pos:     p.pos,
		split:   p.split,
		lastEnd: p.lastEnd,
		refs:    len(n.Refs),
		values:  len(n.Values),
		errors:  len(n.Errors),
	}
}

func (p *Parser) reset(m mark) {
	n := p.cur()
	p.pos, p.split, p.lastEnd = m.pos, m.split, m.lastEnd
	n.Refs = n.Refs[:m.refs]
	n.Values = n.Values[:m.values]
	n.Errors = n.Errors[:m.errors]
}

func (p *Parser) failedSince(m mark) bool {
	return len(p.cur().Errors) > m.errors
}

// Node construction

func (p *Parser) cur() *ParsedNode {
	return p.frames[len(p.frames)-1].node
}

func (p *Parser) curStart() int {
	return p.frames[len(p.frames)-1].start
}

func (p *Parser) push(n *ParsedNode, start int) {
	p.frames = append(p.frames, frame{node: n, start: start})
}

func (p *Parser) pop() frame {
	f := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]
	return f
}

// begin opens a node at the absolute offset start. Facts are recorded on
// it until the matching finish.
func (p *Parser) begin(kind NodeKind, start int) *ParsedNode {
	n := &ParsedNode{Kind: kind}
	p.push(n, start)
	return n
}

// finish closes the innermost node at the absolute offset end and links it
// into its parent.
func (p *Parser) finish(end int) *ParsedNode {
	f := p.pop()
	if end < f.start {
		end = f.start
	}
	parent := p.frames[len(p.frames)-1]
	parent.node.addChild(f.node, f.start-parent.start, end-f.start)
	return f.node
}

// rel converts an absolute offset to one relative to the innermost node.
func (p *Parser) rel(offset int) int {
	return offset - p.curStart()
}

func (p *Parser) ref(name string, kind RefKind) {
	if name == "" {
		return
	}
	n := p.cur()
	n.Refs = append(n.Refs, TypeRef{Name: name, Kind: kind})
}

func (p *Parser) value(name string) {
	if name == "" || name == "_" {
		return
	}
	n := p.cur()
	n.Values = append(n.Values, name)
}

func (p *Parser) errorf(tok Token, format string, args ...any) {
	n := p.cur()
	offset := tok.Span.Start.Offset
	if tok.Kind == TokenEOF && offset == 0 {
		offset = p.lastEnd
	}
	n.Errors = append(n.Errors, ParseError{
		Offset:  offset - p.curStart(),
		Message: fmt.Sprintf(format, args...),
	})
}

// Recovery

// skipTo advances until one of kinds is the current token, skipping over
// balanced parentheses, brackets and braces. It never consumes a '}' that
// closes an enclosing block.
func (p *Parser) skipTo(kinds ...TokenKind) {
	depth := 0
	for !p.check(TokenEOF) {
		k := p.peek().Kind
		if depth == 0 {
			for _, kind := range kinds {
				if k == kind {
					return
				}
			}
		}
		switch k {
		case TokenLBrace, TokenLParen, TokenLBracket:
			depth++
		case TokenRBrace, TokenRParen, TokenRBracket:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

// skipToDecl is skipTo that also stops before a type declaration, with
// its modifiers and annotations, at the outermost level. A typo ahead of
// a class then does not swallow the class.
func (p *Parser) skipToDecl(kinds ...TokenKind) {
	depth := 0
	for !p.check(TokenEOF) {
		k := p.peek().Kind
		if depth == 0 {
			for _, kind := range kinds {
				if k == kind {
					return
				}
			}
			if p.atTypeDecl() {
				return
			}
		}
		switch k {
		case TokenLBrace, TokenLParen, TokenLBracket:
			depth++
		case TokenRBrace, TokenRParen, TokenRBracket:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

// atTypeDecl reports whether a type declaration starts at the current
// token. Nothing is consumed.
func (p *Parser) atTypeDecl() bool {
	k := p.peek().Kind
	if k != TokenAt && !isModifier(k) {
		return p.startsTypeDecl()
	}
	m := p.mark()
	defer p.reset(m)
	p.parseModifiers()
	return p.startsTypeDecl()
}

// recoverDecl skips a malformed declaration up to its ';' or past its
// block, or up to the next type declaration.
func (p *Parser) recoverDecl() {
	p.skipToDecl(TokenSemicolon, TokenLBrace)
	if p.check(TokenLBrace) {
		p.skipBlock()
	} else {
		p.accept(TokenSemicolon)
	}
}

// recoverStatement skips to the end of the current statement.
func (p *Parser) recoverStatement() {
	p.skipTo(TokenSemicolon, TokenRBrace)
	p.accept(TokenSemicolon)
}
