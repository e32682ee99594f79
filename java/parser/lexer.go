package parser

// Lexer turns Java source into tokens. It never fails: bytes that do not
// start a token come back as TokenError and scanning continues after them.
//
// A lexer may be bounded to a region of a larger buffer. Offsets, lines
// and columns are always reported relative to the whole buffer, so tokens
// from a region scan are interchangeable with tokens from a full scan.
type Lexer struct {
	input  []byte
	limit  int
	pos    int
	line   int
	column int

	// truncated is set when a token or comment reached the limit before
	// its terminator.
	truncated bool
}

func NewLexer(input []byte) *Lexer {
	return &Lexer{
		input:  input,
		limit:  len(input),
		line:   1,
		column: 1,
	}
}

// NewRegionLexer scans input[start:end]. start must be described by line
// and column so that reported positions match a full scan.
func NewRegionLexer(input []byte, start, end int, line, column int) *Lexer {
	if end > len(input) {
		end = len(input)
	}
	return &Lexer{
		input:  input,
		limit:  end,
		pos:    start,
		line:   line,
		column: column,
	}
}

func (l *Lexer) Position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// Truncated reports whether the scan stopped inside an unterminated
// comment, string or text block at the region limit.
func (l *Lexer) Truncated() bool {
	return l.truncated
}

func (l *Lexer) peek() byte {
	if l.pos >= l.limit {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= l.limit {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= l.limit
}

func (l *Lexer) advance() byte {
	if l.pos >= l.limit {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r', '\n', '\f':
			l.advance()
		default:
			return
		}
	}
}

// NextToken returns the next token, comments included. Whitespace is
// skipped.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	startPos := l.Position()

	if l.atEnd() {
		return Token{Kind: TokenEOF, Span: Span{Start: startPos, End: startPos}}
	}

	ch := l.peek()

	if ch == '/' && l.peekN(1) == '/' {
		return l.scanLineComment(startPos)
	}
	if ch == '/' && l.peekN(1) == '*' {
		return l.scanBlockComment(startPos)
	}
	if isJavaLetter(ch) {
		return l.scanIdentOrKeyword(startPos)
	}
	if isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))) {
		return l.scanNumber(startPos)
	}
	if ch == '\'' {
		return l.scanCharLiteral(startPos)
	}
	if ch == '"' {
		if l.peekN(1) == '"' && l.peekN(2) == '"' {
			return l.scanTextBlock(startPos)
		}
		return l.scanStringLiteral(startPos)
	}
	return l.scanOperator(startPos)
}

func (l *Lexer) scanLineComment(start Position) Token {
	l.advanceN(2)
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	if l.atEnd() && l.limit < len(l.input) {
		l.truncated = true
	}
	return l.token(TokenLineComment, start)
}

func (l *Lexer) scanBlockComment(start Position) Token {
	l.advanceN(2)
	for {
		if l.atEnd() {
			l.truncated = true
			return l.token(TokenError, start)
		}
		if l.peek() == '*' && l.peekN(1) == '/' {
			l.advanceN(2)
			break
		}
		l.advance()
	}
	return l.token(TokenComment, start)
}

func (l *Lexer) scanIdentOrKeyword(start Position) Token {
	for isJavaLetterOrDigit(l.peek()) {
		l.advance()
	}
	literal := string(l.input[start.Offset:l.pos])

	if literal == "non" && l.peek() == '-' {
		rest := l.input[l.pos:l.limit]
		if len(rest) >= 7 && string(rest[:7]) == "-sealed" && (len(rest) == 7 || !isJavaLetterOrDigit(rest[7])) {
			l.advanceN(7)
			return l.token(TokenNonSealed, start)
		}
	}

	return Token{
		Kind:    LookupKeyword(literal),
		Span:    Span{Start: start, End: l.Position()},
		Literal: literal,
	}
}

// scanDigits consumes digits and underscores and returns the number of
// digits.
func (l *Lexer) scanDigits(valid func(byte) bool) int {
	n := 0
	for valid(l.peek()) || l.peek() == '_' {
		if l.advance() != '_' {
			n++
		}
	}
	return n
}

// scanExponent consumes an optional sign and the exponent digits after
// 'e' or 'p'. It reports whether there was at least one digit.
func (l *Lexer) scanExponent() bool {
	l.advance()
	if l.peek() == '+' || l.peek() == '-' {
		l.advance()
	}
	return l.scanDigits(isDigit) > 0
}

// scanNumber scans a numeric literal. Literals without digits where the
// grammar needs some, such as "0x", "0b" or "1e", come back as
// TokenError.
func (l *Lexer) scanNumber(start Position) Token {
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.advanceN(2)
		digits := l.scanDigits(isHexDigit)
		isFloat := false
		if l.peek() == '.' {
			isFloat = true
			l.advance()
			digits += l.scanDigits(isHexDigit)
		}
		ok := digits > 0
		if l.peek() == 'p' || l.peek() == 'P' {
			ok = l.scanExponent() && ok
		} else if isFloat {
			// A hexadecimal float needs its binary exponent.
			ok = false
		}
		return l.numberSuffix(start, isFloat, ok)
	}
	if l.peek() == '0' && (l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.advanceN(2)
		digits := l.scanDigits(func(ch byte) bool { return ch == '0' || ch == '1' })
		return l.numberSuffix(start, false, digits > 0)
	}

	isFloat := false
	ok := true
	l.scanDigits(isDigit)
	if l.peek() == '.' && (isDigit(l.peekN(1)) || !isJavaLetter(l.peekN(1)) && l.peekN(1) != '.') {
		isFloat = true
		l.advance()
		l.scanDigits(isDigit)
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		isFloat = true
		ok = l.scanExponent()
	}
	return l.numberSuffix(start, isFloat, ok)
}

func (l *Lexer) numberSuffix(start Position, isFloat, ok bool) Token {
	switch l.peek() {
	case 'f', 'F', 'd', 'D':
		isFloat = true
		l.advance()
	case 'l', 'L':
		if !isFloat {
			l.advance()
		}
	}
	switch {
	case !ok:
		return l.token(TokenError, start)
	case isFloat:
		return l.token(TokenFloatLiteral, start)
	}
	return l.token(TokenIntLiteral, start)
}

func (l *Lexer) scanQuoted(quote byte) bool {
	l.advance()
	for {
		ch := l.peek()
		switch {
		case l.atEnd():
			l.truncated = true
			return false
		case ch == '\n':
			return false
		case ch == '\\':
			l.advance()
			if l.atEnd() {
				l.truncated = true
				return false
			}
			l.advance()
		case ch == quote:
			l.advance()
			return true
		default:
			l.advance()
		}
	}
}

func (l *Lexer) scanCharLiteral(start Position) Token {
	if !l.scanQuoted('\'') {
		return l.token(TokenError, start)
	}
	return l.token(TokenCharLiteral, start)
}

func (l *Lexer) scanStringLiteral(start Position) Token {
	if !l.scanQuoted('"') {
		return l.token(TokenError, start)
	}
	return l.token(TokenStringLiteral, start)
}

func (l *Lexer) scanTextBlock(start Position) Token {
	l.advanceN(3)
	for {
		if l.atEnd() {
			l.truncated = true
			return l.token(TokenError, start)
		}
		if l.peek() == '"' && l.peekN(1) == '"' && l.peekN(2) == '"' {
			l.advanceN(3)
			return l.token(TokenTextBlock, start)
		}
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
}

type operator struct {
	text string
	kind TokenKind
}

// operators is ordered so that longer spellings are tried first.
var operators = []operator{
	{">>>=", TokenUShrAssign},
	{"<<=", TokenShlAssign},
	{">>=", TokenShrAssign},
	{">>>", TokenUShr},
	{"...", TokenEllipsis},
	{"::", TokenColonColon},
	{"->", TokenArrow},
	{"==", TokenEQ},
	{"<=", TokenLE},
	{">=", TokenGE},
	{"!=", TokenNE},
	{"&&", TokenAnd},
	{"||", TokenOr},
	{"++", TokenIncrement},
	{"--", TokenDecrement},
	{"+=", TokenPlusAssign},
	{"-=", TokenMinusAssign},
	{"*=", TokenStarAssign},
	{"/=", TokenSlashAssign},
	{"&=", TokenAndAssign},
	{"|=", TokenOrAssign},
	{"^=", TokenXorAssign},
	{"%=", TokenPercentAssign},
	{"<<", TokenShl},
	{">>", TokenShr},
	{"(", TokenLParen},
	{")", TokenRParen},
	{"{", TokenLBrace},
	{"}", TokenRBrace},
	{"[", TokenLBracket},
	{"]", TokenRBracket},
	{";", TokenSemicolon},
	{",", TokenComma},
	{".", TokenDot},
	{"@", TokenAt},
	{"=", TokenAssign},
	{">", TokenGT},
	{"<", TokenLT},
	{"!", TokenNot},
	{"~", TokenBitNot},
	{"?", TokenQuestion},
	{":", TokenColon},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenStar},
	{"/", TokenSlash},
	{"&", TokenBitAnd},
	{"|", TokenBitOr},
	{"^", TokenBitXor},
	{"%", TokenPercent},
}

func (l *Lexer) scanOperator(start Position) Token {
	for _, op := range operators {
		if l.hasPrefix(op.text) {
			l.advanceN(len(op.text))
			return l.token(op.kind, start)
		}
	}
	l.advance()
	return l.token(TokenError, start)
}

func (l *Lexer) hasPrefix(s string) bool {
	if l.pos+len(s) > l.limit {
		return false
	}
	return string(l.input[l.pos:l.pos+len(s)]) == s
}

func (l *Lexer) token(kind TokenKind, start Position) Token {
	end := l.Position()
	return Token{
		Kind:    kind,
		Span:    Span{Start: start, End: end},
		Literal: string(l.input[start.Offset:end.Offset]),
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Bytes of multi-byte UTF-8 sequences are treated as letters, which
// accepts every non-ASCII identifier javac accepts and a few it does not.
func isJavaLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$' || ch >= 0x80
}

func isJavaLetterOrDigit(ch byte) bool {
	return isJavaLetter(ch) || isDigit(ch)
}
