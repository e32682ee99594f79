package parser

import "strings"

func isAssignOp(kind TokenKind) bool {
	switch kind {
	case TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign,
		TokenSlashAssign, TokenAndAssign, TokenOrAssign, TokenXorAssign,
		TokenPercentAssign, TokenShlAssign, TokenShrAssign, TokenUShrAssign:
		return true
	}
	return false
}

func binaryPrec(kind TokenKind) int {
	switch kind {
	case TokenOr:
		return 1
	case TokenAnd:
		return 2
	case TokenBitOr:
		return 3
	case TokenBitXor:
		return 4
	case TokenBitAnd:
		return 5
	case TokenEQ, TokenNE:
		return 6
	case TokenLT, TokenGT, TokenLE, TokenGE, TokenInstanceof:
		return 7
	case TokenShl, TokenShr, TokenUShr:
		return 8
	case TokenPlus, TokenMinus:
		return 9
	case TokenStar, TokenSlash, TokenPercent:
		return 10
	}
	return 0
}

func (p *Parser) parseExpression() {
	if p.isLambda() {
		p.parseLambda()
		return
	}
	p.parseTernary()
	if isAssignOp(p.peek().Kind) {
		p.advance()
		p.parseExpression()
	}
}

func (p *Parser) parseTernary() {
	p.parseBinary(1)
	if p.accept(TokenQuestion) {
		p.parseExpression()
		p.expect(TokenColon)
		if p.isLambda() {
			p.parseLambda()
		} else {
			p.parseTernary()
		}
	}
}

func (p *Parser) parseBinary(minPrec int) {
	p.parseUnary()
	for {
		kind := p.peek().Kind
		prec := binaryPrec(kind)
		if prec == 0 || prec < minPrec {
			return
		}
		p.advance()
		if kind == TokenInstanceof {
			if p.isPattern() {
				p.parsePattern()
			} else {
				p.parseModifiers()
				p.requireType()
			}
			continue
		}
		p.parseBinary(prec + 1)
	}
}

func (p *Parser) parseUnary() {
	switch p.peek().Kind {
	case TokenPlus, TokenMinus, TokenIncrement, TokenDecrement, TokenNot, TokenBitNot:
		p.advance()
		p.parseUnary()
		return
	case TokenLParen:
		if !p.isLambda() && p.isCast() {
			p.parseCast()
			return
		}
	}
	p.parsePrimary()
	p.parseSuffixes()
}

// isCast looks past a parenthesized type to decide whether it is a cast.
// A reference type cast must be followed by something that can only
// start an operand, which rules out "(a) - b".
func (p *Parser) isCast() bool {
	m := p.mark()
	defer p.reset(m)

	p.advance() // (
	for p.check(TokenAt) {
		p.parseAnnotation()
	}
	primitive := isPrimitive(p.peek().Kind)
	if !primitive && !p.isIdentifierLike() {
		return false
	}
	if _, ok := p.tryType(); !ok {
		return false
	}
	for p.accept(TokenBitAnd) {
		if _, ok := p.tryType(); !ok {
			return false
		}
	}
	if !p.accept(TokenRParen) {
		return false
	}
	next := p.peek().Kind
	if primitive {
		return next != TokenDot && next != TokenColonColon && binaryPrec(next) == 0 ||
			next == TokenPlus || next == TokenMinus
	}
	switch next {
	case TokenLParen, TokenNot, TokenBitNot, TokenThis, TokenSuper, TokenNew, TokenSwitch:
		return true
	}
	return isIdentKind(next) || isLiteral(next)
}

func (p *Parser) parseCast() {
	p.advance() // (
	p.requireType()
	for p.accept(TokenBitAnd) {
		p.requireType()
	}
	p.expect(TokenRParen)
	if p.isLambda() {
		p.parseLambda()
		return
	}
	p.parseUnary()
}

// isLambda recognizes "x ->" and "( ... ) ->".
func (p *Parser) isLambda() bool {
	if p.caseLabel {
		return false
	}
	if p.isIdentifierLike() {
		return p.peekN(1).Kind == TokenArrow
	}
	if !p.check(TokenLParen) {
		return false
	}
	m := p.mark()
	defer p.reset(m)
	p.advance()
	depth := 1
	for depth > 0 && !p.check(TokenEOF) {
		switch p.peek().Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenLBrace, TokenRBrace, TokenSemicolon:
			return false
		}
		p.advance()
	}
	return p.check(TokenArrow)
}

func (p *Parser) parseLambda() {
	if p.isIdentifierLike() {
		p.value(p.advance().Literal)
	} else {
		p.advance() // (
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			p.parseModifiers()
			if p.isIdentifierLike() && (p.peekN(1).Kind == TokenComma || p.peekN(1).Kind == TokenRParen) {
				p.value(p.advance().Literal)
			} else {
				if p.check(TokenVar) {
					p.advance()
				} else {
					p.requireType()
				}
				p.accept(TokenEllipsis)
				if tok, ok := p.expectIdentifier(); ok {
					p.value(tok.Literal)
				}
				p.parseDims()
			}
			if !p.accept(TokenComma) {
				break
			}
			if !progress() {
				break
			}
		}
		p.expect(TokenRParen)
	}
	p.expect(TokenArrow)
	if p.check(TokenLBrace) {
		p.parseBlock()
		return
	}
	p.parseExpression()
}

func (p *Parser) parseArguments() {
	if p.expect(TokenLParen) == nil {
		return
	}
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseExpression()
		if !p.accept(TokenComma) {
			break
		}
		if !progress() {
			break
		}
	}
	if p.expect(TokenRParen) == nil {
		p.skipTo(TokenRParen, TokenSemicolon)
		p.accept(TokenRParen)
	}
}

func (p *Parser) parsePrimary() {
	tok := p.peek()
	switch {
	case isLiteral(tok.Kind):
		p.advance()
	case tok.Kind == TokenThis || tok.Kind == TokenSuper:
		p.advance()
		if p.check(TokenLParen) {
			p.parseArguments()
		}
	case tok.Kind == TokenNew:
		p.parseNew()
	case tok.Kind == TokenLParen:
		if p.isLambda() {
			p.parseLambda()
			return
		}
		p.advance()
		p.parseExpression()
		p.expect(TokenRParen)
	case tok.Kind == TokenSwitch:
		p.parseSwitch()
	case isPrimitive(tok.Kind) || tok.Kind == TokenVoid:
		p.advance()
		p.parseDims()
		if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
			p.advance()
			p.advance()
		} else if !p.check(TokenColonColon) {
			p.errorf(p.peek(), "'.class' expected, got %s", describe(p.peek()))
		}
	case isIdentKind(tok.Kind):
		if p.isLambda() {
			p.parseLambda()
			return
		}
		p.parseName()
	case tok.Kind == TokenError:
		p.errorf(tok, "illegal token %s", describe(tok))
		p.advance()
	default:
		p.errorf(tok, "expression expected, got %s", describe(tok))
	}
}

// parseName parses a dotted name in expression position and records what
// it can tell about the types it mentions.
func (p *Parser) parseName() {
	names := []string{p.advance().Literal}
	for p.check(TokenDot) && isIdentKind(p.peekN(1).Kind) {
		p.advance()
		names = append(names, p.advance().Literal)
	}
	chain := strings.Join(names, ".")
	qualifier := strings.Join(names[:len(names)-1], ".")

	switch {
	case p.check(TokenLParen):
		p.ref(qualifier, RefQualifier)
		p.parseArguments()
	case p.check(TokenDot):
		switch p.peekN(1).Kind {
		case TokenClass, TokenThis, TokenSuper:
			p.ref(chain, RefType)
			p.advance()
			p.advance()
		case TokenLT:
			// Type.<T>method()
			p.ref(chain, RefQualifier)
		default:
			p.ref(chain, RefQualifier)
		}
	case p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket:
		p.ref(chain, RefType)
		p.parseDims()
		if p.check(TokenDot) && p.peekN(1).Kind == TokenClass {
			p.advance()
			p.advance()
		} else if !p.check(TokenColonColon) {
			p.errorf(p.peek(), "'.class' expected, got %s", describe(p.peek()))
		}
	case p.check(TokenLT):
		// Type<Args>::method, otherwise a comparison.
		m := p.mark()
		var sb strings.Builder
		if p.parseTypeArguments(&sb) && !p.failedSince(m) {
			p.parseDims()
			if p.check(TokenColonColon) {
				p.ref(chain, RefType)
				return
			}
		}
		p.reset(m)
		p.ref(qualifier, RefQualifier)
	case p.check(TokenColonColon):
		p.ref(chain, RefQualifier)
	default:
		p.ref(qualifier, RefQualifier)
	}
}

func (p *Parser) parseSuffixes() {
	for {
		switch p.peek().Kind {
		case TokenDot:
			p.advance()
			switch {
			case p.check(TokenNew):
				p.parseInnerNew()
			case p.check(TokenLT):
				var sb strings.Builder
				p.parseTypeArguments(&sb)
				p.expectIdentifier()
				p.parseArguments()
			case p.isIdentifierLike():
				p.advance()
				if p.check(TokenLParen) {
					p.parseArguments()
				}
			case p.match(TokenThis, TokenClass, TokenSuper):
				p.advance()
				if p.check(TokenLParen) {
					p.parseArguments()
				}
			default:
				tok := p.peek()
				p.errorf(tok, "identifier expected, got %s", describe(tok))
				return
			}
		case TokenLBracket:
			p.advance()
			p.parseExpression()
			p.expect(TokenRBracket)
		case TokenIncrement, TokenDecrement:
			p.advance()
		case TokenColonColon:
			p.advance()
			if p.check(TokenLT) {
				var sb strings.Builder
				p.parseTypeArguments(&sb)
			}
			if !p.accept(TokenNew) {
				p.expectIdentifier()
			}
		default:
			return
		}
	}
}

func (p *Parser) parseNew() {
	p.advance() // new
	if p.check(TokenLT) {
		var sb strings.Builder
		p.parseTypeArguments(&sb)
	}
	for p.check(TokenAt) {
		p.parseAnnotation()
	}

	switch {
	case isPrimitive(p.peek().Kind):
		p.advance()
		if !p.check(TokenLBracket) {
			p.errorf(p.peek(), "'[' expected, got %s", describe(p.peek()))
			return
		}
		p.parseArrayCreation()
	case p.isIdentifierLike():
		var sb strings.Builder
		p.parseClassType(&sb)
		switch {
		case p.check(TokenLBracket):
			p.parseArrayCreation()
		case p.check(TokenLParen):
			p.parseArguments()
			if p.check(TokenLBrace) {
				p.parseAnonymousBody()
			}
		default:
			p.errorf(p.peek(), "'(' or '[' expected, got %s", describe(p.peek()))
		}
	default:
		tok := p.peek()
		p.errorf(tok, "type expected after new, got %s", describe(tok))
	}
}

func (p *Parser) parseArrayCreation() {
	for p.check(TokenLBracket) {
		p.advance()
		if !p.check(TokenRBracket) {
			p.parseExpression()
		}
		p.expect(TokenRBracket)
	}
	if p.check(TokenLBrace) {
		p.parseArrayInitializer()
	}
}

// parseInnerNew parses "new Inner(...)" after "outer.". The inner name is
// relative to the outer instance's type and is not recorded.
func (p *Parser) parseInnerNew() {
	p.advance() // new
	if p.check(TokenLT) {
		var sb strings.Builder
		p.parseTypeArguments(&sb)
	}
	p.expectIdentifier()
	if p.check(TokenLT) {
		var sb strings.Builder
		p.parseTypeArguments(&sb)
	}
	p.parseArguments()
	if p.check(TokenLBrace) {
		p.parseAnonymousBody()
	}
}
