package parser

// parseBlockStatements parses statements up to a closing '}' or the end of
// input, leaving the '}' unconsumed.
func (p *Parser) parseBlockStatements() {
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseBlockStatement()
		progress()
	}
}

func (p *Parser) parseBlock() {
	if p.expect(TokenLBrace) == nil {
		p.recoverStatement()
		return
	}
	p.parseBlockStatements()
	p.expect(TokenRBrace)
}

func (p *Parser) parseBlockStatement() {
	if p.isLocalTypeDecl() {
		p.parseMember(TypeClass, false)
		return
	}
	if p.isLocalVarDecl() {
		p.parseLocalVarDecl()
		if p.expect(TokenSemicolon) == nil {
			p.recoverStatement()
		}
		return
	}
	p.parseStatement()
}

// isLocalTypeDecl reports whether a local class, interface, enum or record
// declaration starts here.
func (p *Parser) isLocalTypeDecl() bool {
	switch p.peek().Kind {
	case TokenClass, TokenInterface, TokenEnum, TokenAbstract, TokenStatic, TokenStrictfp, TokenFinal, TokenAt, TokenRecord, TokenSealed, TokenNonSealed:
	default:
		return false
	}
	m := p.mark()
	defer p.reset(m)
	p.parseModifiers()
	return p.startsTypeDecl()
}

// isLocalVarDecl decides between a declaration and an expression by
// parsing a type speculatively and checking that a name follows.
func (p *Parser) isLocalVarDecl() bool {
	m := p.mark()
	defer p.reset(m)

	p.parseModifiers()
	if p.check(TokenVar) && isIdentKind(p.peekN(1).Kind) {
		return true
	}
	if !isPrimitive(p.peek().Kind) && !p.isIdentifierLike() {
		return false
	}
	if _, ok := p.tryType(); !ok {
		return false
	}
	return p.isIdentifierLike()
}

// parseLocalVarDecl parses modifiers, a type and declarators without the
// terminating ';'.
func (p *Parser) parseLocalVarDecl() {
	p.parseModifiers()
	if p.check(TokenVar) && isIdentKind(p.peekN(1).Kind) {
		p.advance()
	} else {
		p.requireType()
	}
	for {
		tok, ok := p.expectIdentifier()
		if !ok {
			return
		}
		p.value(tok.Literal)
		p.parseDims()
		if p.accept(TokenAssign) {
			p.parseVariableInitializer()
		}
		if !p.accept(TokenComma) {
			return
		}
	}
}

func (p *Parser) parseStatement() {
	tok := p.peek()
	switch tok.Kind {
	case TokenLBrace:
		p.parseBlock()
	case TokenSemicolon:
		p.advance()
	case TokenIf:
		p.advance()
		p.parseParenExpression()
		p.parseStatement()
		if p.accept(TokenElse) {
			p.parseStatement()
		}
	case TokenWhile:
		p.advance()
		p.parseParenExpression()
		p.parseStatement()
	case TokenDo:
		p.advance()
		p.parseStatement()
		p.expect(TokenWhile)
		p.parseParenExpression()
		p.expectSemicolon()
	case TokenFor:
		p.parseFor()
	case TokenTry:
		p.parseTry()
	case TokenSwitch:
		p.parseSwitch()
	case TokenReturn:
		p.advance()
		if !p.check(TokenSemicolon) {
			p.parseExpression()
		}
		p.expectSemicolon()
	case TokenThrow:
		p.advance()
		p.parseExpression()
		p.expectSemicolon()
	case TokenBreak, TokenContinue:
		p.advance()
		if p.isIdentifierLike() {
			p.advance()
		}
		p.expectSemicolon()
	case TokenSynchronized:
		p.advance()
		p.parseParenExpression()
		p.parseBlock()
	case TokenAssert:
		p.advance()
		p.parseExpression()
		if p.accept(TokenColon) {
			p.parseExpression()
		}
		p.expectSemicolon()
	case TokenYield:
		if p.isYieldStatement() {
			p.advance()
			p.parseExpression()
			p.expectSemicolon()
			return
		}
		p.parseExpressionStatement()
	case TokenElse, TokenCatch, TokenFinally, TokenCase, TokenDefault:
		p.errorf(tok, "unexpected %s", describe(tok))
		p.advance()
		p.recoverStatement()
	default:
		if p.isIdentifierLike() && p.peekN(1).Kind == TokenColon {
			p.advance()
			p.advance()
			p.parseStatement()
			return
		}
		p.parseExpressionStatement()
	}
}

func (p *Parser) isYieldStatement() bool {
	switch p.peekN(1).Kind {
	case TokenAssign, TokenDot, TokenLBracket, TokenIncrement, TokenDecrement,
		TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
		TokenSemicolon:
		return false
	}
	return true
}

func (p *Parser) expectSemicolon() {
	if p.expect(TokenSemicolon) == nil {
		p.recoverStatement()
	}
}

func (p *Parser) parseExpressionStatement() {
	tok := p.peek()
	if tok.Kind == TokenRBrace || tok.Kind == TokenEOF {
		return
	}
	m := p.mark()
	p.parseExpression()
	if p.pos == m.pos {
		p.errorf(tok, "statement expected, got %s", describe(tok))
		p.advance()
		p.recoverStatement()
		return
	}
	p.expectSemicolon()
}

func (p *Parser) parseParenExpression() {
	if p.expect(TokenLParen) == nil {
		p.skipTo(TokenLBrace, TokenSemicolon)
		return
	}
	p.parseExpression()
	if p.expect(TokenRParen) == nil {
		p.skipTo(TokenRParen, TokenLBrace, TokenSemicolon)
		p.accept(TokenRParen)
	}
}

func (p *Parser) parseFor() {
	p.advance() // for
	if p.expect(TokenLParen) == nil {
		p.recoverStatement()
		return
	}

	if p.isLocalVarDecl() {
		m := p.mark()
		p.parseModifiers()
		if p.check(TokenVar) {
			p.advance()
		} else {
			p.requireType()
		}
		if tok, ok := p.expectIdentifier(); ok && p.check(TokenColon) {
			p.value(tok.Literal)
			p.advance()
			p.parseExpression()
			p.expect(TokenRParen)
			p.parseStatement()
			return
		}
		p.reset(m)
		p.parseLocalVarDecl()
	} else if !p.check(TokenSemicolon) {
		p.parseExpressionList()
	}

	p.expect(TokenSemicolon)
	if !p.check(TokenSemicolon) {
		p.parseExpression()
	}
	p.expect(TokenSemicolon)
	if !p.check(TokenRParen) {
		p.parseExpressionList()
	}
	if p.expect(TokenRParen) == nil {
		p.skipTo(TokenRParen, TokenLBrace)
		p.accept(TokenRParen)
	}
	p.parseStatement()
}

func (p *Parser) parseExpressionList() {
	p.parseExpression()
	for p.accept(TokenComma) {
		p.parseExpression()
	}
}

func (p *Parser) parseTry() {
	tryTok := p.advance()
	hasResources := p.check(TokenLParen)
	if p.accept(TokenLParen) {
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			if p.isLocalVarDecl() {
				p.parseLocalVarDecl()
			} else {
				p.parseExpression()
			}
			if !p.accept(TokenSemicolon) {
				break
			}
			if !progress() {
				break
			}
		}
		p.expect(TokenRParen)
	}
	p.parseBlock()

	sawHandler := false
	for p.check(TokenCatch) {
		sawHandler = true
		p.advance()
		if p.expect(TokenLParen) != nil {
			p.parseModifiers()
			p.requireType()
			for p.accept(TokenBitOr) {
				p.requireType()
			}
			if tok, ok := p.expectIdentifier(); ok {
				p.value(tok.Literal)
			}
			p.expect(TokenRParen)
		}
		p.parseBlock()
	}
	if p.accept(TokenFinally) {
		sawHandler = true
		p.parseBlock()
	}
	if !sawHandler && !hasResources {
		p.errorf(tryTok, "'catch' or 'finally' expected")
	}
}

// parseSwitch parses a switch statement or expression; both share the
// same shape.
func (p *Parser) parseSwitch() {
	p.advance() // switch
	p.parseParenExpression()
	if p.expect(TokenLBrace) == nil {
		p.recoverStatement()
		return
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseSwitchCase()
		progress()
	}
	p.expect(TokenRBrace)
}

func (p *Parser) parseSwitchCase() {
	switch {
	case p.accept(TokenDefault):
	case p.accept(TokenCase):
		for {
			progress := p.mustProgress()
			p.parseCaseLabel()
			if !p.accept(TokenComma) {
				break
			}
			if !progress() {
				break
			}
		}
		if p.isIdentifierLike() && p.peek().Literal == "when" {
			p.advance()
			p.parseExpression()
		}
	default:
		tok := p.peek()
		p.errorf(tok, "'case' or 'default' expected, got %s", describe(tok))
		p.advance()
		return
	}

	switch {
	case p.accept(TokenArrow):
		switch {
		case p.check(TokenLBrace):
			p.parseBlock()
		case p.check(TokenThrow):
			p.parseStatement()
		default:
			p.parseExpression()
			p.expectSemicolon()
		}
	case p.accept(TokenColon):
		for !p.match(TokenCase, TokenDefault, TokenRBrace, TokenEOF) {
			progress := p.mustProgress()
			p.parseBlockStatement()
			progress()
		}
	default:
		tok := p.peek()
		p.errorf(tok, "':' or '->' expected, got %s", describe(tok))
		p.skipTo(TokenCase, TokenDefault)
	}
}

// parseCaseLabel parses a constant expression, null, default, or a type
// or record pattern.
func (p *Parser) parseCaseLabel() {
	if p.accept(TokenDefault) {
		return
	}
	if p.isPattern() {
		p.parsePattern()
		return
	}
	p.caseLabel = true
	p.parseTernary()
	p.caseLabel = false
}

// isPattern reports whether a type pattern (Type name) or a record
// pattern (Type '(') starts here.
func (p *Parser) isPattern() bool {
	m := p.mark()
	defer p.reset(m)
	p.parseModifiers()
	if !isPrimitive(p.peek().Kind) && !p.isIdentifierLike() {
		return false
	}
	if _, ok := p.tryType(); !ok {
		return false
	}
	return p.isIdentifierLike() || p.check(TokenLParen)
}

func (p *Parser) parsePattern() {
	p.parseModifiers()
	if p.check(TokenVar) && isIdentKind(p.peekN(1).Kind) {
		p.advance()
	} else {
		p.requireType()
	}
	if p.accept(TokenLParen) {
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			p.parsePattern()
			if !p.accept(TokenComma) {
				break
			}
			if !progress() {
				break
			}
		}
		p.expect(TokenRParen)
		if p.isIdentifierLike() && p.peek().Literal != "when" {
			p.value(p.advance().Literal)
		}
		return
	}
	if tok, ok := p.expectIdentifier(); ok {
		p.value(tok.Literal)
	}
}
