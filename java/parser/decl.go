package parser

import "strings"

func (p *Parser) parseCompilationUnit() *ParsedNode {
	root := &ParsedNode{Kind: KindCompilationUnit, size: len(p.src)}
	p.push(root, 0)
	defer p.pop()

	if p.isAnnotatedPackage() {
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
	}
	if p.check(TokenPackage) {
		p.parsePackageDecl()
	}
	for p.check(TokenImport) {
		p.parseImportDecl()
	}

	for !p.check(TokenEOF) {
		progress := p.mustProgress()
		switch {
		case p.check(TokenSemicolon):
			p.advance()
		case p.check(TokenRBrace):
			p.errorf(p.peek(), "unexpected '}'")
			p.advance()
		case p.check(TokenImport) || p.check(TokenPackage):
			p.errorf(p.peek(), "%s not allowed here", p.peek().Kind)
			p.advance()
			p.skipToDecl(TokenSemicolon)
			p.accept(TokenSemicolon)
		default:
			p.parseMember(TypeClass, true)
		}
		progress()
	}
	return root
}

func (p *Parser) isAnnotatedPackage() bool {
	if !p.check(TokenAt) {
		return false
	}
	m := p.mark()
	defer p.reset(m)
	for p.check(TokenAt) {
		p.parseAnnotation()
	}
	return p.check(TokenPackage)
}

func (p *Parser) parsePackageDecl() {
	start := p.peek().Span.Start.Offset
	n := p.begin(KindPackage, start)
	p.advance()
	n.Name = p.parseQualifiedName()
	p.expect(TokenSemicolon)
	p.finish(p.lastEnd)
}

func (p *Parser) parseImportDecl() {
	start := p.peek().Span.Start.Offset
	n := p.begin(KindImport, start)
	p.advance()
	if p.accept(TokenStatic) {
		n.Static = true
	}
	n.Name = p.parseQualifiedName()
	if p.check(TokenDot) && p.peekN(1).Kind == TokenStar {
		p.advance()
		p.advance()
		n.Wildcard = true
	}
	if p.expect(TokenSemicolon) == nil {
		p.skipToDecl(TokenSemicolon, TokenImport)
		p.accept(TokenSemicolon)
	}
	p.finish(p.lastEnd)
}

// parseQualifiedName reads Ident { '.' Ident }. It stops before ".*".
func (p *Parser) parseQualifiedName() string {
	tok, ok := p.expectIdentifier()
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(tok.Literal)
	for p.check(TokenDot) && isIdentKind(p.peekN(1).Kind) {
		p.advance()
		sb.WriteByte('.')
		sb.WriteString(p.advance().Literal)
	}
	return sb.String()
}

// parseModifiers consumes modifiers and annotations. Annotation names are
// recorded as type references on the current node.
func (p *Parser) parseModifiers() Modifiers {
	var mods Modifiers
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenAt && p.peekN(1).Kind != TokenInterface:
			p.parseAnnotation()
		case tok.Kind == TokenSealed || tok.Kind == TokenNonSealed:
			// "sealed" is only a modifier when a declaration follows.
			next := p.peekN(1).Kind
			if !isModifier(next) && next != TokenClass && next != TokenInterface && next != TokenAt && !isIdentKind(next) {
				return mods
			}
			mods |= modifierBits[tok.Kind]
			p.advance()
		case tok.Kind == TokenDefault && p.peekN(1).Kind == TokenColon:
			return mods
		case isModifier(tok.Kind):
			mods |= modifierBits[tok.Kind]
			p.advance()
		default:
			return mods
		}
	}
}

func (p *Parser) parseAnnotation() {
	p.advance() // @
	name := p.parseQualifiedName()
	p.ref(name, RefType)
	if p.check(TokenLParen) {
		p.advance()
		for !p.check(TokenRParen) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			if p.isIdentifierLike() && p.peekN(1).Kind == TokenAssign {
				p.advance()
				p.advance()
			}
			p.parseElementValue()
			if !p.accept(TokenComma) {
				break
			}
			if !progress() {
				break
			}
		}
		p.expect(TokenRParen)
	}
}

func (p *Parser) parseElementValue() {
	switch {
	case p.check(TokenAt):
		p.parseAnnotation()
	case p.check(TokenLBrace):
		p.advance()
		for !p.check(TokenRBrace) && !p.check(TokenEOF) {
			progress := p.mustProgress()
			p.parseElementValue()
			if !p.accept(TokenComma) {
				break
			}
			if !progress() {
				break
			}
		}
		p.expect(TokenRBrace)
	default:
		p.parseTernary()
	}
}

// parseTypeParameters reads '<' T [extends A & B] {, ...} '>' and returns
// the declared names. Bounds are recorded as references.
func (p *Parser) parseTypeParameters() []string {
	var names []string
	p.advance() // <
	for {
		progress := p.mustProgress()
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
		tok, ok := p.expectIdentifier()
		if !ok {
			p.skipTo(TokenGT, TokenLBrace, TokenLParen)
			p.accept(TokenGT)
			return names
		}
		names = append(names, tok.Literal)
		if p.accept(TokenExtends) {
			p.requireType()
			for p.accept(TokenBitAnd) {
				p.requireType()
			}
		}
		if !p.accept(TokenComma) {
			break
		}
		if !progress() {
			break
		}
	}
	p.expectGT()
	return names
}

// startsTypeDecl reports whether the tokens after the modifiers begin a
// class, interface, enum, record or annotation type declaration.
func (p *Parser) startsTypeDecl() bool {
	switch p.peek().Kind {
	case TokenClass, TokenInterface, TokenEnum:
		return true
	case TokenAt:
		return p.peekN(1).Kind == TokenInterface
	case TokenRecord:
		return isIdentKind(p.peekN(1).Kind) && (p.peekN(2).Kind == TokenLParen || p.peekN(2).Kind == TokenLT)
	}
	return false
}

// memberStart returns the absolute start of the member at the current
// token, including its javadoc comment.
func (p *Parser) memberStart() (int, *Token) {
	start := p.peek().Span.Start.Offset
	if p.split == 0 {
		if doc, ok := p.stream.DocCommentBefore(p.pos); ok {
			return doc.Span.Start.Offset, &doc
		}
	}
	return start, nil
}

func (p *Parser) attachDoc(doc *Token) {
	if doc == nil {
		return
	}
	c := &ParsedNode{Kind: KindComment, Text: DocText(doc.Literal)}
	p.cur().addChild(c, p.rel(doc.Span.Start.Offset), doc.Span.Len())
}

// parseMember parses one member of a type body, or a top-level type
// declaration when topLevel is set. ownerKind is the kind of the
// enclosing type.
func (p *Parser) parseMember(ownerKind TypeKind, topLevel bool) {
	if p.check(TokenSemicolon) {
		p.advance()
		return
	}
	start, doc := p.memberStart()

	if !topLevel && (p.check(TokenLBrace) || p.check(TokenStatic) && p.peekN(1).Kind == TokenLBrace) {
		n := p.begin(KindInitializer, start)
		p.attachDoc(doc)
		n.Name = "<init>"
		if p.accept(TokenStatic) {
			n.Name = "<clinit>"
		}
		p.parseMethodBody()
		p.finish(p.lastEnd)
		return
	}

	n := p.begin(KindField, start)
	p.attachDoc(doc)
	mods := p.parseModifiers()

	switch {
	case p.startsTypeDecl():
		n.Kind = KindTypeDef
		p.parseTypeDeclRest(n, mods)
		p.finish(p.lastEnd)
		return
	case topLevel:
		tok := p.peek()
		p.errorf(tok, "class, interface, enum, or record expected, got %s", describe(tok))
		p.recoverDecl()
		p.finish(p.lastEnd)
		return
	}

	var typeParams []string
	if p.check(TokenLT) {
		typeParams = p.parseTypeParameters()
	}

	// Constructor: Ident '('. Compact record constructor: Ident '{'.
	if p.isIdentifierLike() && (p.peekN(1).Kind == TokenLParen ||
		ownerKind == TypeRecord && p.peekN(1).Kind == TokenLBrace) {
		n.Kind = KindMethod
		n.Method = &MethodFacts{Constructor: true, Modifiers: mods, TypeParams: typeParams}
		n.Name = p.advance().Literal
		p.parseMethodRest(n)
		p.finish(p.lastEnd)
		return
	}

	typ, ok := p.parseType()
	if !ok {
		tok := p.peek()
		p.errorf(tok, "member declaration expected, got %s", describe(tok))
		p.recoverDecl()
		p.finish(p.lastEnd)
		return
	}

	nameTok, ok := p.expectIdentifier()
	if !ok {
		p.recoverStatement()
		p.finish(p.lastEnd)
		return
	}

	if p.check(TokenLParen) {
		n.Kind = KindMethod
		n.Name = nameTok.Literal
		n.Method = &MethodFacts{Modifiers: mods, TypeParams: typeParams, ReturnType: typ}
		p.parseMethodRest(n)
		p.finish(p.lastEnd)
		return
	}

	if typeParams != nil {
		p.errorf(nameTok, "'(' expected")
	}
	n.Name = nameTok.Literal
	p.parseFieldRest(nameTok.Literal)
	p.finish(p.lastEnd)
}

// parseTypeDeclRest parses a type declaration from its keyword onwards
// into n, which is already open.
func (p *Parser) parseTypeDeclRest(n *ParsedNode, mods Modifiers) {
	facts := &TypeFacts{Modifiers: mods}
	n.Type = facts
	switch p.peek().Kind {
	case TokenClass:
		facts.Kind = TypeClass
	case TokenInterface:
		facts.Kind = TypeInterface
	case TokenEnum:
		facts.Kind = TypeEnum
	case TokenRecord:
		facts.Kind = TypeRecord
	case TokenAt:
		facts.Kind = TypeAnnotation
		p.advance()
	}
	p.advance()

	nameTok, ok := p.expectIdentifier()
	if !ok {
		p.skipTo(TokenLBrace, TokenSemicolon)
		if p.check(TokenLBrace) {
			p.skipBlock()
		}
		return
	}
	n.Name = nameTok.Literal
	facts.NameRegion = Region{Start: p.rel(nameTok.Span.Start.Offset), End: p.rel(nameTok.Span.End.Offset)}

	if p.check(TokenLT) {
		facts.TypeParams = p.parseTypeParameters()
	}
	if facts.Kind == TypeRecord && p.check(TokenLParen) {
		p.parseRecordHeader()
	}

	insert := p.rel(p.lastEnd)
	facts.ExtendsInsert = Region{Start: insert, End: insert}

	if p.accept(TokenExtends) {
		facts.Extends = p.parseSupertypes()
		if facts.Kind != TypeInterface && len(facts.Extends) > 1 {
			p.errorf(p.peek(), "a class can extend only one class")
		}
	}

	insert = p.rel(p.lastEnd)
	facts.ImplementsInsert = Region{Start: insert, End: insert}
	if p.accept(TokenImplements) {
		facts.Implements = p.parseSupertypes()
		insert = p.rel(p.lastEnd)
		facts.ImplementsInsert = Region{Start: insert, End: insert}
	}

	if p.accept(TokenPermits) {
		p.requireType()
		for p.accept(TokenComma) {
			p.requireType()
		}
	}

	p.parseTypeBody(facts.Kind)
}

func (p *Parser) parseRecordHeader() {
	p.advance() // (
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseModifiers()
		p.requireType()
		p.accept(TokenEllipsis)
		if tok, ok := p.expectIdentifier(); ok {
			p.value(tok.Literal)
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

func (p *Parser) parseSupertypes() []Supertype {
	var out []Supertype
	for {
		progress := p.mustProgress()
		start := p.peek().Span.Start.Offset
		before := len(p.cur().Refs)
		if _, ok := p.parseType(); !ok {
			tok := p.peek()
			p.errorf(tok, "type expected, got %s", describe(tok))
			break
		}
		name := ""
		if refs := p.cur().Refs; len(refs) > before {
			name = refs[before].Name
		}
		out = append(out, Supertype{
			Name:   name,
			Region: Region{Start: p.rel(start), End: p.rel(p.lastEnd)},
		})
		if !p.accept(TokenComma) {
			break
		}
		if !progress() {
			break
		}
	}
	return out
}

// parseTypeBody parses '{' members '}' into a TypeBody child spanning the
// content between the braces.
func (p *Parser) parseTypeBody(kind TypeKind) {
	lbrace := p.expect(TokenLBrace)
	if lbrace == nil {
		p.skipTo(TokenLBrace, TokenSemicolon)
		if !p.check(TokenLBrace) {
			return
		}
		tok := p.advance()
		lbrace = &tok
	}
	p.begin(KindTypeBody, lbrace.Span.End.Offset)
	p.parseTypeBodyContent(kind)
	end := p.peek().Span.Start.Offset
	if !p.check(TokenRBrace) {
		p.errorf(p.peek(), "'}' expected, got %s", describe(p.peek()))
		end = p.lastEnd
	}
	p.finish(end)
	p.accept(TokenRBrace)
}

// parseTypeBodyContent parses members up to a closing '}' or the end of
// input, leaving the '}' unconsumed.
func (p *Parser) parseTypeBodyContent(kind TypeKind) {
	if kind == TypeEnum {
		p.parseEnumConstants()
	}
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseMember(kind, false)
		progress()
	}
}

func (p *Parser) parseEnumConstants() {
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		if p.accept(TokenSemicolon) {
			return
		}
		progress := p.mustProgress()
		start, doc := p.memberStart()
		n := p.begin(KindField, start)
		p.attachDoc(doc)
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
		tok, ok := p.expectIdentifier()
		if !ok {
			p.skipTo(TokenComma, TokenSemicolon)
			p.finish(p.lastEnd)
			p.accept(TokenComma)
			if !progress() {
				return
			}
			continue
		}
		n.Name = tok.Literal
		if p.check(TokenLParen) {
			p.parseArguments()
		}
		if p.check(TokenLBrace) {
			p.parseAnonymousBody()
		}
		p.finish(p.lastEnd)
		if !p.accept(TokenComma) {
			p.accept(TokenSemicolon)
			return
		}
	}
}

// parseAnonymousBody parses an anonymous class body into a TypeDef child
// of the current node.
func (p *Parser) parseAnonymousBody() {
	start := p.peek().Span.Start.Offset
	n := p.begin(KindTypeDef, start)
	n.Type = &TypeFacts{Kind: TypeAnonymous}
	p.parseTypeBody(TypeAnonymous)
	p.finish(p.lastEnd)
}

// parseMethodRest parses from the parameter list to the end of a method or
// constructor.
func (p *Parser) parseMethodRest(n *ParsedNode) {
	facts := n.Method
	if p.check(TokenLParen) {
		facts.Params = p.parseFormalParameters()
	}
	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		p.advance()
		p.advance()
		facts.ReturnType += "[]"
	}
	if p.accept(TokenThrows) {
		p.requireType()
		for p.accept(TokenComma) {
			p.requireType()
		}
	}
	switch {
	case p.check(TokenLBrace):
		p.parseMethodBody()
	case p.accept(TokenDefault):
		p.parseElementValue()
		p.expect(TokenSemicolon)
	case p.accept(TokenSemicolon):
	default:
		tok := p.peek()
		p.errorf(tok, "'{' or ';' expected, got %s", describe(tok))
		p.skipTo(TokenSemicolon, TokenLBrace)
		if p.check(TokenLBrace) {
			p.parseMethodBody()
		} else {
			p.accept(TokenSemicolon)
		}
	}
}

func (p *Parser) parseFormalParameters() []Param {
	var params []Param
	p.advance() // (
	for !p.check(TokenRParen) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseModifiers()
		typ, ok := p.parseType()
		if !ok {
			tok := p.peek()
			p.errorf(tok, "parameter type expected, got %s", describe(tok))
			p.skipTo(TokenComma, TokenRParen)
		} else {
			if p.accept(TokenEllipsis) {
				typ += "..."
			}
			switch {
			case p.check(TokenThis):
				// receiver parameter
				p.advance()
			case p.isIdentifierLike() && p.peekN(1).Kind == TokenDot && p.peekN(2).Kind == TokenThis:
				p.advance()
				p.advance()
				p.advance()
			default:
				name, ok := p.expectIdentifier()
				if ok {
					typ += p.parseDims()
					params = append(params, Param{Type: typ, Name: name.Literal})
					p.value(name.Literal)
				}
			}
		}
		if !p.accept(TokenComma) {
			break
		}
		if !progress() {
			break
		}
	}
	if p.expect(TokenRParen) == nil {
		p.skipTo(TokenRParen, TokenLBrace, TokenSemicolon)
		p.accept(TokenRParen)
	}
	return params
}

// parseDims consumes legacy array brackets after a declarator name.
func (p *Parser) parseDims() string {
	dims := ""
	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		p.advance()
		p.advance()
		dims += "[]"
	}
	return dims
}

// parseMethodBody parses '{' statements '}' into a MethodBody child
// spanning the content between the braces.
func (p *Parser) parseMethodBody() {
	lbrace := p.advance()
	p.begin(KindMethodBody, lbrace.Span.End.Offset)
	p.parseBlockStatements()
	end := p.peek().Span.Start.Offset
	if !p.check(TokenRBrace) {
		p.errorf(p.peek(), "'}' expected, got %s", describe(p.peek()))
		end = p.lastEnd
	}
	p.finish(end)
	p.accept(TokenRBrace)
}

func (p *Parser) parseFieldRest(first string) {
	p.value(first)
	p.parseDims()
	if p.accept(TokenAssign) {
		p.parseVariableInitializer()
	}
	for p.accept(TokenComma) {
		tok, ok := p.expectIdentifier()
		if !ok {
			break
		}
		p.value(tok.Literal)
		p.parseDims()
		if p.accept(TokenAssign) {
			p.parseVariableInitializer()
		}
	}
	if p.expect(TokenSemicolon) == nil {
		p.recoverStatement()
	}
}

func (p *Parser) parseVariableInitializer() {
	if p.check(TokenLBrace) {
		p.parseArrayInitializer()
		return
	}
	p.parseExpression()
}

func (p *Parser) parseArrayInitializer() {
	p.advance() // {
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		progress := p.mustProgress()
		p.parseVariableInitializer()
		if !p.accept(TokenComma) {
			break
		}
		if !progress() {
			break
		}
	}
	p.expect(TokenRBrace)
}

// skipBlock skips a balanced '{' ... '}' block.
func (p *Parser) skipBlock() {
	depth := 0
	for !p.check(TokenEOF) {
		switch p.advance().Kind {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			depth--
			if depth == 0 {
				return
			}
		}
	}
}
