package parser

import "strings"

// parseType parses a type and returns its normalized text: annotations
// dropped, generic arguments separated by ", " and array dimensions as
// "[]". Every class or interface name inside it is recorded as a type
// reference.
func (p *Parser) parseType() (string, bool) {
	for p.check(TokenAt) {
		p.parseAnnotation()
	}

	var sb strings.Builder
	tok := p.peek()
	switch {
	case isPrimitive(tok.Kind) || tok.Kind == TokenVoid:
		p.advance()
		sb.WriteString(tok.Literal)
	case isIdentKind(tok.Kind):
		if !p.parseClassType(&sb) {
			return sb.String(), false
		}
	default:
		return "", false
	}

	for {
		m := p.mark()
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
		if !(p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket) {
			p.reset(m)
			break
		}
		p.advance()
		p.advance()
		sb.WriteString("[]")
	}
	return sb.String(), true
}

// parseClassType parses Name [TypeArgs] { '.' Name [TypeArgs] } and
// records the dotted name without arguments as a reference.
func (p *Parser) parseClassType(sb *strings.Builder) bool {
	var name strings.Builder
	at := len(p.cur().Refs)
	ok := true
	for {
		tok := p.advance()
		name.WriteString(tok.Literal)
		sb.WriteString(tok.Literal)
		if p.check(TokenLT) {
			if !p.parseTypeArguments(sb) {
				ok = false
				break
			}
		}
		if !(p.check(TokenDot) && (isIdentKind(p.peekN(1).Kind) || p.peekN(1).Kind == TokenAt)) {
			break
		}
		p.advance()
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
		if !p.isIdentifierLike() {
			ok = false
			break
		}
		name.WriteByte('.')
		sb.WriteByte('.')
	}
	// The outer name is recorded before any argument names so that the
	// first reference of a type is its own name.
	p.insertRef(at, name.String())
	return ok
}

func (p *Parser) insertRef(at int, name string) {
	n := p.cur()
	n.Refs = append(n.Refs, TypeRef{})
	copy(n.Refs[at+1:], n.Refs[at:])
	n.Refs[at] = TypeRef{Name: name, Kind: RefType}
}

// parseTypeArguments parses '<' [args] '>'. The diamond "<>" is accepted.
func (p *Parser) parseTypeArguments(sb *strings.Builder) bool {
	p.advance() // <
	sb.WriteByte('<')
	if p.check(TokenGT) {
		p.advance()
		sb.WriteByte('>')
		return true
	}
	for {
		progress := p.mustProgress()
		for p.check(TokenAt) {
			p.parseAnnotation()
		}
		if p.accept(TokenQuestion) {
			sb.WriteByte('?')
			if p.check(TokenExtends) || p.check(TokenSuper) {
				sb.WriteString(" " + p.advance().Literal + " ")
				typ, ok := p.parseType()
				if !ok {
					return false
				}
				sb.WriteString(typ)
			}
		} else {
			typ, ok := p.parseType()
			if !ok {
				return false
			}
			sb.WriteString(typ)
		}
		if !p.accept(TokenComma) {
			break
		}
		sb.WriteString(", ")
		if !progress() {
			return false
		}
	}
	if !p.expectGT() {
		return false
	}
	sb.WriteByte('>')
	return true
}

// tryType parses a type speculatively. On failure nothing is consumed or
// recorded.
func (p *Parser) tryType() (string, bool) {
	m := p.mark()
	typ, ok := p.parseType()
	if !ok || p.failedSince(m) {
		p.reset(m)
		return "", false
	}
	return typ, true
}

// requireType parses a type and records an error when there is none.
func (p *Parser) requireType() string {
	typ, ok := p.parseType()
	if !ok {
		tok := p.peek()
		p.errorf(tok, "type expected, got %s", describe(tok))
	}
	return typ
}
