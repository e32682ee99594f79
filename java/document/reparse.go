package document

import "github.com/dhamidi/jide/java/parser"

// enclosingBodies returns the method and type bodies whose content range
// contains [start, end] in the current tree, innermost first. A body's
// content lies between its braces, so an edit touching a brace is never
// contained.
func (d *Document) enclosingBodies(start, end int) []*parser.ParsedNode {
	var bodies []*parser.ParsedNode
	for n := containing(d.root, start, end); n != nil; n = containing(n, start, end) {
		if n.Kind == parser.KindMethodBody || n.Kind == parser.KindTypeBody {
			bodies = append([]*parser.ParsedNode{n}, bodies...)
		}
	}
	return bodies
}

// containing returns the child of n whose range includes [start, end].
// A child ending exactly at start qualifies, so insertions at the end of
// a body are found.
func containing(n *parser.ParsedNode, start, end int) *parser.ParsedNode {
	for _, pos := range []int{start - 1, start} {
		c, at := n.FindNodeAtOrAfter(pos)
		if c != nil && at <= start && end <= at+c.Size() {
			return c
		}
	}
	return nil
}

// reparseBody reparses the content of body after an edit that changed
// the text length by delta. The tree is patched only when the new
// content is still enclosed by its braces and the parse is bounded by
// them; syntax errors inside are kept like a full parse would keep them.
func (d *Document) reparseBody(body *parser.ParsedNode, delta int) (ReparseScope, bool) {
	start := body.Start()
	oldEnd := body.End()
	end := oldEnd + delta
	if start < 1 || d.text[start-1] != '{' || end >= len(d.text) || d.text[end] != '}' {
		return ReparseNone, false
	}

	scope := ReparseMethodBody
	typeKind := parser.TypeClass
	if body.Kind == parser.KindTypeBody {
		scope = ReparseTypeBody
		if owner := body.Parent(); owner != nil && owner.Type != nil {
			typeKind = owner.Type.Kind
		}
	}

	res := parser.ParseRegion(d.text, body.Kind, typeKind, start, end, d.lines.Position(start))
	if !res.Bounded {
		log.Debugf("%s: %s at %d is no longer bounded by its braces", d.path, scope, start)
		return ReparseNone, false
	}

	body.ReplaceChildren(res.Node)
	body.Refs = res.Node.Refs
	body.Values = res.Node.Values
	body.Errors = res.Node.Errors
	body.Resize(end - start)
	for a := body.Parent(); a != nil; a = a.Parent() {
		shiftErrors(a, oldEnd-a.Start(), delta)
		a.Resize(a.Size() + delta)
	}
	return scope, true
}

// shiftErrors moves errors recorded at or after the relative offset from.
func shiftErrors(n *parser.ParsedNode, from, delta int) {
	for i := range n.Errors {
		if n.Errors[i].Offset >= from {
			n.Errors[i].Offset += delta
		}
	}
}

// shiftRegions moves the header regions of a type node that lie at or
// after the relative offset from.
func shiftRegions(n *parser.ParsedNode, from, delta int) {
	if n.Type == nil {
		return
	}
	shift := func(r *parser.Region) {
		if r.Start >= from {
			r.Start += delta
		}
		if r.End >= from {
			r.End += delta
		}
	}
	f := n.Type
	shift(&f.NameRegion)
	shift(&f.ExtendsInsert)
	shift(&f.ImplementsInsert)
	for i := range f.Extends {
		shift(&f.Extends[i].Region)
	}
	for i := range f.Implements {
		shift(&f.Implements[i].Region)
	}
}
