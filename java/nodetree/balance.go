package nodetree

// rotateLeft lifts x.right into x's place. Offsets are rewritten so that
// no entry changes its absolute position.
func (t *Tree[T]) rotateLeft(x *Entry[T]) {
	y := x.right
	yOff := y.offset

	x.right = y.left
	if y.left != nil {
		y.left.parent = x
		y.left.offset += yOff
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y

	y.offset = x.offset + yOff
	x.offset = -yOff
}

func (t *Tree[T]) rotateRight(x *Entry[T]) {
	y := x.left
	yOff := y.offset

	x.left = y.right
	if y.right != nil {
		y.right.parent = x
		y.right.offset += yOff
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y

	y.offset = x.offset + yOff
	x.offset = -yOff
}

func isRed[T any](n *Entry[T]) bool {
	return n != nil && n.red
}

func (t *Tree[T]) insertFixup(z *Entry[T]) {
	for isRed(z.parent) {
		p := z.parent
		g := p.parent
		if p == g.left {
			u := g.right
			if isRed(u) {
				p.red = false
				u.red = false
				g.red = true
				z = g
				continue
			}
			if z == p.right {
				z = p
				t.rotateLeft(z)
				p = z.parent
			}
			p.red = false
			g.red = true
			t.rotateRight(g)
		} else {
			u := g.left
			if isRed(u) {
				p.red = false
				u.red = false
				g.red = true
				z = g
				continue
			}
			if z == p.left {
				z = p
				t.rotateRight(z)
				p = z.parent
			}
			p.red = false
			g.red = true
			t.rotateLeft(g)
		}
	}
	t.root.red = false
}

func (t *Tree[T]) deleteFixup(x, parent *Entry[T]) {
	for x != t.root && !isRed(x) {
		if parent == nil {
			break
		}
		if x == parent.left {
			w := parent.right
			if isRed(w) {
				w.red = false
				parent.red = true
				t.rotateLeft(parent)
				w = parent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.red = true
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.right) {
				w.left.red = false
				w.red = true
				t.rotateRight(w)
				w = parent.right
			}
			w.red = parent.red
			parent.red = false
			if w.right != nil {
				w.right.red = false
			}
			t.rotateLeft(parent)
			x = t.root
			parent = nil
		} else {
			w := parent.left
			if isRed(w) {
				w.red = false
				parent.red = true
				t.rotateRight(parent)
				w = parent.left
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.red = true
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.left) {
				w.right.red = false
				w.red = true
				t.rotateLeft(w)
				w = parent.left
			}
			w.red = parent.red
			parent.red = false
			if w.left != nil {
				w.left.red = false
			}
			t.rotateRight(parent)
			x = t.root
			parent = nil
		}
	}
	if x != nil {
		x.red = false
	}
}
