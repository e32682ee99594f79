// Package nodetree implements an offset-indexed red-black tree.
//
// Every entry covers the half-open range [start, start+size). Entries in
// one tree never overlap. Positions are not stored absolutely: each entry
// keeps its start relative to its parent entry, and the root keeps its
// start relative to the tree base. Shifting every entry after a point
// therefore touches only the path from that entry to the root.
package nodetree

// Tree is an ordered set of non-overlapping ranges carrying payloads of
// type T. The zero value is an empty tree.
type Tree[T any] struct {
	root *Entry[T]
	n    int
}

// Entry is one range in a Tree.
type Entry[T any] struct {
	Payload T

	offset int
	size   int

	tree                *Tree[T]
	parent, left, right *Entry[T]
	red                 bool
}

func (t *Tree[T]) Len() int {
	return t.n
}

// Clear removes all entries.
func (t *Tree[T]) Clear() {
	for e := t.First(); e != nil; {
		next := e.Next()
		e.tree = nil
		e.parent, e.left, e.right = nil, nil, nil
		e = next
	}
	t.root = nil
	t.n = 0
}

// Start returns the entry's start relative to the tree base.
func (e *Entry[T]) Start() int {
	pos := e.offset
	for p := e.parent; p != nil; p = p.parent {
		pos += p.offset
	}
	return pos
}

func (e *Entry[T]) Size() int {
	return e.size
}

func (e *Entry[T]) End() int {
	return e.Start() + e.size
}

// Tree returns the tree the entry belongs to, or nil once it has been
// removed.
func (e *Entry[T]) Tree() *Tree[T] {
	return e.tree
}

// Insert adds a range. The caller guarantees that [start, start+size) does
// not overlap an existing entry.
func (t *Tree[T]) Insert(payload T, start, size int) *Entry[T] {
	e := &Entry[T]{Payload: payload, size: size, tree: t, red: true}
	t.n++
	if t.root == nil {
		e.offset = start
		e.red = false
		t.root = e
		return e
	}

	n := t.root
	pos := n.offset
	for {
		if start < pos {
			if n.left == nil {
				n.left = e
				break
			}
			n = n.left
		} else {
			if n.right == nil {
				n.right = e
				break
			}
			n = n.right
		}
		pos += n.offset
	}
	e.parent = n
	e.offset = start - pos
	t.insertFixup(e)
	return e
}

// Remove detaches e from its tree. Positions of the remaining entries are
// unchanged.
func (t *Tree[T]) Remove(e *Entry[T]) {
	if e.tree != t {
		return
	}

	var x, xParent *Entry[T]
	moved := make([]*Entry[T], 0, 4)
	abs := make(map[*Entry[T]]int, 4)
	record := func(n *Entry[T]) {
		if n != nil {
			abs[n] = n.Start()
			moved = append(moved, n)
		}
	}

	y := e
	yRed := y.red
	switch {
	case e.left == nil:
		x = e.right
		xParent = e.parent
		record(x)
		t.transplant(e, e.right)
	case e.right == nil:
		x = e.left
		xParent = e.parent
		record(x)
		t.transplant(e, e.left)
	default:
		y = minimum(e.right)
		yRed = y.red
		x = y.right
		record(y)
		record(x)
		record(e.left)
		if y.parent == e {
			xParent = y
		} else {
			record(e.right)
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = e.right
			y.right.parent = y
		}
		t.transplant(e, y)
		y.left = e.left
		y.left.parent = y
		y.red = e.red
	}

	// Re-derive relative offsets for every entry that changed parent,
	// ancestors first so that Start() below sees settled values.
	for _, n := range orderByDepth(moved) {
		if n.parent == nil {
			n.offset = abs[n]
		} else {
			n.offset = abs[n] - n.parent.Start()
		}
	}

	e.tree = nil
	e.parent, e.left, e.right = nil, nil, nil
	t.n--

	if !yRed {
		t.deleteFixup(x, xParent)
	}
}

func orderByDepth[T any](nodes []*Entry[T]) []*Entry[T] {
	depth := func(n *Entry[T]) int {
		d := 0
		for p := n.parent; p != nil; p = p.parent {
			d++
		}
		return d
	}
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && depth(nodes[j]) < depth(nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
	return nodes
}

func (t *Tree[T]) transplant(u, v *Entry[T]) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

// FindNode returns the entry covering pos and its start, or nil.
func (t *Tree[T]) FindNode(pos int) (*Entry[T], int) {
	n := t.root
	if n == nil {
		return nil, 0
	}
	start := n.offset
	for n != nil {
		switch {
		case pos < start:
			n = n.left
		case pos < start+n.size:
			return n, start
		default:
			n = n.right
		}
		if n != nil {
			start += n.offset
		}
	}
	return nil, 0
}

// FindNodeAtOrAfter returns the first entry whose end lies beyond pos,
// which is either the entry covering pos or the next one after it. pos is
// relative to the tree base like every start in the tree; base is the
// absolute position of the tree base and is only added to the returned
// start.
func (t *Tree[T]) FindNodeAtOrAfter(pos, base int) (*Entry[T], int) {
	var best *Entry[T]
	bestStart := 0
	n := t.root
	if n == nil {
		return nil, 0
	}
	start := n.offset
	for n != nil {
		if start+n.size > pos {
			best, bestStart = n, base+start
			n = n.left
		} else {
			n = n.right
		}
		if n != nil {
			start += n.offset
		}
	}
	return best, bestStart
}

// Slide moves e and every entry after it by delta.
func (t *Tree[T]) Slide(e *Entry[T], delta int) {
	if e == nil || delta == 0 || e.tree != t {
		return
	}
	e.offset += delta
	if e.left != nil {
		e.left.offset -= delta
	}
	for c := e; c.parent != nil; c = c.parent {
		p := c.parent
		if c == p.left {
			p.offset += delta
			c.offset -= delta
		}
	}
}

// Resize sets the size of e and slides all following entries by the
// difference.
func (t *Tree[T]) Resize(e *Entry[T], size int) {
	delta := size - e.size
	e.size = size
	if delta != 0 {
		t.Slide(e.Next(), delta)
	}
}

func (t *Tree[T]) First() *Entry[T] {
	if t.root == nil {
		return nil
	}
	return minimum(t.root)
}

func (t *Tree[T]) Last() *Entry[T] {
	n := t.root
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// Entries returns all entries in order.
func (t *Tree[T]) Entries() []*Entry[T] {
	out := make([]*Entry[T], 0, t.n)
	for e := t.First(); e != nil; e = e.Next() {
		out = append(out, e)
	}
	return out
}

func (e *Entry[T]) Next() *Entry[T] {
	if e.right != nil {
		return minimum(e.right)
	}
	c, p := e, e.parent
	for p != nil && c == p.right {
		c, p = p, p.parent
	}
	return p
}

func (e *Entry[T]) Prev() *Entry[T] {
	if e.left != nil {
		n := e.left
		for n.right != nil {
			n = n.right
		}
		return n
	}
	c, p := e, e.parent
	for p != nil && c == p.left {
		c, p = p, p.parent
	}
	return p
}

func minimum[T any](n *Entry[T]) *Entry[T] {
	for n.left != nil {
		n = n.left
	}
	return n
}
