package parser

import (
	"fmt"

	"github.com/dhamidi/jide/java/nodetree"
)

type NodeKind int

const (
	KindCompilationUnit NodeKind = iota
	KindPackage
	KindImport
	KindTypeDef
	KindTypeBody
	KindField
	KindMethod
	KindInitializer
	KindMethodBody
	KindComment
)

var nodeKindNames = map[NodeKind]string{
	KindCompilationUnit: "CompilationUnit",
	KindPackage:         "Package",
	KindImport:          "Import",
	KindTypeDef:         "TypeDef",
	KindTypeBody:        "TypeBody",
	KindField:           "Field",
	KindMethod:          "Method",
	KindInitializer:     "Initializer",
	KindMethodBody:      "MethodBody",
	KindComment:         "Comment",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

type TypeKind int

const (
	TypeClass TypeKind = iota
	TypeInterface
	TypeEnum
	TypeRecord
	TypeAnnotation
	TypeAnonymous
)

type Modifiers uint32

const (
	ModPublic Modifiers = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModAbstract
	ModFinal
	ModNative
	ModSynchronized
	ModTransient
	ModVolatile
	ModStrictfp
	ModDefault
	ModSealed
	ModNonSealed
)

var modifierBits = map[TokenKind]Modifiers{
	TokenPublic:       ModPublic,
	TokenProtected:    ModProtected,
	TokenPrivate:      ModPrivate,
	TokenStatic:       ModStatic,
	TokenAbstract:     ModAbstract,
	TokenFinal:        ModFinal,
	TokenNative:       ModNative,
	TokenSynchronized: ModSynchronized,
	TokenTransient:    ModTransient,
	TokenVolatile:     ModVolatile,
	TokenStrictfp:     ModStrictfp,
	TokenDefault:      ModDefault,
	TokenSealed:       ModSealed,
	TokenNonSealed:    ModNonSealed,
}

func (m Modifiers) Has(bit Modifiers) bool {
	return m&bit != 0
}

type RefKind int

const (
	// RefType is a name in a position where only a type can appear.
	RefType RefKind = iota
	// RefQualifier is a dotted name used as the qualifier of a field
	// access or method call. It names a type only when its first segment
	// is not a variable in scope.
	RefQualifier
)

type TypeRef struct {
	Name string
	Kind RefKind
}

// Region is a byte range relative to the start of the node holding it.
type Region struct {
	Start int
	End   int
}

type ParseError struct {
	// Offset is relative to the node that recorded the error.
	Offset  int
	Message string
}

type Supertype struct {
	Name   string
	Region Region
}

type TypeFacts struct {
	Kind       TypeKind
	Modifiers  Modifiers
	TypeParams []string
	NameRegion Region
	Extends    []Supertype
	Implements []Supertype
	// ExtendsInsert and ImplementsInsert are empty regions marking where
	// a new clause entry is inserted.
	ExtendsInsert    Region
	ImplementsInsert Region
}

type Param struct {
	Type string
	Name string
}

type MethodFacts struct {
	Constructor bool
	Modifiers   Modifiers
	TypeParams  []string
	ReturnType  string
	Params      []Param
}

// ParsedNode is one structural node of a parsed source file. Children are
// kept in an offset tree relative to the node's own start, so moving a
// node never touches its descendants.
type ParsedNode struct {
	Kind NodeKind
	// Name is the declared name for types, members and packages and the
	// imported name for imports.
	Name string
	// Text holds the stripped javadoc text of comment nodes.
	Text     string
	Static   bool
	Wildcard bool

	Type   *TypeFacts
	Method *MethodFacts

	// Refs are type references that occur in this node's own text and
	// not in any child.
	Refs []TypeRef
	// Values are variable names declared in this node that shadow type
	// names used as qualifiers.
	Values []string
	Errors []ParseError

	parent   *ParsedNode
	entry    *nodetree.Entry[*ParsedNode]
	children nodetree.Tree[*ParsedNode]
	size     int
}

func (n *ParsedNode) Parent() *ParsedNode {
	return n.parent
}

// Start returns the absolute offset of the node.
func (n *ParsedNode) Start() int {
	pos := 0
	for c := n; c.entry != nil; c = c.parent {
		pos += c.entry.Start()
	}
	return pos
}

func (n *ParsedNode) Size() int {
	if n.entry != nil {
		return n.entry.Size()
	}
	return n.size
}

func (n *ParsedNode) End() int {
	return n.Start() + n.Size()
}

func (n *ParsedNode) Children() []*ParsedNode {
	entries := n.children.Entries()
	out := make([]*ParsedNode, len(entries))
	for i, e := range entries {
		out[i] = e.Payload
	}
	return out
}

func (n *ParsedNode) NumChildren() int {
	return n.children.Len()
}

// FindChild returns the child covering the absolute offset pos.
func (n *ParsedNode) FindChild(pos int) *ParsedNode {
	e, _ := n.children.FindNode(pos - n.Start())
	if e == nil {
		return nil
	}
	return e.Payload
}

// FindNodeAtOrAfter returns the child covering pos or the first child
// after it, with its absolute start.
func (n *ParsedNode) FindNodeAtOrAfter(pos int) (*ParsedNode, int) {
	base := n.Start()
	e, start := n.children.FindNodeAtOrAfter(pos-base, base)
	if e == nil {
		return nil, 0
	}
	return e.Payload, start
}

// ChildBefore returns the last child ending at or before the absolute
// offset pos.
func (n *ParsedNode) ChildBefore(pos int) *ParsedNode {
	e, _ := n.children.FindNodeAtOrAfter(pos-n.Start(), 0)
	if e == nil {
		e = n.children.Last()
	} else {
		e = e.Prev()
	}
	if e == nil {
		return nil
	}
	return e.Payload
}

// NodeAt returns the path of nodes covering pos, outermost first.
func (n *ParsedNode) NodeAt(pos int) []*ParsedNode {
	if pos < n.Start() || pos > n.End() {
		return nil
	}
	path := []*ParsedNode{n}
	for c := n.FindChild(pos); c != nil; c = c.FindChild(pos) {
		path = append(path, c)
	}
	return path
}

func (n *ParsedNode) addChild(child *ParsedNode, start, size int) {
	child.parent = n
	child.entry = n.children.Insert(child, start, size)
}

// Resize changes the node's size. Following siblings shift by the
// difference; ancestors are not touched.
func (n *ParsedNode) Resize(size int) {
	if n.entry == nil {
		n.size = size
		return
	}
	n.parent.children.Resize(n.entry, size)
}

// SlideChildren shifts every child starting at or after the relative
// offset from by delta.
func (n *ParsedNode) SlideChildren(from, delta int) {
	e, _ := n.children.FindNodeAtOrAfter(from, 0)
	for e != nil && e.Start() < from {
		e = e.Next()
	}
	if e != nil {
		n.children.Slide(e, delta)
	}
}

// ReplaceChildren discards all children and adopts those of src, keeping
// their relative positions. src is left empty.
func (n *ParsedNode) ReplaceChildren(src *ParsedNode) {
	n.children.Clear()
	for _, e := range src.children.Entries() {
		child := e.Payload
		n.addChild(child, e.Start(), e.Size())
	}
	src.children.Clear()
}

// HadError reports whether n or any descendant recorded a parse error.
func (n *ParsedNode) HadError() bool {
	if len(n.Errors) > 0 {
		return true
	}
	for e := n.children.First(); e != nil; e = e.Next() {
		if e.Payload.HadError() {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in source order, stopping early when
// fn returns false for a node's subtree.
func (n *ParsedNode) Walk(fn func(*ParsedNode) bool) {
	if !fn(n) {
		return
	}
	for e := n.children.First(); e != nil; e = e.Next() {
		e.Payload.Walk(fn)
	}
}

// DocComment returns the javadoc comment node attached to a declaration.
func (n *ParsedNode) DocComment() *ParsedNode {
	first := n.children.First()
	if first == nil || first.Payload.Kind != KindComment {
		return nil
	}
	return first.Payload
}

// Body returns the TypeBody or MethodBody child, if any.
func (n *ParsedNode) Body() *ParsedNode {
	for e := n.children.Last(); e != nil; e = e.Prev() {
		if k := e.Payload.Kind; k == KindTypeBody || k == KindMethodBody {
			return e.Payload
		}
	}
	return nil
}

func (n *ParsedNode) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)@%d+%d", n.Kind, n.Name, n.Start(), n.Size())
	}
	return fmt.Sprintf("%s@%d+%d", n.Kind, n.Start(), n.Size())
}
