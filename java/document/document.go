// Package document holds the text of one open source file together with
// its parse tree. An edit inside a comment only resizes the nodes around
// it. Other edits reparse the smallest enclosing body whose braces still
// bound the new content, falling back to a full reparse.
//
// A Document is owned by a single editor session and is not safe for
// concurrent use. ClassInfo values it returns are never modified and may
// be handed to other goroutines.
package document

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/jide/java/entity"
	"github.com/dhamidi/jide/java/parser"
	"github.com/dhamidi/jide/observability"
)

var log = commonlog.GetLogger("jide.document")

var ErrOutOfRange = errors.New("offset out of range")

// ReparseScope says how much of the document the last edit reparsed.
type ReparseScope int

const (
	ReparseNone ReparseScope = iota
	// ReparseLeaf is an edit inside a comment, patched without parsing.
	ReparseLeaf
	ReparseMethodBody
	ReparseTypeBody
	ReparseFile
)

func (s ReparseScope) String() string {
	switch s {
	case ReparseNone:
		return "none"
	case ReparseLeaf:
		return "leaf"
	case ReparseMethodBody:
		return "method body"
	case ReparseTypeBody:
		return "type body"
	case ReparseFile:
		return "file"
	}
	return fmt.Sprintf("ReparseScope(%d)", int(s))
}

type Document struct {
	path     string
	text     []byte
	root     *parser.ParsedNode
	lines    *parser.LineMap
	resolver entity.Resolver
	version  int
	info     *parser.ClassInfo
	last     ReparseScope
}

// New parses text. resolver answers for names the file does not declare
// and may be nil.
func New(path string, text []byte, resolver entity.Resolver) *Document {
	d := &Document{
		path:     path,
		resolver: resolver,
	}
	d.reset(text)
	return d
}

func (d *Document) reset(text []byte) {
	d.text = append([]byte(nil), text...)
	d.root = parser.ParseFile(d.text)
	d.lines = parser.NewLineMap(d.text)
	d.info = nil
	d.last = ReparseFile
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Text() string {
	return string(d.text)
}

func (d *Document) Len() int {
	return len(d.text)
}

// Version is incremented by every edit.
func (d *Document) Version() int {
	return d.version
}

func (d *Document) ParseTree() *parser.ParsedNode {
	return d.root
}

func (d *Document) Lines() *parser.LineMap {
	return d.lines
}

// LastReparse reports the scope reparsed by the most recent edit.
func (d *Document) LastReparse() ReparseScope {
	return d.last
}

// SetResolver replaces the resolver used for ClassInfo.
func (d *Document) SetResolver(r entity.Resolver) {
	d.resolver = r
	d.info = nil
}

// ClassInfo extracts the fact sheet of the current text. The result is
// cached until the next edit.
func (d *Document) ClassInfo() *parser.ClassInfo {
	if d.info == nil {
		d.info = parser.Extract(d.root, d.lines, parser.Options{File: d.path, Resolver: d.resolver})
	}
	return d.info
}

// NodeAt returns the path of nodes covering offset, outermost first.
func (d *Document) NodeAt(offset int) []*parser.ParsedNode {
	return d.root.NodeAt(offset)
}

// FindNodeAtOrAfter returns the innermost node covering offset, or the
// first node starting after it at the deepest level that has one, with
// its absolute start.
func (d *Document) FindNodeAtOrAfter(offset int) (*parser.ParsedNode, int) {
	n, start := d.root, 0
	for {
		c, at := n.FindNodeAtOrAfter(offset)
		if c == nil {
			return n, start
		}
		if at > offset {
			return c, at
		}
		n, start = c, at
	}
}

func (d *Document) Position(offset int) parser.Position {
	return d.lines.Position(offset)
}

func (d *Document) Offset(line, column int) int {
	return d.lines.Offset(line, column)
}

func (d *Document) InsertString(offset int, text string) error {
	if offset < 0 || offset > len(d.text) {
		return fmt.Errorf("insert at %d into %d bytes: %w", offset, len(d.text), ErrOutOfRange)
	}
	if text == "" {
		return nil
	}
	d.replace(offset, 0, text)
	return nil
}

func (d *Document) Remove(offset, length int) error {
	if offset < 0 || length < 0 || offset+length > len(d.text) {
		return fmt.Errorf("remove %d+%d from %d bytes: %w", offset, length, len(d.text), ErrOutOfRange)
	}
	if length == 0 {
		return nil
	}
	d.replace(offset, length, "")
	return nil
}

// Replace removes length bytes at offset and inserts text in their place
// as one edit.
func (d *Document) Replace(offset, length int, text string) error {
	if offset < 0 || length < 0 || offset+length > len(d.text) {
		return fmt.Errorf("replace %d+%d in %d bytes: %w", offset, length, len(d.text), ErrOutOfRange)
	}
	if length == 0 && text == "" {
		return nil
	}
	d.replace(offset, length, text)
	return nil
}

// SetText replaces the whole text and reparses it.
func (d *Document) SetText(text []byte) {
	d.reset(text)
	d.version++
}

func (d *Document) replace(offset, removed int, inserted string) {
	text := make([]byte, 0, len(d.text)-removed+len(inserted))
	text = append(text, d.text[:offset]...)
	text = append(text, inserted...)
	text = append(text, d.text[offset+removed:]...)

	bodies := d.enclosingBodies(offset, offset+removed)
	leaf, leafOK := d.commentAround(bodies, offset, offset+removed, inserted)

	d.text = text
	d.lines = parser.NewLineMap(text)
	d.info = nil
	d.version++

	delta := len(inserted) - removed
	if leafOK {
		d.patchLeaf(leaf, offset, removed, delta)
		d.last = ReparseLeaf
		observability.ReparseTotal.WithLabelValues(ReparseLeaf.String()).Inc()
		log.Debugf("%s: patched comment for edit at %d", d.path, offset)
		return
	}
	for _, body := range bodies {
		if scope, ok := d.reparseBody(body, delta); ok {
			d.last = scope
			observability.ReparseTotal.WithLabelValues(scope.String()).Inc()
			log.Debugf("%s: reparsed %s for edit at %d", d.path, scope, offset)
			return
		}
	}
	d.root = parser.ParseFile(d.text)
	d.last = ReparseFile
	observability.ReparseTotal.WithLabelValues(ReparseFile.String()).Inc()
	log.Debugf("%s: reparsed file for edit at %d", d.path, offset)
}
