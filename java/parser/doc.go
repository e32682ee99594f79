// Package parser is an error-tolerant Java parser for editing sessions.
//
// The lexer keeps comments on a side channel so that javadoc can be
// attached to the declaration that follows it. The recursive descent
// parser builds a tree of structural nodes (types, members, bodies) whose
// children are stored at offsets relative to their parent, so an edit
// shifts later siblings without touching their subtrees. Expressions and
// statements produce no nodes; the facts needed for dependency analysis
// are recorded on the innermost enclosing node.
//
// ParseRegion reparses the content of one body so that a document can
// replace a single subtree after an edit. Extract turns a tree into a
// ClassInfo fact sheet.
package parser
