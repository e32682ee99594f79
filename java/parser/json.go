package parser

import "encoding/json"

type jsonNode struct {
	Kind     string      `json:"kind"`
	Name     string      `json:"name,omitempty"`
	Start    int         `json:"start"`
	Size     int         `json:"size"`
	Refs     []string    `json:"refs,omitempty"`
	Values   []string    `json:"values,omitempty"`
	Errors   []jsonError `json:"errors,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonError struct {
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

// MarshalJSON renders the subtree with absolute offsets.
func (n *ParsedNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

func (n *ParsedNode) toJSON() *jsonNode {
	start := n.Start()
	jn := &jsonNode{
		Kind:   n.Kind.String(),
		Name:   n.Name,
		Start:  start,
		Size:   n.Size(),
		Values: n.Values,
	}
	for _, r := range n.Refs {
		if r.Kind == RefQualifier {
			jn.Refs = append(jn.Refs, r.Name+"?")
		} else {
			jn.Refs = append(jn.Refs, r.Name)
		}
	}
	for _, e := range n.Errors {
		jn.Errors = append(jn.Errors, jsonError{Offset: start + e.Offset, Message: e.Message})
	}
	for _, c := range n.Children() {
		jn.Children = append(jn.Children, c.toJSON())
	}
	return jn
}
