package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/jide/java/parser"
)

// documentSymbols lists the package, types and members of a parse tree.
// Nested types carry their members as children.
func documentSymbols(text []byte, lines *parser.LineMap, root *parser.ParsedNode) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	for _, n := range root.Children() {
		if sym, ok := symbolOf(text, lines, n); ok {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

func symbolOf(text []byte, lines *parser.LineMap, n *parser.ParsedNode) (protocol.DocumentSymbol, bool) {
	if n.Name == "" {
		return protocol.DocumentSymbol{}, false
	}
	start, end := n.Start(), n.End()
	sym := protocol.DocumentSymbol{
		Name:           n.Name,
		Range:          rangeOf(text, lines, start, end),
		SelectionRange: rangeOf(text, lines, start, end),
	}

	switch n.Kind {
	case parser.KindPackage:
		sym.Kind = protocol.SymbolKindPackage
	case parser.KindField:
		sym.Kind = protocol.SymbolKindField
	case parser.KindMethod:
		sym.Kind = protocol.SymbolKindMethod
		if n.Method.Constructor {
			sym.Kind = protocol.SymbolKindConstructor
		}
		detail := signature(n.Method)
		sym.Detail = &detail
	case parser.KindTypeDef:
		sym.Kind = typeSymbolKind(n.Type.Kind)
		name := n.Type.NameRegion
		if name.End > name.Start {
			sym.SelectionRange = rangeOf(text, lines, start+name.Start, start+name.End)
		}
		if body := n.Body(); body != nil {
			for _, c := range body.Children() {
				if child, ok := symbolOf(text, lines, c); ok {
					sym.Children = append(sym.Children, child)
				}
			}
		}
	default:
		return protocol.DocumentSymbol{}, false
	}
	return sym, true
}

func typeSymbolKind(k parser.TypeKind) protocol.SymbolKind {
	switch k {
	case parser.TypeInterface, parser.TypeAnnotation:
		return protocol.SymbolKindInterface
	case parser.TypeEnum:
		return protocol.SymbolKindEnum
	case parser.TypeRecord:
		return protocol.SymbolKindStruct
	}
	return protocol.SymbolKindClass
}

// signature renders "(T1, T2)" followed by the return type, if any.
func signature(m *parser.MethodFacts) string {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	sig := "(" + strings.Join(types, ", ") + ")"
	if m.ReturnType != "" {
		sig += " " + m.ReturnType
	}
	return sig
}
