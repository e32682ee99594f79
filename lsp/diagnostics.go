package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/jide/compile"
	"github.com/dhamidi/jide/java/parser"
)

const source = "jide"

// parseDiagnostics reports the syntax errors recorded in a parse tree.
func parseDiagnostics(text []byte, lines *parser.LineMap, root *parser.ParsedNode) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic
	root.Walk(func(n *parser.ParsedNode) bool {
		if len(n.Errors) == 0 {
			return true
		}
		base := n.Start()
		for _, e := range n.Errors {
			off := base + e.Offset
			end := off
			if end < len(text) && text[end] != '\n' {
				end++
			}
			diagnostics = append(diagnostics, newDiagnostic(
				rangeOf(text, lines, off, end), protocol.DiagnosticSeverityError, e.Message))
		}
		return true
	})
	return diagnostics
}

// compileDiagnostic covers the whole line javac reported. text and lines
// may be nil when the file is not open.
func compileDiagnostic(text []byte, lines *parser.LineMap, d compile.Diagnostic) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	if d.Severity == compile.SeverityWarning {
		severity = protocol.DiagnosticSeverityWarning
	}
	line := d.Line - 1
	if line < 0 {
		line = 0
	}
	r := protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line)},
		End:   protocol.Position{Line: protocol.UInteger(line + 1)},
	}
	if lines != nil && d.Line >= 1 && d.Line <= lines.Lines() {
		start := lines.LineStart(d.Line)
		end := lines.Offset(d.Line, len(text)+1)
		r = rangeOf(text, lines, start, end)
	}
	return newDiagnostic(r, severity, d.Message)
}

func newDiagnostic(r protocol.Range, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	src := source
	return protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Source:   &src,
		Message:  msg,
	}
}
