package lsp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/jide/compile"
	"github.com/dhamidi/jide/java/document"
	"github.com/dhamidi/jide/java/parser"
)

func pos(line, char int) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(char)}
}

func TestPositionConversion(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit; "😀" is four bytes and two units.
	text := []byte("ab\né😀x\n")
	lines := parser.NewLineMap(text)

	tests := []struct {
		name   string
		pos    protocol.Position
		offset int
	}{
		{"start", pos(0, 0), 0},
		{"first line end", pos(0, 2), 2},
		{"second line", pos(1, 0), 3},
		{"after two-byte rune", pos(1, 1), 5},
		{"after surrogate pair", pos(1, 3), 9},
		{"last char", pos(1, 4), 10},
		{"empty last line", pos(2, 0), 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := offsetOf(text, lines, tt.pos); got != tt.offset {
				t.Errorf("offsetOf(%v) = %d, want %d", tt.pos, got, tt.offset)
			}
			if diff := cmp.Diff(tt.pos, positionOf(text, lines, tt.offset)); diff != "" {
				t.Errorf("positionOf(%d) (-want +got):\n%s", tt.offset, diff)
			}
		})
	}

	t.Run("clamps", func(t *testing.T) {
		if got := offsetOf(text, lines, pos(0, 99)); got != 2 {
			t.Errorf("past line end = %d, want 2", got)
		}
		if got := offsetOf(text, lines, pos(9, 0)); got != len(text) {
			t.Errorf("past last line = %d, want %d", got, len(text))
		}
	})
}

func TestURIConversion(t *testing.T) {
	path, err := uriToPath("file:///src/p/A%20B.java")
	if err != nil {
		t.Fatal(err)
	}
	if path != "/src/p/A B.java" {
		t.Errorf("uriToPath = %q", path)
	}
	if uri := pathToURI(path); uri != "file:///src/p/A%20B.java" {
		t.Errorf("pathToURI = %q", uri)
	}
}

func TestApplyChange(t *testing.T) {
	doc := document.New("A.java", []byte("class A {\n    int x;\n}\n"), nil)
	rng := protocol.Range{Start: pos(1, 8), End: pos(1, 9)}

	changes := []any{
		protocol.TextDocumentContentChangeEvent{Range: &rng, Text: "count"},
		protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{Start: pos(2, 1), End: pos(2, 1)},
			Text:  " // end",
		},
	}
	for _, c := range changes {
		if err := applyChange(doc, c); err != nil {
			t.Fatal(err)
		}
	}
	if want := "class A {\n    int count;\n} // end\n"; doc.Text() != want {
		t.Errorf("text = %q, want %q", doc.Text(), want)
	}

	if err := applyChange(doc, protocol.TextDocumentContentChangeEventWhole{Text: "class B {}"}); err != nil {
		t.Fatal(err)
	}
	if doc.Text() != "class B {}" {
		t.Errorf("text = %q after full sync", doc.Text())
	}

	inverted := protocol.Range{Start: pos(0, 5), End: pos(0, 1)}
	if err := applyChange(doc, protocol.TextDocumentContentChangeEvent{Range: &inverted}); err == nil {
		t.Error("inverted range accepted")
	}
	if err := applyChange(doc, "text"); err == nil {
		t.Error("unknown change accepted")
	}
}

const symbolSource = `package p;

import java.util.List;

public class A {
    int count;
    A(int c) { }
    List<String> names(int n, String s) { return null; }
    static { }
    interface Inner {
        void run();
    }
}

enum E { ONE, TWO }
`

type symbolSummary struct {
	Name     string
	Kind     protocol.SymbolKind
	Detail   string
	Children []symbolSummary
}

func summarize(symbols []protocol.DocumentSymbol) []symbolSummary {
	var out []symbolSummary
	for _, s := range symbols {
		sum := symbolSummary{Name: s.Name, Kind: s.Kind, Children: summarize(s.Children)}
		if s.Detail != nil {
			sum.Detail = *s.Detail
		}
		out = append(out, sum)
	}
	return out
}

func TestDocumentSymbols(t *testing.T) {
	text := []byte(symbolSource)
	lines := parser.NewLineMap(text)
	symbols := documentSymbols(text, lines, parser.ParseFile(text))

	want := []symbolSummary{
		{Name: "p", Kind: protocol.SymbolKindPackage},
		{Name: "A", Kind: protocol.SymbolKindClass, Children: []symbolSummary{
			{Name: "count", Kind: protocol.SymbolKindField},
			{Name: "A", Kind: protocol.SymbolKindConstructor, Detail: "(int)"},
			{Name: "names", Kind: protocol.SymbolKindMethod, Detail: "(int, String) List<String>"},
			{Name: "Inner", Kind: protocol.SymbolKindInterface, Children: []symbolSummary{
				{Name: "run", Kind: protocol.SymbolKindMethod, Detail: "() void"},
			}},
		}},
		{Name: "E", Kind: protocol.SymbolKindEnum, Children: []symbolSummary{
			{Name: "ONE", Kind: protocol.SymbolKindField},
			{Name: "TWO", Kind: protocol.SymbolKindField},
		}},
	}
	if diff := cmp.Diff(want, summarize(symbols)); diff != "" {
		t.Errorf("symbols (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(protocol.Range{Start: pos(4, 13), End: pos(4, 14)}, symbols[1].SelectionRange); diff != "" {
		t.Errorf("class name selection (-want +got):\n%s", diff)
	}
}

func TestParseDiagnostics(t *testing.T) {
	text := []byte("// header\nclass A { int x = 1 int y; }\n")
	lines := parser.NewLineMap(text)

	diagnostics := parseDiagnostics(text, lines, parser.ParseFile(text))
	if len(diagnostics) == 0 {
		t.Fatal("no diagnostics for broken source")
	}
	for _, d := range diagnostics {
		if d.Range.Start.Line != 1 {
			t.Errorf("diagnostic %q on line %d, want 1", d.Message, d.Range.Start.Line)
		}
		if *d.Severity != protocol.DiagnosticSeverityError || *d.Source != "jide" {
			t.Errorf("diagnostic %q: severity %v source %q", d.Message, *d.Severity, *d.Source)
		}
	}

	clean := []byte("class A { }\n")
	if got := parseDiagnostics(clean, parser.NewLineMap(clean), parser.ParseFile(clean)); len(got) != 0 {
		t.Errorf("clean source: %v", got)
	}
}

func TestCompileDiagnostic(t *testing.T) {
	text := []byte("class A {\n    B b;\n}\n")
	lines := parser.NewLineMap(text)

	tests := []struct {
		name     string
		text     []byte
		lines    *parser.LineMap
		d        compile.Diagnostic
		rng      protocol.Range
		severity protocol.DiagnosticSeverity
	}{
		{
			name:     "open file",
			text:     text,
			lines:    lines,
			d:        compile.Diagnostic{File: "A.java", Line: 2, Message: "cannot find symbol"},
			rng:      protocol.Range{Start: pos(1, 0), End: pos(1, 8)},
			severity: protocol.DiagnosticSeverityError,
		},
		{
			name:     "closed file",
			d:        compile.Diagnostic{File: "A.java", Line: 3, Message: "deprecated", Severity: compile.SeverityWarning},
			rng:      protocol.Range{Start: pos(2, 0), End: pos(3, 0)},
			severity: protocol.DiagnosticSeverityWarning,
		},
		{
			name:     "line out of range",
			text:     text,
			lines:    lines,
			d:        compile.Diagnostic{File: "A.java", Line: 40, Message: "stale"},
			rng:      protocol.Range{Start: pos(39, 0), End: pos(40, 0)},
			severity: protocol.DiagnosticSeverityError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compileDiagnostic(tt.text, tt.lines, tt.d)
			if diff := cmp.Diff(tt.rng, got.Range); diff != "" {
				t.Errorf("range (-want +got):\n%s", diff)
			}
			if *got.Severity != tt.severity {
				t.Errorf("severity = %v, want %v", *got.Severity, tt.severity)
			}
			if got.Message != tt.d.Message {
				t.Errorf("message = %q", got.Message)
			}
		})
	}
}
