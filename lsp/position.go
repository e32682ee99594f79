package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dhamidi/jide/java/parser"
)

// offsetOf converts an LSP position, whose character counts UTF-16 code
// units, to a byte offset into text. Positions past the end of a line
// clamp to the line end.
func offsetOf(text []byte, lines *parser.LineMap, pos protocol.Position) int {
	line := int(pos.Line) + 1
	if line > lines.Lines() {
		return len(text)
	}
	off := lines.LineStart(line)
	for units := int(pos.Character); units > 0 && off < len(text) && text[off] != '\n'; {
		r, size := utf8.DecodeRune(text[off:])
		units -= utf16.RuneLen(r)
		off += size
	}
	return off
}

// positionOf converts a byte offset into text to an LSP position.
func positionOf(text []byte, lines *parser.LineMap, offset int) protocol.Position {
	p := lines.Position(offset)
	units := 0
	for i := lines.LineStart(p.Line); i < p.Offset; {
		r, size := utf8.DecodeRune(text[i:])
		units += utf16.RuneLen(r)
		i += size
	}
	return protocol.Position{
		Line:      protocol.UInteger(p.Line - 1),
		Character: protocol.UInteger(units),
	}
}

func rangeOf(text []byte, lines *parser.LineMap, start, end int) protocol.Range {
	return protocol.Range{
		Start: positionOf(text, lines, start),
		End:   positionOf(text, lines, end),
	}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
