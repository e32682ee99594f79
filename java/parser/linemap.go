package parser

import "sort"

// LineMap converts between byte offsets and 1-based line and column
// numbers. Columns count bytes.
type LineMap struct {
	starts []int
	size   int
}

func NewLineMap(src []byte) *LineMap {
	m := &LineMap{starts: []int{0}, size: len(src)}
	for i, b := range src {
		if b == '\n' {
			m.starts = append(m.starts, i+1)
		}
	}
	return m
}

func (m *LineMap) Lines() int {
	return len(m.starts)
}

// Position returns the line and column of offset, clamped to the buffer.
func (m *LineMap) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > m.size {
		offset = m.size
	}
	line := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > offset }) - 1
	return Position{Offset: offset, Line: line + 1, Column: offset - m.starts[line] + 1}
}

// Offset returns the offset of a line and column, clamped to the line.
func (m *LineMap) Offset(line, column int) int {
	if line < 1 {
		return 0
	}
	if line > len(m.starts) {
		return m.size
	}
	start := m.starts[line-1]
	end := m.size
	if line < len(m.starts) {
		end = m.starts[line] - 1
	}
	off := start + column - 1
	if off < start {
		off = start
	}
	if off > end {
		off = end
	}
	return off
}

// LineStart returns the offset of the first byte of a 1-based line.
func (m *LineMap) LineStart(line int) int {
	return m.Offset(line, 1)
}
