package token

import (
	"bytes"
	"unicode/utf8"
)

// Span is a half-open byte range [Start, End) into a source buffer.
// Spans never copy text; they are only meaningful together with the
// buffer they were produced from.
type Span struct {
	Start int
	End   int
}

// NewSpan returns the span [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// IsEmpty returns true for zero-length spans.
func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Clamp restricts the span to a buffer of length n.
func (s Span) Clamp(n int) Span {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return Span{Start: start, End: end}
}

// Resolve returns the text the span covers in input.
//
// Spans from a successful parse always cover valid UTF-8, because the lexer
// turns invalid bytes into error tokens. For any other span, invalid bytes
// are replaced with U+FFFD and the range is clamped to the buffer.
func (s Span) Resolve(input []byte) string {
	c := s.Clamp(len(input))
	b := input[c.Start:c.End]
	if utf8.Valid(b) {
		return string(b)
	}
	return string(bytes.ToValidUTF8(b, []byte(string(utf8.RuneError))))
}

// Position is a line/column location in the source.
type Position struct {
	Line   int // 1-based line number
	Column int // 0-based byte offset from the start of the line
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// PositionOf computes the line and column of offset in input.
// Columns count bytes, not display cells.
func PositionOf(input []byte, offset int) Position {
	if offset > len(input) {
		offset = len(input)
	}
	if offset < 0 {
		offset = 0
	}
	head := input[:offset]
	lineStart := bytes.LastIndexByte(head, '\n') + 1
	return Position{
		Line:   bytes.Count(head, []byte{'\n'}) + 1,
		Column: offset - lineStart,
		Offset: offset,
	}
}
