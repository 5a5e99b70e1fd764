package diagnostic

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leapstack-labs/querybinder/pkg/token"
)

// Print writes the report for err to w. Formatting cannot fail; the only
// error returned is a write error from w.
//
// Spans outside input are clamped to the buffer before rendering.
func Print(w io.Writer, fname string, input []byte, err *ParseError) error {
	_, werr := io.WriteString(w, Format(fname, input, err))
	return werr
}

// Format renders the report for err as a string.
func Format(fname string, input []byte, err *ParseError) string {
	span := err.Span.Clamp(len(input))

	var noteSpan *token.Span
	if err.Note != nil && err.Note.Span != nil {
		s := err.Note.Span.Clamp(len(input))
		noteSpan = &s
	}

	// The gutter is as wide as the widest line number printed.
	width := len(strconv.Itoa(lineOf(input, span.Start)))
	if noteSpan != nil {
		width = max(width, len(strconv.Itoa(lineOf(input, noteSpan.Start))))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", err.Message)
	b.WriteString(highlight(fname, input, span, width))

	if err.Note != nil {
		fmt.Fprintf(&b, "Note: %s\n", err.Note.Message)
		if noteSpan != nil {
			b.WriteString(highlight(fname, input, *noteSpan, width))
		}
	}

	if err.Hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", err.Hint)
	}

	return b.String()
}

// HighlightSpanInLine renders the location header, the source line that
// contains span.Start, and a marker under the span.
//
// The marker is clamped to the end of the line and is at least one
// character wide. Columns are byte offsets, so lines with multi-byte
// characters before the span render the marker too far to the right.
func HighlightSpanInLine(fname string, input []byte, span token.Span) string {
	span = span.Clamp(len(input))
	width := len(strconv.Itoa(lineOf(input, span.Start)))
	return highlight(fname, input, span, width)
}

func highlight(fname string, input []byte, span token.Span, width int) string {
	line, lineStart, lineEnd := locateLine(input, span.Start)

	content := bytes.TrimSuffix(input[lineStart:lineEnd], []byte{'\r'})
	column := span.Start - lineStart

	// A span can run past the end of its line, for example a multi-line
	// string literal. Only mark up to the newline.
	markLen := max(1, min(span.Len(), len(content)-column))

	var b strings.Builder
	fmt.Fprintf(&b, "--> %s:%d:%d\n", fname, line, column)
	fmt.Fprintf(&b, " %*s |\n", width, "")
	fmt.Fprintf(&b, " %*d | %s\n", width, line, bytes.ToValidUTF8(content, []byte("�")))
	fmt.Fprintf(&b, " %*s | %s^%s\n", width, "", strings.Repeat(" ", column), strings.Repeat("~", markLen-1))
	return b.String()
}

// locateLine returns the 1-based line number and the byte range of the line
// containing offset, excluding the newline.
func locateLine(input []byte, offset int) (line, start, end int) {
	head := input[:offset]
	start = bytes.LastIndexByte(head, '\n') + 1
	line = bytes.Count(head, []byte{'\n'}) + 1
	end = len(input)
	if i := bytes.IndexByte(input[start:], '\n'); i >= 0 {
		end = start + i
	}
	return line, start, end
}

func lineOf(input []byte, offset int) int {
	line, _, _ := locateLine(input, offset)
	return line
}
