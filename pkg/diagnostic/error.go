// Package diagnostic defines the parse error shared by the lexers and the
// document parser, and renders it as a source-location report.
package diagnostic

import (
	"fmt"

	"github.com/leapstack-labs/querybinder/pkg/token"
)

// Kind classifies a ParseError.
type Kind int

// Error kinds.
const (
	// LexError is an unrecognized byte sequence or an unterminated literal or comment.
	LexError Kind = iota
	// AnnotationSyntaxError is a malformed @query block.
	AnnotationSyntaxError
	// StructuralError is an annotation that does not line up with a statement.
	StructuralError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case AnnotationSyntaxError:
		return "annotation syntax error"
	case StructuralError:
		return "structural error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Note is additional context attached to an error, optionally pointing at
// a second location (for example the first declaration of a duplicate).
type Note struct {
	Message string
	Span    *token.Span
}

// ParseError is the single error shape produced by the lexers and the parser.
//
// Messages follow a few rules: shorter is better, no jargon, and the
// expected thing goes first, the actual thing second.
type ParseError struct {
	Kind    Kind
	Span    token.Span
	Message string
	Note    *Note
	Hint    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", e.Kind, e.Span.Start, e.Message)
}

// New returns a ParseError without note or hint.
func New(kind Kind, span token.Span, message string) *ParseError {
	return &ParseError{Kind: kind, Span: span, Message: message}
}

// WithNote attaches a note. A nil span means the note has no location.
func (e *ParseError) WithNote(message string, span *token.Span) *ParseError {
	e.Note = &Note{Message: message, Span: span}
	return e
}

// WithHint attaches a hint on how to fix the problem.
func (e *ParseError) WithHint(hint string) *ParseError {
	e.Hint = hint
	return e
}
