// Package ast defines the parse result of an annotated SQL document.
//
// All nodes hold spans into the input buffer rather than copies of the
// text. They are valid only together with that buffer and are never
// mutated after the parser returns them.
package ast

import "github.com/leapstack-labs/querybinder/pkg/token"

// Document is the top-level parse result: sections in source order.
type Document struct {
	Sections []Section
}

// Section is either Verbatim text or a Query.
type Section interface {
	sectionNode()
	GetSpan() token.Span
}

// Verbatim is pass-through SQL text, including whitespace and ordinary
// comments, reproduced unchanged.
type Verbatim struct {
	Span token.Span
}

func (Verbatim) sectionNode() {}

// GetSpan returns the section's source span.
func (v Verbatim) GetSpan() token.Span {
	return v.Span
}

// Query is an annotated SQL statement.
type Query struct {
	// Docs holds one span per plain doc-comment line above the annotation,
	// starting right after the "--" marker.
	Docs []token.Span
	// Start is the offset of the first doc-comment or directive line.
	Start      int
	Annotation Annotation
	// Body is the statement following the annotation, through its ';'.
	Body token.Span
}

func (*Query) sectionNode() {}

// GetSpan returns the span covering docs, annotation and body.
func (q *Query) GetSpan() token.Span {
	return token.NewSpan(q.Start, q.Body.End)
}

// Annotation is the @query directive block.
type Annotation struct {
	Name       token.Span
	Parameters []Parameter
	ResultType token.Span
}

// Parameter is one "ident: Type" declaration.
type Parameter struct {
	Ident token.Span
	Type  token.Span
}

// Queries returns the query sections of the document in source order.
func (d *Document) Queries() []*Query {
	var queries []*Query
	for _, s := range d.Sections {
		if q, ok := s.(*Query); ok {
			queries = append(queries, q)
		}
	}
	return queries
}
