// Package manifest resolves a parsed document into plain strings that
// outlive the input buffer. It is the shape shared by the json and yaml
// targets, the list command and the catalog.
package manifest

import (
	"strings"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

// Manifest describes the queries declared in one source file.
type Manifest struct {
	File    string  `json:"file" yaml:"file"`
	Queries []Query `json:"queries" yaml:"queries"`
}

// Query is a resolved ast.Query.
type Query struct {
	Name       string   `json:"name" yaml:"name"`
	Line       int      `json:"line" yaml:"line"`
	Docs       []string `json:"docs,omitempty" yaml:"docs,omitempty"`
	Parameters []Param  `json:"parameters" yaml:"parameters"`
	ResultType string   `json:"result_type" yaml:"result_type"`
	SQL        string   `json:"sql" yaml:"sql"`
}

// Param is a resolved ast.Parameter.
type Param struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// FromDocument resolves every query of doc against input.
func FromDocument(file string, input []byte, doc *ast.Document) *Manifest {
	m := &Manifest{File: file, Queries: []Query{}}
	for _, q := range doc.Queries() {
		m.Queries = append(m.Queries, resolveQuery(input, q))
	}
	return m
}

func resolveQuery(input []byte, q *ast.Query) Query {
	ann := q.Annotation
	out := Query{
		Name:       ann.Name.Resolve(input),
		Line:       token.PositionOf(input, q.Start).Line,
		Parameters: make([]Param, 0, len(ann.Parameters)),
		ResultType: ann.ResultType.Resolve(input),
		SQL:        q.Body.Resolve(input),
	}
	for _, doc := range q.Docs {
		// Doc spans keep the blank after "--"; trim one for display.
		out.Docs = append(out.Docs, strings.TrimPrefix(doc.Resolve(input), " "))
	}
	for _, p := range ann.Parameters {
		out.Parameters = append(out.Parameters, Param{
			Name: p.Ident.Resolve(input),
			Type: p.Type.Resolve(input),
		})
	}
	return out
}

// Signature renders a query as "name(a: A, b: B) -> R".
func (q Query) Signature() string {
	params := make([]string, len(q.Parameters))
	for i, p := range q.Parameters {
		params[i] = p.Name + ": " + p.Type
	}
	return q.Name + "(" + strings.Join(params, ", ") + ") -> " + q.ResultType
}
