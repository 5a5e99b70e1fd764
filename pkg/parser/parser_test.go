package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/diagnostic"
	"github.com/leapstack-labs/querybinder/pkg/lexer"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

func mustParse(t *testing.T, input string) *ast.Document {
	t.Helper()
	doc, err := Parse([]byte(input))
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func parseError(t *testing.T, input string) *diagnostic.ParseError {
	t.Helper()
	doc, err := Parse([]byte(input))
	require.Error(t, err)
	assert.Nil(t, doc, "no partial document on error")

	var perr *diagnostic.ParseError
	require.ErrorAs(t, err, &perr)
	return perr
}

// reassemble concatenates the text of every section.
func reassemble(input []byte, doc *ast.Document) string {
	var b strings.Builder
	for _, s := range doc.Sections {
		b.WriteString(s.GetSpan().Resolve(input))
	}
	return b.String()
}

func TestParse_WellFormedQuery(t *testing.T) {
	input := "-- @query get_user\n-- id: Int\n-- -> User\nSELECT * FROM users WHERE id = ?;"
	b := []byte(input)
	doc := mustParse(t, input)

	require.Len(t, doc.Sections, 1)
	q, ok := doc.Sections[0].(*ast.Query)
	require.True(t, ok, "expected a query section")

	assert.Equal(t, "get_user", q.Annotation.Name.Resolve(b))
	require.Len(t, q.Annotation.Parameters, 1)
	assert.Equal(t, "id", q.Annotation.Parameters[0].Ident.Resolve(b))
	assert.Equal(t, "Int", q.Annotation.Parameters[0].Type.Resolve(b))
	assert.Equal(t, "User", q.Annotation.ResultType.Resolve(b))
	assert.Equal(t, "SELECT * FROM users WHERE id = ?;", q.Body.Resolve(b))
	assert.Empty(t, q.Docs)
	assert.Equal(t, token.NewSpan(0, len(input)), q.GetSpan())
}

func TestParse_NoAnnotation(t *testing.T) {
	input := "SELECT 1;"
	doc := mustParse(t, input)

	require.Len(t, doc.Sections, 1)
	v, ok := doc.Sections[0].(ast.Verbatim)
	require.True(t, ok, "expected a verbatim section")
	assert.Equal(t, token.NewSpan(0, len(input)), v.Span)
}

func TestParse_Empty(t *testing.T) {
	doc := mustParse(t, "")
	assert.Empty(t, doc.Sections)
	assert.Empty(t, doc.Queries())
}

func TestParse_MissingQueryName(t *testing.T) {
	perr := parseError(t, "-- @query \nSELECT 1;")

	assert.Equal(t, diagnostic.AnnotationSyntaxError, perr.Kind)
	assert.Equal(t, "Expected a query name after '@query'.", perr.Message)
	assert.Equal(t, token.NewSpan(9, 9), perr.Span, "span lies right after @query")
}

func TestParse_SectionsInSourceOrder(t *testing.T) {
	input := `-- header

-- Look up one user.
-- Second line.
-- @query get_user
-- id: Int
-- -> User
SELECT * FROM users WHERE id = :id;

SELECT 42;
-- @query list_users
-- -> User
SELECT * FROM users;
`
	b := []byte(input)
	doc := mustParse(t, input)

	require.Len(t, doc.Sections, 5)
	assert.IsType(t, ast.Verbatim{}, doc.Sections[0])
	assert.IsType(t, &ast.Query{}, doc.Sections[1])
	assert.IsType(t, ast.Verbatim{}, doc.Sections[2])
	assert.IsType(t, &ast.Query{}, doc.Sections[3])
	assert.IsType(t, ast.Verbatim{}, doc.Sections[4])

	assert.Equal(t, "-- header\n\n", doc.Sections[0].GetSpan().Resolve(b))
	assert.Equal(t, "\n\nSELECT 42;\n", doc.Sections[2].GetSpan().Resolve(b))
	assert.Equal(t, "\n", doc.Sections[4].GetSpan().Resolve(b))

	queries := doc.Queries()
	require.Len(t, queries, 2)

	first := queries[0]
	require.Len(t, first.Docs, 2)
	assert.Equal(t, " Look up one user.", first.Docs[0].Resolve(b))
	assert.Equal(t, " Second line.", first.Docs[1].Resolve(b))
	assert.Equal(t, strings.Index(input, "-- Look up"), first.Start)

	second := queries[1]
	assert.Equal(t, "list_users", second.Annotation.Name.Resolve(b))
	assert.Empty(t, second.Annotation.Parameters)
	assert.Equal(t, "SELECT * FROM users;", second.Body.Resolve(b))

	assert.Equal(t, input, reassemble(b, doc))
}

func TestParse_Parameters(t *testing.T) {
	input := `-- @query search
-- a: Int,
-- b: Text, c: Option<Map<Text, Int>>,
--
-- -> Row
SELECT 1;`
	b := []byte(input)
	doc := mustParse(t, input)

	q := doc.Queries()[0]
	var got [][2]string
	for _, p := range q.Annotation.Parameters {
		got = append(got, [2]string{p.Ident.Resolve(b), p.Type.Resolve(b)})
	}
	assert.Equal(t, [][2]string{
		{"a", "Int"},
		{"b", "Text"},
		{"c", "Option<Map<Text, Int>>"},
	}, got)
	assert.Equal(t, "Row", q.Annotation.ResultType.Resolve(b))
}

func TestParse_StatementBodies(t *testing.T) {
	tests := []struct {
		name  string
		input string
		body  string
	}{
		{
			name:  "blank lines before statement",
			input: "-- @query q\n-- -> R\n\n\nSELECT 1;",
			body:  "SELECT 1;",
		},
		{
			name:  "semicolon inside literals",
			input: "-- @query q\n-- -> R\nSELECT ';', \";\" FROM t;",
			body:  "SELECT ';', \";\" FROM t;",
		},
		{
			name:  "comments inside statement",
			input: "-- @query q\n-- -> R\nSELECT 1 -- one\n  -- indented\nFROM /* x; */ t;",
			body:  "SELECT 1 -- one\n  -- indented\nFROM /* x; */ t;",
		},
		{
			name:  "indented annotation",
			input: "  -- @query q\n  -- -> R\n  SELECT 1;",
			body:  "SELECT 1;",
		},
		{
			name:  "crlf line endings",
			input: "-- @query q\r\n-- -> R\r\nSELECT 1;\r\n",
			body:  "SELECT 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := []byte(tt.input)
			doc := mustParse(t, tt.input)
			queries := doc.Queries()
			require.Len(t, queries, 1)
			assert.Equal(t, "q", queries[0].Annotation.Name.Resolve(b))
			assert.Equal(t, "R", queries[0].Annotation.ResultType.Resolve(b))
			assert.Equal(t, tt.body, queries[0].Body.Resolve(b))
			assert.Equal(t, tt.input, reassemble(b, doc))
		})
	}
}

func TestParse_NotAnnotations(t *testing.T) {
	inputs := []string{
		"-- @querying things\nSELECT 1;",
		"SELECT 1; -- @query trailing\n",
		"/* -- @query q\n-- -> R */ SELECT 1;",
		"-- plain comment\n-- another one\nSELECT 1;",
	}

	for _, input := range inputs {
		doc := mustParse(t, input)
		assert.Empty(t, doc.Queries(), "input %q", input)
		assert.Equal(t, input, reassemble([]byte(input), doc))
	}
}

func TestParse_DocRunsNeedAdjacentLines(t *testing.T) {
	input := "-- Orphan doc.\n\n-- @query q\n-- -> R\nSELECT 1;"
	doc := mustParse(t, input)

	q := doc.Queries()[0]
	assert.Empty(t, q.Docs)
	assert.Equal(t, strings.Index(input, "-- @query"), q.Start)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    diagnostic.Kind
		message string
		span    *token.Span
		note    *token.Span
	}{
		{
			name:    "result type without directive",
			input:   "-- Some docs.\n-- -> User\nSELECT 1;",
			kind:    diagnostic.StructuralError,
			message: "Expected '@query' before the result type.",
			span:    &token.Span{Start: 14, End: 24},
		},
		{
			name:    "missing semicolon at end of input",
			input:   "-- @query q\n-- -> R\nSELECT 1\n",
			kind:    diagnostic.StructuralError,
			message: "Expected ';' at the end of the query.",
			span:    &token.Span{Start: 28, End: 28},
			note:    &token.Span{Start: 20, End: 26},
		},
		{
			name:    "missing semicolon before next annotation",
			input:   "-- @query a\n-- -> R\nSELECT 1\n-- @query b\n-- -> R\nSELECT 2;",
			kind:    diagnostic.StructuralError,
			message: "Expected ';' before the next annotation.",
			span:    &token.Span{Start: 29, End: 40},
		},
		{
			name:    "annotation at end of input",
			input:   "-- @query a\n-- -> R\n",
			kind:    diagnostic.StructuralError,
			message: "Expected a query after the annotation.",
			note:    &token.Span{Start: 0, End: 11},
		},
		{
			name:    "annotation followed by semicolon",
			input:   "-- @query a\n-- -> R\n;",
			kind:    diagnostic.StructuralError,
			message: "Expected a query after the annotation.",
			span:    &token.Span{Start: 20, End: 21},
		},
		{
			name:    "duplicate parameter",
			input:   "-- @query q\n-- id: Int, id: Text\n-- -> R\nSELECT 1;",
			kind:    diagnostic.StructuralError,
			message: "Expected a unique parameter name, found a duplicate.",
			span:    &token.Span{Start: 24, End: 26},
			note:    &token.Span{Start: 15, End: 17},
		},
		{
			name:    "missing result type line",
			input:   "-- @query q\n-- id: Int\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected a result type line like '-- -> User'.",
		},
		{
			name:    "second directive",
			input:   "-- @query a\n-- @query b\n-- -> R\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected one '@query' per annotation, found a second one.",
			span:    &token.Span{Start: 15, End: 21},
			note:    &token.Span{Start: 3, End: 9},
		},
		{
			name:    "annotation lines after result",
			input:   "-- @query a\n-- -> R\n-- just a comment\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected the query after the result type, found more annotation lines.",
		},
		{
			name:    "name followed by more text",
			input:   "-- @query a b\n-- -> R\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected the end of the line after the query name.",
			span:    &token.Span{Start: 12, End: 13},
		},
		{
			name:    "parameter without colon",
			input:   "-- @query q\n-- id Int\n-- -> R\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected ':' after the parameter name.",
			span:    &token.Span{Start: 18, End: 21},
		},
		{
			name:    "parameters without comma",
			input:   "-- @query q\n-- a: Int b: Int\n-- -> R\nSELECT 1;",
			kind:    diagnostic.AnnotationSyntaxError,
			message: "Expected ',' or the end of the line after the parameter type.",
		},
		{
			name:    "unterminated string",
			input:   "SELECT 'abc",
			kind:    diagnostic.LexError,
			message: "Expected a closing ' for this string literal.",
			span:    &token.Span{Start: 7, End: 11},
		},
		{
			name:    "unterminated block comment in body",
			input:   "-- @query q\n-- -> R\nSELECT /* 1;",
			kind:    diagnostic.LexError,
			message: "Expected '*/' to close this block comment.",
		},
		{
			name:    "invalid utf-8 in comment",
			input:   "-- caf\xe9\nSELECT 1;",
			kind:    diagnostic.LexError,
			message: "Expected UTF-8 text, found an invalid byte.",
			span:    &token.Span{Start: 6, End: 7},
		},
		{
			name:    "control character",
			input:   "SELECT \x01;",
			kind:    diagnostic.LexError,
			message: "Unexpected control character.",
			span:    &token.Span{Start: 7, End: 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := parseError(t, tt.input)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.message, perr.Message)
			if tt.span != nil {
				assert.Equal(t, *tt.span, perr.Span)
			}
			if tt.note != nil {
				require.NotNil(t, perr.Note)
				assert.Equal(t, tt.note, perr.Note.Span)
			}
		})
	}
}

func TestParser_ParseDocumentIsRepeatable(t *testing.T) {
	input := []byte("-- @query q\n-- -> R\nSELECT 1;\n")
	p := New(input, lexer.Tokenize(input))

	first, err := p.ParseDocument()
	require.NoError(t, err)
	second, err := p.ParseDocument()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func FuzzParseDocument(f *testing.F) {
	seeds := []string{
		"",
		"SELECT 1;",
		"-- @query get_user\n-- id: Int\n-- -> User\nSELECT * FROM users WHERE id = ?;",
		"-- @query \nSELECT 1;",
		"-- docs\n-- @query q\n-- a: Map<Text, Int>, b: []byte\n-- -> R\nSELECT ';';\n",
		"-- @query q\n-- -> R\n",
		"-- -> R\nSELECT 1;",
		"-- caf\xe9\n",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}

	f.Fuzz(func(t *testing.T, input []byte) {
		doc, err := Parse(input)
		if err != nil {
			var perr *diagnostic.ParseError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			assert.Nil(t, doc)
			assert.True(t, perr.Span.Start >= 0 && perr.Span.Start <= perr.Span.End && perr.Span.End <= len(input),
				"error span %v outside input of length %d", perr.Span, len(input))
			assert.NotEmpty(t, diagnostic.Format("fuzz.sql", input, perr))
			return
		}

		// Sections tile the input in order.
		pos := 0
		for _, s := range doc.Sections {
			span := s.GetSpan()
			if span.Start != pos || span.End < span.Start {
				t.Fatalf("section %v does not start at %d", span, pos)
			}
			pos = span.End
		}
		if pos != len(input) {
			t.Fatalf("sections end at %d, input has %d bytes", pos, len(input))
		}
	})
}
