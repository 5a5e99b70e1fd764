// Package parser assembles annotated SQL documents.
//
// # Usage
//
//	doc, err := parser.Parse(input)
//	if err != nil {
//	    var perr *diagnostic.ParseError
//	    if errors.As(err, &perr) {
//	        _ = diagnostic.Print(os.Stderr, "queries.sql", input, perr)
//	    }
//	}
//
// # Grammar Overview
//
// A document is SQL text in which some statements are preceded by an
// annotation block of doc comments:
//
//	document   → (verbatim | query)*
//	query      → doc_line* directive param_line* result_line statement
//	doc_line   → "--" text
//	directive  → "--" "@query" name
//	param_line → "--" param ("," param)* [","]
//	param      → ident ":" type
//	result_line→ "--" "->" type
//	statement  → sql_token* ";"
//
// Doc lines must be consecutive lines. Anything that is not a query is
// kept as verbatim text. Parsing stops at the first error.
package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/diagnostic"
	"github.com/leapstack-labs/querybinder/pkg/lexer"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

const directive = "@query"

// Parser builds a Document from the tokens of the SQL lexer.
type Parser struct {
	input  []byte
	tokens []token.Token
	pos    int // index of the current token

	sections      []ast.Section
	verbatimStart int
}

// New creates a parser over input and its SQL tokens.
func New(input []byte, tokens []token.Token) *Parser {
	return &Parser{input: input, tokens: tokens}
}

// Parse tokenizes and parses input.
func Parse(input []byte) (*ast.Document, error) {
	return New(input, lexer.Tokenize(input)).ParseDocument()
}

// ParseDocument parses the whole token stream. The returned error is a
// *diagnostic.ParseError; on error no partial document is returned.
func (p *Parser) ParseDocument() (*ast.Document, error) {
	p.pos = 0
	p.sections = nil
	p.verbatimStart = 0

	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		if tok.Type == token.EOF {
			break
		}
		if token.IsError(tok.Type) {
			return nil, p.lexError(tok)
		}
		if tok.Type == token.DOC_COMMENT {
			if err := p.parseDocRun(); err != nil {
				return nil, err
			}
			continue
		}
		p.pos++
	}

	p.flushVerbatim(len(p.input))
	return &ast.Document{Sections: p.sections}, nil
}

// ---------- Token Helpers ----------

// at returns the token at index i, or EOF past the end of the stream.
func (p *Parser) at(i int) token.Token {
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	end := len(p.input)
	return token.Token{Type: token.EOF, Span: token.NewSpan(end, end)}
}

// text returns the raw bytes of a token.
func (p *Parser) text(tok token.Token) []byte {
	s := tok.Span.Clamp(len(p.input))
	return p.input[s.Start:s.End]
}

// commentBody returns a doc comment without its "--" marker and leading blanks.
func (p *Parser) commentBody(tok token.Token) string {
	body := strings.TrimPrefix(string(p.text(tok)), "--")
	return strings.TrimLeft(body, " \t")
}

func (p *Parser) isDirective(tok token.Token) bool {
	body := p.commentBody(tok)
	if !strings.HasPrefix(body, directive) {
		return false
	}
	rest := body[len(directive):]
	return rest == "" || !isIdentByte(rest[0])
}

func (p *Parser) flushVerbatim(end int) {
	if end > p.verbatimStart {
		p.sections = append(p.sections, ast.Verbatim{Span: token.NewSpan(p.verbatimStart, end)})
	}
}

// ---------- Documents ----------

// parseDocRun handles a run of consecutive doc-comment lines starting at
// the current token. A run with an @query line becomes a Query together
// with the statement after it; any other run stays verbatim.
func (p *Parser) parseDocRun() error {
	lines := []int{p.pos}
	next := p.pos + 1
	for p.at(next).Type == token.WHITESPACE &&
		bytes.Count(p.text(p.at(next)), []byte{'\n'}) == 1 &&
		p.at(next+1).Type == token.DOC_COMMENT {
		lines = append(lines, next+1)
		next += 2
	}

	first := -1
	for k, idx := range lines {
		if p.isDirective(p.tokens[idx]) {
			first = k
			break
		}
	}

	if first < 0 {
		for _, idx := range lines {
			tok := p.tokens[idx]
			if strings.HasPrefix(p.commentBody(tok), "->") {
				return diagnostic.New(diagnostic.StructuralError, tok.Span,
					"Expected '@query' before the result type.").
					WithHint("Start the annotation with '-- @query <name>'.")
			}
		}
		p.pos = next
		return nil
	}

	query := &ast.Query{Start: p.tokens[lines[0]].Span.Start}
	for _, idx := range lines[:first] {
		span := p.tokens[idx].Span
		query.Docs = append(query.Docs, token.NewSpan(span.Start+len("--"), span.End))
	}

	annLines := make([]token.Span, 0, len(lines)-first)
	for _, idx := range lines[first:] {
		annLines = append(annLines, p.tokens[idx].Span)
	}
	annotation, err := p.parseAnnotation(annLines)
	if err != nil {
		return err
	}
	query.Annotation = annotation

	p.pos = next
	body, err := p.parseStatement(annLines[0])
	if err != nil {
		return err
	}
	query.Body = body

	p.flushVerbatim(query.Start)
	p.sections = append(p.sections, query)
	p.verbatimStart = body.End
	return nil
}

// parseStatement consumes the statement after an annotation, through its
// terminating ';'. The statement text is not parsed as SQL.
func (p *Parser) parseStatement(directiveLine token.Span) (token.Span, error) {
	for p.at(p.pos).Type == token.WHITESPACE {
		p.pos++
	}

	first := p.at(p.pos)
	switch {
	case token.IsError(first.Type):
		return token.Span{}, p.lexError(first)
	case first.Type == token.EOF || token.IsTrivia(first.Type) || first.Type == token.SEMICOLON:
		return token.Span{}, diagnostic.New(diagnostic.StructuralError, first.Span,
			"Expected a query after the annotation.").
			WithNote("The annotation starts here.", &directiveLine).
			WithHint("Put the SQL statement directly below the annotation.")
	}

	startSpan := first.Span
	last := first
	for {
		tok := p.at(p.pos)
		switch {
		case token.IsError(tok.Type):
			return token.Span{}, p.lexError(tok)

		case tok.Type == token.SEMICOLON:
			p.pos++
			return token.NewSpan(first.Span.Start, tok.Span.End), nil

		case tok.Type == token.EOF:
			end := token.NewSpan(last.Span.End, last.Span.End)
			return token.Span{}, diagnostic.New(diagnostic.StructuralError, end,
				"Expected ';' at the end of the query.").
				WithNote("The query starts here.", &startSpan).
				WithHint("Terminate each annotated query with ';'.")

		case tok.Type == token.DOC_COMMENT && p.isDirective(tok):
			return token.Span{}, diagnostic.New(diagnostic.StructuralError, tok.Span,
				"Expected ';' before the next annotation.").
				WithNote("The unterminated query starts here.", &startSpan).
				WithHint("Terminate each annotated query with ';'.")
		}

		if !token.IsTrivia(tok.Type) {
			last = tok
		}
		p.pos++
	}
}

// lexError converts an error token into a ParseError. Invalid UTF-8 is
// reported at the first offending byte.
func (p *Parser) lexError(tok token.Token) error {
	text := p.text(tok)
	if off := invalidUTF8(text); off >= 0 {
		at := tok.Span.Start + off
		return diagnostic.New(diagnostic.LexError, token.NewSpan(at, at+1),
			"Expected UTF-8 text, found an invalid byte.").
			WithHint("Save the file with UTF-8 encoding.")
	}

	switch tok.Type {
	case token.UNTERMINATED_STRING:
		return diagnostic.New(diagnostic.LexError, tok.Span,
			"Expected a closing ' for this string literal.")
	case token.UNTERMINATED_IDENT:
		return diagnostic.New(diagnostic.LexError, tok.Span,
			"Expected a closing \" for this quoted identifier.")
	case token.UNTERMINATED_COMMENT:
		return diagnostic.New(diagnostic.LexError, tok.Span,
			"Expected '*/' to close this block comment.")
	default:
		return diagnostic.New(diagnostic.LexError, tok.Span,
			"Unexpected control character.")
	}
}

// invalidUTF8 returns the offset of the first invalid byte, or -1.
func invalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
