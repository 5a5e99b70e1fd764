package parser

import (
	"github.com/leapstack-labs/querybinder/pkg/ast"
	"github.com/leapstack-labs/querybinder/pkg/diagnostic"
	"github.com/leapstack-labs/querybinder/pkg/lexer"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

// annotationParser reads the tokens of one annotation block:
//
//	annotation → QUERY ANN_IDENT LINE_END param_line* ARROW TYPE_NAME LINE_END EOF
//	param_line → LINE_END | param (COMMA param)* [COMMA] LINE_END
//	param      → ANN_IDENT COLON TYPE_NAME
type annotationParser struct {
	input  []byte
	tokens []token.Token
	pos    int
}

// parseAnnotation lexes the given doc-comment lines and parses them into
// an Annotation. The first line holds the @query directive.
func (p *Parser) parseAnnotation(lines []token.Span) (ast.Annotation, error) {
	tokens, err := lexer.NewAnnotationLexer(p.input, lines).Run()
	if err != nil {
		return ast.Annotation{}, err
	}
	ap := &annotationParser{input: p.input, tokens: tokens}
	return ap.parse()
}

func (ap *annotationParser) peek() token.Token {
	if ap.pos < len(ap.tokens) {
		return ap.tokens[ap.pos]
	}
	return ap.tokens[len(ap.tokens)-1]
}

func (ap *annotationParser) advance() token.Token {
	tok := ap.peek()
	if ap.pos < len(ap.tokens) {
		ap.pos++
	}
	return tok
}

// after returns a zero-length span right after tok.
func after(tok token.Token) token.Span {
	return token.NewSpan(tok.Span.End, tok.Span.End)
}

// unexpected returns the span to report when tok is not what was expected.
// Line ends and EOF have no text, so the error points right after prev.
func unexpected(tok, prev token.Token) token.Span {
	if tok.Type == token.LINE_END || tok.Type == token.EOF {
		return after(prev)
	}
	return tok.Span
}

func syntaxError(span token.Span, message string) *diagnostic.ParseError {
	return diagnostic.New(diagnostic.AnnotationSyntaxError, span, message)
}

func (ap *annotationParser) parse() (ast.Annotation, error) {
	var ann ast.Annotation

	query := ap.advance()
	if query.Type != token.QUERY {
		return ann, syntaxError(query.Span, "Expected '@query' at the start of the annotation.")
	}

	name := ap.peek()
	if name.Type != token.ANN_IDENT {
		return ann, syntaxError(unexpected(name, query), "Expected a query name after '@query'.").
			WithHint("Name the query like '-- @query get_user'.")
	}
	ap.advance()
	ann.Name = name.Span

	if tok := ap.peek(); tok.Type != token.LINE_END {
		return ann, syntaxError(tok.Span, "Expected the end of the line after the query name.").
			WithHint("Declare parameters on the lines below '@query'.")
	}
	ap.advance()

	seen := make(map[string]token.Span)
	prev := name
	for {
		tok := ap.peek()
		switch tok.Type {
		case token.LINE_END:
			prev = ap.advance()

		case token.ANN_IDENT:
			last, err := ap.parseParamLine(&ann, seen)
			if err != nil {
				return ann, err
			}
			prev = last

		case token.ARROW:
			ap.advance()
			result := ap.advance()
			if result.Type != token.TYPE_NAME {
				return ann, syntaxError(unexpected(result, tok), "Expected a result type after '->'.")
			}
			ann.ResultType = result.Span

			if end := ap.advance(); end.Type != token.LINE_END {
				return ann, syntaxError(end.Span, "Expected the end of the line after the result type.")
			}
			if rest := ap.peek(); rest.Type != token.EOF {
				return ann, syntaxError(rest.Span, "Expected the query after the result type, found more annotation lines.").
					WithHint("The '-> Type' line must be the last line of the annotation.")
			}
			return ann, nil

		case token.EOF:
			return ann, syntaxError(after(prev), "Expected a result type line like '-- -> User'.").
				WithHint("Every annotation ends with the type of its result rows.")

		case token.QUERY:
			return ann, syntaxError(tok.Span, "Expected one '@query' per annotation, found a second one.").
				WithNote("The annotation starts here.", &query.Span)

		default:
			return ann, syntaxError(tok.Span, "Expected a parameter name.").
				WithHint("Declare parameters like '-- id: Int'.")
		}
	}
}

// parseParamLine parses the parameters on one line and returns the
// LINE_END token that ends it.
func (ap *annotationParser) parseParamLine(ann *ast.Annotation, seen map[string]token.Span) (token.Token, error) {
	for {
		ident := ap.advance()

		colon := ap.peek()
		if colon.Type != token.COLON {
			return colon, syntaxError(unexpected(colon, ident), "Expected ':' after the parameter name.").
				WithHint("Declare parameters like '-- id: Int'.")
		}
		ap.advance()

		typ := ap.advance()
		if typ.Type != token.TYPE_NAME {
			return typ, syntaxError(unexpected(typ, colon), "Expected a parameter type after ':'.")
		}

		name := ident.Span.Resolve(ap.input)
		if first, ok := seen[name]; ok {
			return ident, diagnostic.New(diagnostic.StructuralError, ident.Span,
				"Expected a unique parameter name, found a duplicate.").
				WithNote("The parameter is first declared here.", &first)
		}
		seen[name] = ident.Span
		ann.Parameters = append(ann.Parameters, ast.Parameter{Ident: ident.Span, Type: typ.Span})

		sep := ap.advance()
		switch sep.Type {
		case token.LINE_END:
			return sep, nil
		case token.COMMA:
			next := ap.peek()
			if next.Type == token.LINE_END {
				return ap.advance(), nil
			}
			if next.Type != token.ANN_IDENT {
				return next, syntaxError(next.Span, "Expected a parameter name after ','.")
			}
		default:
			return sep, syntaxError(sep.Span, "Expected ',' or the end of the line after the parameter type.")
		}
	}
}
