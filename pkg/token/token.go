// Package token defines the token types shared by the SQL lexer and the
// annotation lexer.
//
// Both lexers produce a finite sequence of tokens terminated by EOF. Tokens
// carry only a kind and a Span into the original input buffer; the text is
// resolved on demand.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // ALL_CAPS names follow the SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota

	// Error tokens. The lexer never aborts; bad input becomes one of these.
	ILLEGAL              // invalid UTF-8, control byte
	UNTERMINATED_STRING  // 'abc
	UNTERMINATED_IDENT   // "abc
	UNTERMINATED_COMMENT // /* abc

	// SQL trivia
	WHITESPACE
	COMMENT       // -- comment (not at line start)
	BLOCK_COMMENT // /* comment */
	DOC_COMMENT   // -- comment at the start of a line

	// SQL tokens
	IDENT        // users, get_user, 1abc
	NUMBER       // 42, 3.14
	STRING       // 'hello'
	QUOTED_IDENT // "Users"
	SEMICOLON    // ;
	PUNCT        // any other symbol

	// Annotation tokens
	QUERY     // @query
	ANN_IDENT // identifier inside an annotation
	COLON     // :
	ARROW     // ->
	COMMA     // ,
	TYPE_NAME // Int, Option<User>, []byte
	LINE_END  // end of one annotation line
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF: "EOF",

	ILLEGAL:              "ILLEGAL",
	UNTERMINATED_STRING:  "UNTERMINATED_STRING",
	UNTERMINATED_IDENT:   "UNTERMINATED_IDENT",
	UNTERMINATED_COMMENT: "UNTERMINATED_COMMENT",

	WHITESPACE:    "WHITESPACE",
	COMMENT:       "COMMENT",
	BLOCK_COMMENT: "BLOCK_COMMENT",
	DOC_COMMENT:   "DOC_COMMENT",

	IDENT:        "IDENT",
	NUMBER:       "NUMBER",
	STRING:       "STRING",
	QUOTED_IDENT: "QUOTED_IDENT",
	SEMICOLON:    ";",
	PUNCT:        "PUNCT",

	QUERY:     "@query",
	ANN_IDENT: "ANN_IDENT",
	COLON:     ":",
	ARROW:     "->",
	COMMA:     ",",
	TYPE_NAME: "TYPE_NAME",
	LINE_END:  "LINE_END",
}

// IsError returns true if the token type represents malformed input.
func IsError(t TokenType) bool {
	return t >= ILLEGAL && t <= UNTERMINATED_COMMENT
}

// IsTrivia returns true for whitespace and comments that do not start or
// end a statement.
func IsTrivia(t TokenType) bool {
	return t >= WHITESPACE && t <= DOC_COMMENT
}

// IsAnnotation returns true if the token type belongs to the annotation lexer.
func IsAnnotation(t TokenType) bool {
	return t >= QUERY && t <= LINE_END
}

// Token represents a lexical token with its location.
type Token struct {
	Type TokenType
	Span Span
}

// Text returns the source text of the token.
func (t Token) Text(input []byte) string {
	return t.Span.Resolve(input)
}

func (t Token) String() string {
	return fmt.Sprintf("%s[%d:%d]", t.Type, t.Span.Start, t.Span.End)
}
