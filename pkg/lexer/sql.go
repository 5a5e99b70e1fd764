// Package lexer provides the two tokenizers used by the document parser:
// SQLLexer for whole source files and AnnotationLexer for the contents of
// one @query comment block.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/querybinder/pkg/token"
)

// SQLLexer tokenizes SQL input.
//
// The token stream covers the whole input without gaps and ends with EOF.
// Malformed input never stops the scan; it is reported as an error token
// (see token.IsError) and scanning continues after it.
type SQLLexer struct {
	input []byte
	pos   int // current position in input

	// lineStart is true while only spaces and tabs were seen since the
	// last newline. A "--" comment found in that state is a doc comment.
	lineStart bool

	tokens []token.Token
}

// NewSQLLexer creates a new lexer for the given input.
func NewSQLLexer(input []byte) *SQLLexer {
	return &SQLLexer{input: input, lineStart: true}
}

// Run tokenizes the entire input.
func (l *SQLLexer) Run() []token.Token {
	l.pos = 0
	l.lineStart = true
	l.tokens = make([]token.Token, 0, len(l.input)/4+1)

	for l.pos < len(l.input) {
		start := l.pos
		typ := l.next()
		if l.pos <= start {
			// Every scan step must consume input.
			l.pos = start + 1
			typ = token.ILLEGAL
		}
		l.emit(typ, start)
	}

	end := len(l.input)
	l.tokens = append(l.tokens, token.Token{Type: token.EOF, Span: token.NewSpan(end, end)})
	return l.tokens
}

// Tokenize returns all tokens from the input.
func Tokenize(input []byte) []token.Token {
	return NewSQLLexer(input).Run()
}

func (l *SQLLexer) emit(typ token.TokenType, start int) {
	text := l.input[start:l.pos]

	// Comments and literals may contain arbitrary bytes. Anything that is
	// not valid UTF-8 is an error, so every span of a successful parse can
	// be resolved to a string.
	if !token.IsError(typ) && !utf8.Valid(text) {
		typ = token.ILLEGAL
	}

	if typ == token.WHITESPACE {
		for _, c := range text {
			switch c {
			case '\n':
				l.lineStart = true
			case ' ', '\t':
			default:
				l.lineStart = false
			}
		}
	} else {
		l.lineStart = false
	}

	l.tokens = append(l.tokens, token.Token{Type: typ, Span: token.NewSpan(start, l.pos)})
}

func (l *SQLLexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// next scans one token starting at l.pos and returns its type.
func (l *SQLLexer) next() token.TokenType {
	c := l.input[l.pos]

	switch {
	case isSpace(c):
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.pos++
		}
		return token.WHITESPACE

	case c == '-' && l.peek(1) == '-':
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
		if l.lineStart {
			return token.DOC_COMMENT
		}
		return token.COMMENT

	case c == '/' && l.peek(1) == '*':
		return l.readBlockComment()

	case c == '\'':
		if l.readQuoted('\'') {
			return token.STRING
		}
		return token.UNTERMINATED_STRING

	case c == '"':
		if l.readQuoted('"') {
			return token.QUOTED_IDENT
		}
		return token.UNTERMINATED_IDENT

	case c == ';':
		l.pos++
		return token.SEMICOLON

	case isDigit(c):
		return l.readNumber()

	case isIdentByte(c):
		l.readIdentifier()
		return token.IDENT

	case c < utf8.RuneSelf:
		l.pos++
		if c < 0x20 || c == 0x7f {
			return token.ILLEGAL
		}
		return token.PUNCT
	}

	r, size := utf8.DecodeRune(l.input[l.pos:])
	if r == utf8.RuneError && size <= 1 {
		l.pos++
		return token.ILLEGAL
	}
	if unicode.IsLetter(r) {
		l.readIdentifier()
		return token.IDENT
	}
	l.pos += size
	return token.PUNCT
}

// readBlockComment reads a non-nesting /* ... */ comment.
func (l *SQLLexer) readBlockComment() token.TokenType {
	l.pos += 2 // skip "/*"
	for l.pos < len(l.input) {
		if l.input[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return token.BLOCK_COMMENT
		}
		l.pos++
	}
	return token.UNTERMINATED_COMMENT
}

// readQuoted reads a literal delimited by quote, where a doubled quote is
// an escaped quote. Returns false if the input ends before the closing quote.
func (l *SQLLexer) readQuoted(quote byte) bool {
	l.pos++ // skip opening quote
	for l.pos < len(l.input) {
		if l.input[l.pos] == quote {
			if l.peek(1) == quote {
				l.pos += 2
				continue
			}
			l.pos++
			return true
		}
		l.pos++
	}
	return false
}

// readIdentifier reads a run of identifier characters: ASCII letters,
// digits and underscores, and non-ASCII letters and digits.
func (l *SQLLexer) readIdentifier() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isIdentByte(c) {
			l.pos++
			continue
		}
		if c < utf8.RuneSelf {
			return
		}
		r, size := utf8.DecodeRune(l.input[l.pos:])
		if r == utf8.RuneError || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return
		}
		l.pos += size
	}
}

// readNumber reads an integer or decimal literal. A digit run that
// continues with letters is an identifier; the lexer does not reject a
// leading digit.
func (l *SQLLexer) readNumber() token.TokenType {
	start := l.pos
	l.readIdentifier()

	for _, c := range l.input[start:l.pos] {
		if !isDigit(c) {
			return token.IDENT
		}
	}

	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.pos++ // skip '.'
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return token.NUMBER
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isIdentByte reports whether c is part of an identifier. This is also
// true for digits, even though identifiers should not start with one.
func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '_'
}
