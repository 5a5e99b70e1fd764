package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/querybinder/pkg/diagnostic"
	"github.com/leapstack-labs/querybinder/pkg/token"
)

// AnnotationLexer tokenizes the lines of one annotation block:
//
//	-- @query get_user
//	-- id: Int, name: Text
//	-- -> User
//
// It reads only the given line spans of the original buffer, and every
// token span is an absolute offset into that buffer.
type AnnotationLexer struct {
	input []byte
	lines []token.Span

	pos  int // current position in input
	end  int // end of the current line
	prev token.Token

	tokens []token.Token
}

// NewAnnotationLexer creates a lexer over lines of input. Each line span
// starts at the "--" comment marker and ends before the newline.
func NewAnnotationLexer(input []byte, lines []token.Span) *AnnotationLexer {
	return &AnnotationLexer{input: input, lines: lines}
}

// Run tokenizes all lines. Each line is terminated by a LINE_END token and
// the sequence by EOF. The returned error is a *diagnostic.ParseError.
func (l *AnnotationLexer) Run() ([]token.Token, error) {
	l.tokens = l.tokens[:0]
	eof := 0

	for _, line := range l.lines {
		line = line.Clamp(len(l.input))
		l.pos = min(line.Start+len("--"), line.End)
		l.end = line.End
		l.prev = token.Token{Type: token.LINE_END, Span: token.NewSpan(l.pos, l.pos)}

		for {
			l.skipSpace()
			if l.pos >= l.end {
				break
			}
			if err := l.next(); err != nil {
				return nil, err
			}
		}

		if l.prev.Type == token.COLON || l.prev.Type == token.ARROW {
			return nil, l.missingType(l.pos)
		}

		l.emit(token.LINE_END, l.end, l.end)
		eof = l.end
	}

	l.emit(token.EOF, eof, eof)
	return l.tokens, nil
}

func (l *AnnotationLexer) emit(typ token.TokenType, start, end int) {
	tok := token.Token{Type: typ, Span: token.NewSpan(start, end)}
	l.tokens = append(l.tokens, tok)
	l.prev = tok
}

func (l *AnnotationLexer) skipSpace() {
	for l.pos < l.end {
		switch l.input[l.pos] {
		case ' ', '\t', '\r', '\f', '\v':
			l.pos++
		default:
			return
		}
	}
}

func (l *AnnotationLexer) next() error {
	if l.prev.Type == token.COLON || l.prev.Type == token.ARROW {
		return l.readType()
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '@':
		l.pos++
		for l.pos < l.end && isIdentByte(l.input[l.pos]) {
			l.pos++
		}
		if string(l.input[start+1:l.pos]) != "query" {
			if l.pos == start+1 {
				return diagnostic.New(diagnostic.AnnotationSyntaxError, token.NewSpan(start, start+1),
					"Expected a directive name after '@'.").
					WithHint("Queries are declared with '@query <name>'.")
			}
			return diagnostic.New(diagnostic.AnnotationSyntaxError, token.NewSpan(start, l.pos),
				"Expected '@query', found an unknown directive.")
		}
		l.emit(token.QUERY, start, l.pos)

	case c == '-' && l.pos+1 < l.end && l.input[l.pos+1] == '>':
		l.pos += 2
		l.emit(token.ARROW, start, l.pos)

	case c == ':':
		l.pos++
		l.emit(token.COLON, start, l.pos)

	case c == ',':
		l.pos++
		l.emit(token.COMMA, start, l.pos)

	case isIdentByte(c):
		for l.pos < l.end && isIdentByte(l.input[l.pos]) {
			l.pos++
		}
		l.emit(token.ANN_IDENT, start, l.pos)

	default:
		return diagnostic.New(diagnostic.AnnotationSyntaxError, l.runeSpan(start),
			"Unexpected character in annotation.")
	}

	return nil
}

// readType reads the type after ':' or '->'. Types may contain paths and
// balanced brackets, such as Option<User>, []byte or Map<Text, Int>.
// Commas and spaces end the type unless they are inside brackets.
func (l *AnnotationLexer) readType() error {
	start := l.pos
	var open []int // offsets of unclosed brackets

scan:
	for l.pos < l.end {
		c := l.input[l.pos]
		switch {
		case c == '<' || c == '[' || c == '(':
			open = append(open, l.pos)
		case c == '>' || c == ']' || c == ')':
			if len(open) == 0 {
				return diagnostic.New(diagnostic.AnnotationSyntaxError, token.NewSpan(l.pos, l.pos+1),
					"Expected a type, found an unmatched closing bracket.")
			}
			opener := open[len(open)-1]
			if closing(l.input[opener]) != c {
				openSpan := token.NewSpan(opener, opener+1)
				return diagnostic.New(diagnostic.AnnotationSyntaxError, token.NewSpan(l.pos, l.pos+1),
					"Expected a matching closing bracket.").
					WithNote("The bracket was opened here.", &openSpan)
			}
			open = open[:len(open)-1]
		case len(open) > 0 && (c == ',' || c == ' ' || c == '\t'):
		case isIdentByte(c) || strings.IndexByte(".:?*&!", c) >= 0:
		default:
			break scan
		}
		l.pos++
	}

	if len(open) > 0 {
		opener := open[len(open)-1]
		return diagnostic.New(diagnostic.AnnotationSyntaxError, token.NewSpan(opener, l.pos),
			"Expected a closing bracket in the type.").
			WithHint("Types must be on a single line.")
	}
	if l.pos == start {
		return l.missingType(start)
	}

	l.emit(token.TYPE_NAME, start, l.pos)
	return nil
}

// missingType reports a type that should follow ':' or '->' at offset.
func (l *AnnotationLexer) missingType(offset int) error {
	span := token.NewSpan(l.prev.Span.End, l.prev.Span.End)
	if offset < l.end {
		span = l.runeSpan(offset)
	}
	if l.prev.Type == token.ARROW {
		return diagnostic.New(diagnostic.AnnotationSyntaxError, span,
			"Expected a result type after '->'.").
			WithHint("Declare the result type like '-- -> User'.")
	}
	return diagnostic.New(diagnostic.AnnotationSyntaxError, span,
		"Expected a parameter type after ':'.").
		WithHint("Declare parameters like '-- id: Int'.")
}

// runeSpan returns the span of the character at offset, limited to the
// current line.
func (l *AnnotationLexer) runeSpan(offset int) token.Span {
	_, size := utf8.DecodeRune(l.input[offset:l.end])
	return token.NewSpan(offset, offset+max(size, 1))
}

func closing(open byte) byte {
	switch open {
	case '<':
		return '>'
	case '[':
		return ']'
	default:
		return ')'
	}
}
