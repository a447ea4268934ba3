// Package lexer converts expression source text into a sequence of tokens.
//
// The lexer is total: every input produces a token sequence, and characters
// with no meaning in the grammar become single-character Other tokens.
// Whitespace is discarded.
package lexer

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Option configures a Lexer.
type Option func(*Lexer)

// WithRadixPrefixes enables 0x, 0b and 0o prefixed integer literals.
func WithRadixPrefixes() Option {
	return func(l *Lexer) { l.radixPrefixes = true }
}

// Lexer tokenizes expression source text.
type Lexer struct {
	input   string
	pos     int  // byte offset of ch
	readPos int  // byte offset after ch
	ch      rune // current rune under examination, eof at end of input
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	radixPrefixes bool
}

const eof = -1

// New creates a new Lexer for the given input.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.readChar()
	return l
}

// Tokenize returns all tokens from the input in source order.
func Tokenize(input string, opts ...Option) []token.Token {
	l := New(input, opts...)
	var tokens []token.Token
	for {
		tok, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// readChar advances to the next rune.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = eof
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.readPos += size
	l.col++
}

// peekChar returns the next rune without advancing.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// currentPos returns the position of the current rune.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// Next returns the next token. The second result is false once the input
// is exhausted.
func (l *Lexer) Next() (token.Token, bool) {
	l.skipWhitespace()

	start := l.currentPos()

	var tok token.Token
	switch {
	case l.ch == eof:
		return token.Token{}, false
	case isDigit(l.ch):
		tok = l.readNumber()
	case unicode.IsLetter(l.ch):
		tok = token.Ident(l.readName())
	default:
		tok = token.Char(l.ch)
		l.readChar()
	}

	tok.Span = token.Span{Start: start, End: l.currentPos()}
	return tok, true
}

// skipWhitespace discards spaces, tabs and line breaks.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readName reads a letter followed by letters and decimal digits.
func (l *Lexer) readName() string {
	start := l.pos
	for unicode.IsLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer literal, saturating at MaxUint64.
func (l *Lexer) readNumber() token.Token {
	base := uint64(10)
	if l.radixPrefixes && l.ch == '0' {
		if b := prefixBase(l.peekChar()); b != 0 {
			// Only commit to the prefix when a digit of that base follows it.
			if r := l.peekAfterPrefix(); r != eof && digitValue(r) < b {
				l.readChar() // skip '0'
				l.readChar() // skip prefix letter
				base = b
			}
		}
	}

	var (
		val      uint64
		overflow bool
	)
	for l.ch != eof && digitValue(l.ch) < base {
		d := digitValue(l.ch)
		if !overflow && val > (math.MaxUint64-d)/base {
			overflow = true
		}
		if overflow {
			val = math.MaxUint64
		} else {
			val = val*base + d
		}
		l.readChar()
	}

	tok := token.Int(val)
	tok.Overflow = overflow
	return tok
}

// peekAfterPrefix returns the rune two positions after the current one.
func (l *Lexer) peekAfterPrefix() rune {
	if l.readPos >= len(l.input) {
		return eof
	}
	_, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	next := l.readPos + size
	if next >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[next:])
	return r
}

// prefixBase returns the base selected by a radix prefix letter, or 0.
func prefixBase(r rune) uint64 {
	switch r {
	case 'x', 'X':
		return 16
	case 'b', 'B':
		return 2
	case 'o', 'O':
		return 8
	default:
		return 0
	}
}

// digitValue returns the value of a hex digit, or 16 for anything else.
func digitValue(r rune) uint64 {
	switch {
	case r >= '0' && r <= '9':
		return uint64(r - '0')
	case r >= 'a' && r <= 'f':
		return uint64(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return uint64(r-'A') + 10
	default:
		return 16
	}
}

// isDigit returns true if r is an ASCII decimal digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
