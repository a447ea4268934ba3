// Package token defines the lexical tokens of integer arithmetic expressions.
//
// A Token is a tagged value with exactly one active variant: an integer
// literal, a name, or a single "other" character such as an operator or a
// parenthesis.
package token

import (
	"fmt"
	"strconv"
)

// Kind identifies the active variant of a Token.
type Kind uint8

// Token kinds.
const (
	IntLiteral Kind = iota + 1 // 1234
	Name                       // a25
	Other                      // + - * / ( ) and anything else
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case IntLiteral:
		return "INT"
	case Name:
		return "NAME"
	case Other:
		return "OTHER"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Token is a single classified lexical unit.
type Token struct {
	Kind Kind

	Value uint64 // IntLiteral
	Text  string // Name; references the source string
	Char  rune   // Other

	// Overflow is set on an IntLiteral whose digits exceeded MaxUint64.
	// Value is saturated in that case.
	Overflow bool

	Span Span
}

// Int returns an integer literal token.
func Int(v uint64) Token {
	return Token{Kind: IntLiteral, Value: v}
}

// Ident returns a name token.
func Ident(text string) Token {
	return Token{Kind: Name, Text: text}
}

// Char returns a single-character token.
func Char(r rune) Token {
	return Token{Kind: Other, Char: r}
}

// Is reports whether t is an Other token carrying r.
func (t Token) Is(r rune) bool {
	return t.Kind == Other && t.Char == r
}

// Pos returns the start position of the token.
func (t Token) Pos() Position {
	return t.Span.Start
}

// Literal returns the token's payload as source-like text.
func (t Token) Literal() string {
	switch t.Kind {
	case IntLiteral:
		return strconv.FormatUint(t.Value, 10)
	case Name:
		return t.Text
	case Other:
		return string(t.Char)
	default:
		return ""
	}
}

// Equal reports whether two tokens have the same kind and payload,
// ignoring their position in the source.
func (t Token) Equal(o Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case IntLiteral:
		return t.Value == o.Value && t.Overflow == o.Overflow
	case Name:
		return t.Text == o.Text
	case Other:
		return t.Char == o.Char
	}
	return true
}

// String renders the token as INT(12), NAME(a25) or OTHER('+').
func (t Token) String() string {
	switch t.Kind {
	case IntLiteral:
		return fmt.Sprintf("INT(%d)", t.Value)
	case Name:
		return fmt.Sprintf("NAME(%s)", t.Text)
	case Other:
		return fmt.Sprintf("OTHER(%q)", t.Char)
	default:
		return t.Kind.String()
	}
}
