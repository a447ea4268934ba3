package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenString(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
		want string
	}{
		{"int", Int(1234), "INT(1234)"},
		{"name", Ident("a25"), "NAME(a25)"},
		{"other", Char('+'), "OTHER('+')"},
		{"zero value", Token{}, "KIND(0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tok.String())
		})
	}
}

func TestTokenLiteral(t *testing.T) {
	assert.Equal(t, "42", Int(42).Literal())
	assert.Equal(t, "foo", Ident("foo").Literal())
	assert.Equal(t, "(", Char('(').Literal())
	assert.Empty(t, Token{}.Literal())
}

func TestTokenIs(t *testing.T) {
	assert.True(t, Char('(').Is('('))
	assert.False(t, Char('(').Is(')'))
	// An integer literal never matches a character, even with the same code point.
	assert.False(t, Int('(').Is('('))
}

func TestTokenEqualIgnoresSpan(t *testing.T) {
	a := Int(7)
	a.Span = Span{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 2, Offset: 1}}
	b := Int(7)
	b.Span = Span{Start: Position{Line: 3, Column: 9, Offset: 20}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Int(8)))
	assert.False(t, Ident("x").Equal(Char('x')))

	over := Int(7)
	over.Overflow = true
	assert.False(t, a.Equal(over), "overflow flag is part of the payload")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "INT", IntLiteral.String())
	assert.Equal(t, "NAME", Name.String())
	assert.Equal(t, "OTHER", Other.String())
	assert.Equal(t, "KIND(9)", Kind(9).String())
}

func TestPosition(t *testing.T) {
	assert.False(t, Position{}.IsValid())
	assert.Equal(t, "-", Position{}.String())
	assert.Equal(t, "2:5", Position{Line: 2, Column: 5, Offset: 9}.String())

	span := Span{Start: Position{Line: 1, Column: 1, Offset: 0}, End: Position{Line: 1, Column: 4, Offset: 3}}
	assert.True(t, span.IsValid())
	assert.True(t, span.Contains(0))
	assert.True(t, span.Contains(2))
	assert.False(t, span.Contains(3))
}
