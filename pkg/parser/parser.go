// Package parser evaluates integer arithmetic expressions.
//
// # Usage
//
//	v, err := parser.Evaluate("(2+3)*4")
//	if err != nil {
//	    // err is a *parser.ParseError
//	}
//
// # Grammar Overview
//
// The parser is a recursive descent evaluator. Each grammar level is one
// method; values are computed while descending, no syntax tree is built.
//
//	expr           → additive
//	additive       → multiplicative (("+" | "-") multiplicative)*
//	multiplicative → unary (("*" | "/") unary)*
//	unary          → ("+" | "-") unary | primary
//	primary        → INT | "(" expr ")"
//
// Binary operators are left-associative. Arithmetic is on int64 and wraps on
// overflow; division truncates toward zero.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/lexer"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// DefaultMaxDepth bounds nesting of parentheses and unary signs.
const DefaultMaxDepth = 1000

// Option configures evaluation.
type Option func(*options)

type options struct {
	maxDepth  int
	lexerOpts []lexer.Option
}

// WithMaxDepth sets the maximum nesting depth. Zero disables the limit.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithLexerOptions passes options to the lexer used by Evaluate.
func WithLexerOptions(opts ...lexer.Option) Option {
	return func(o *options) { o.lexerOpts = append(o.lexerOpts, opts...) }
}

func buildOptions(opts []Option) options {
	o := options{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parser walks a token sequence once, left to right.
type Parser struct {
	tokens   []token.Token
	pos      int // index of the current token
	depth    int
	maxDepth int
	end      token.Position // position reported for end-of-input errors
}

// New creates a parser over tokens.
func New(tokens []token.Token, opts ...Option) *Parser {
	o := buildOptions(opts)
	end := token.Position{Line: 1, Column: 1}
	if n := len(tokens); n > 0 {
		end = tokens[n-1].Span.End
	}
	return &Parser{
		tokens:   tokens,
		maxDepth: o.maxDepth,
		end:      end,
	}
}

// Evaluate tokenizes and evaluates source.
func Evaluate(source string, opts ...Option) (int64, error) {
	o := buildOptions(opts)
	return EvaluateTokens(lexer.Tokenize(source, o.lexerOpts...), opts...)
}

// EvaluateTokens evaluates a complete token sequence as one expression.
func EvaluateTokens(tokens []token.Token, opts ...Option) (int64, error) {
	return New(tokens, opts...).Parse()
}

// Parse evaluates the expression and requires all tokens to be consumed.
func (p *Parser) Parse() (int64, error) {
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if tok, ok := p.peek(); ok {
		return 0, p.errorAt(UnexpectedToken, tok, fmt.Sprintf(errTrailingToken, tok))
	}
	return v, nil
}

// ---------- Token Helpers ----------

// peek returns the current token without consuming it.
func (p *Parser) peek() (token.Token, bool) {
	if p.pos >= len(p.tokens) {
		return token.Token{}, false
	}
	return p.tokens[p.pos], true
}

// advance consumes the current token.
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

// matchAny consumes the current token if it is one of the given characters.
func (p *Parser) matchAny(chars ...rune) (token.Token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token.Token{}, false
	}
	for _, c := range chars {
		if tok.Is(c) {
			p.advance()
			return tok, true
		}
	}
	return token.Token{}, false
}

// enter records one more level of nesting.
func (p *Parser) enter(at token.Token) error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return p.errorAt(DepthExceeded, at, fmt.Sprintf(errDepthExceeded, p.maxDepth))
	}
	return nil
}

// leave pops one level of nesting.
func (p *Parser) leave() {
	p.depth--
}

// errorAt builds an error pointing at tok.
func (p *Parser) errorAt(kind ErrorKind, tok token.Token, msg string) *ParseError {
	return &ParseError{
		Kind:    kind,
		Pos:     tok.Pos(),
		Token:   &tok,
		Message: msg,
	}
}

// errorAtEnd builds an error pointing past the last token.
func (p *Parser) errorAtEnd(kind ErrorKind, msg string) *ParseError {
	return &ParseError{
		Kind:    kind,
		Pos:     p.end,
		Message: msg,
	}
}
