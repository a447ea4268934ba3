package parser

import (
	"fmt"
	"math"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// Expression evaluation, one method per precedence level, loosest first:
//
//	additive       (+, -)  left-associative
//	multiplicative (*, /)  left-associative
//	unary          (+, -)  prefix, right-recursive
//	primary        INT | "(" expr ")"

// parseExpr evaluates a full expression.
func (p *Parser) parseExpr() (int64, error) {
	return p.parseAdditive()
}

// parseAdditive evaluates multiplicative (('+' | '-') multiplicative)*.
func (p *Parser) parseAdditive() (int64, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.matchAny('+', '-')
		if !ok {
			return left, nil
		}

		right, err := p.parseMultiplicative()
		if err != nil {
			return 0, err
		}

		if op.Char == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// parseMultiplicative evaluates unary (('*' | '/') unary)*.
func (p *Parser) parseMultiplicative() (int64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.matchAny('*', '/')
		if !ok {
			return left, nil
		}

		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}

		if op.Char == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, p.errorAt(DivisionByZero, op, errDivisionByZero)
		}
		// Go truncates toward zero; MinInt64 / -1 wraps to MinInt64.
		left /= right
	}
}

// parseUnary evaluates ('+' | '-') unary | primary.
func (p *Parser) parseUnary() (int64, error) {
	op, ok := p.matchAny('+', '-')
	if !ok {
		return p.parsePrimary()
	}

	if err := p.enter(op); err != nil {
		return 0, err
	}
	defer p.leave()

	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if op.Char == '-' {
		return -v, nil
	}
	return v, nil
}

// parsePrimary evaluates an integer literal or a parenthesized expression.
func (p *Parser) parsePrimary() (int64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, p.errorAtEnd(UnexpectedEndOfInput, errExpectedOperand)
	}

	switch {
	case tok.Kind == token.IntLiteral:
		if tok.Overflow || tok.Value > math.MaxInt64 {
			return 0, p.errorAt(IntegerOverflow, tok, fmt.Sprintf(errLiteralOverflow, tok.Pos()))
		}
		p.advance()
		return int64(tok.Value), nil

	case tok.Is('('):
		p.advance()
		if err := p.enter(tok); err != nil {
			return 0, err
		}
		defer p.leave()

		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}

		closing, ok := p.peek()
		if !ok {
			return 0, p.errorAtEnd(UnmatchedParenthesis, fmt.Sprintf(errUnclosedParen, tok.Pos()))
		}
		if !closing.Is(')') {
			return 0, p.errorAt(UnmatchedParenthesis, closing, fmt.Sprintf(errUnclosedParenFound, tok.Pos(), closing))
		}
		p.advance()
		return v, nil

	default:
		return 0, p.errorAt(UnexpectedToken, tok, fmt.Sprintf(errUnexpectedToken, tok, errExpectedOperand))
	}
}
