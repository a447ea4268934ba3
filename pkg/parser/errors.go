package parser

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

// Parse failure kinds.
const (
	UnexpectedEndOfInput ErrorKind = iota + 1
	UnexpectedToken
	UnmatchedParenthesis
	DivisionByZero
	IntegerOverflow
	DepthExceeded
)

var kindNames = map[ErrorKind]string{
	UnexpectedEndOfInput: "UnexpectedEndOfInput",
	UnexpectedToken:      "UnexpectedToken",
	UnmatchedParenthesis: "UnmatchedParenthesis",
	DivisionByZero:       "DivisionByZero",
	IntegerOverflow:      "IntegerOverflow",
	DepthExceeded:        "DepthExceeded",
}

// String returns the name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinel errors, one per kind. A *ParseError unwraps to the sentinel of
// its kind, so callers can use errors.Is(err, parser.ErrDivisionByZero).
var (
	ErrUnexpectedEndOfInput = errors.New("unexpected end of input")
	ErrUnexpectedToken      = errors.New("unexpected token")
	ErrUnmatchedParenthesis = errors.New("unmatched parenthesis")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrIntegerOverflow      = errors.New("integer literal overflow")
	ErrDepthExceeded        = errors.New("expression nested too deeply")
)

var sentinels = map[ErrorKind]error{
	UnexpectedEndOfInput: ErrUnexpectedEndOfInput,
	UnexpectedToken:      ErrUnexpectedToken,
	UnmatchedParenthesis: ErrUnmatchedParenthesis,
	DivisionByZero:       ErrDivisionByZero,
	IntegerOverflow:      ErrIntegerOverflow,
	DepthExceeded:        ErrDepthExceeded,
}

// Kinds returns every error kind in declaration order.
func Kinds() []ErrorKind {
	return []ErrorKind{
		UnexpectedEndOfInput,
		UnexpectedToken,
		UnmatchedParenthesis,
		DivisionByZero,
		IntegerOverflow,
		DepthExceeded,
	}
}

// Sentinel returns the sentinel error for the kind, or nil.
func (k ErrorKind) Sentinel() error {
	return sentinels[k]
}

// ParseError represents a parse or evaluation failure with position information.
type ParseError struct {
	Kind    ErrorKind
	Pos     token.Position
	Token   *token.Token // offending token, nil at end of input
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Unwrap returns the sentinel error for the kind.
func (e *ParseError) Unwrap() error {
	return sentinels[e.Kind]
}

// KindOf returns the ErrorKind of err, or 0 if err is not a *ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// Common error messages
const (
	errExpectedOperand    = "expected integer literal or '('"
	errUnexpectedToken    = "unexpected token %s, %s"
	errTrailingToken      = "unexpected token %s after complete expression"
	errUnclosedParen      = "'(' opened at %s is never closed"
	errUnclosedParenFound = "'(' opened at %s is not closed, found %s"
	errDivisionByZero     = "division by zero"
	errLiteralOverflow    = "integer literal at %s does not fit in a 64-bit signed integer"
	errDepthExceeded      = "expression nesting exceeds maximum depth %d"
)
