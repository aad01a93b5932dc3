package shared

import "errors"

// Swap failures. Every one of them is terminal for the current attempt and
// leaves pool, oracle and balances untouched.
var (
	ErrNotApproved       = errors.New("not approved")
	ErrInvalidVault      = errors.New("invalid vault")
	ErrZeroTradingTokens = errors.New("zero trading tokens")
	ErrMathOverflow      = errors.New("math overflow")
	ErrMathError         = errors.New("math error")
	ErrExceededSlippage  = errors.New("exceeded slippage")

	// ErrInvariantViolated means the constant product would decrease.
	ErrInvariantViolated = errors.New("constant product decreased")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid amm config")
)
