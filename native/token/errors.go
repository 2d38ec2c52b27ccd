package token

import "errors"

var (
	// ErrNilState indicates the ledger was used before wiring a state backend.
	ErrNilState = errors.New("token ledger: state not configured")
	// ErrUnauthorized is returned when a caller without the issuance
	// capability attempts to mint or reassign the minter role.
	ErrUnauthorized = errors.New("token ledger: caller does not hold the minter role")
	// ErrInvalidAmount rejects nil, zero, or negative amounts.
	ErrInvalidAmount = errors.New("token ledger: amount must be positive")
	// ErrInsufficientBalance is returned when an account cannot cover a
	// transfer.
	ErrInsufficientBalance = errors.New("token ledger: insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer exceeds
	// the remaining authorization.
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	// ErrOverflow is returned when minting would push a balance or the total
	// supply past the 256-bit bound.
	ErrOverflow = errors.New("token ledger: supply overflow")
)
