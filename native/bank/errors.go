package bank

import "errors"

var (
	// ErrNilState indicates the engine was used before wiring a state backend.
	ErrNilState = errors.New("bank engine: state not configured")
	// ErrNilCollaborator indicates construction without the token ledger or
	// price feed capability.
	ErrNilCollaborator = errors.New("bank engine: token ledger and price feed required")
	// ErrInvalidRate rejects annual rates outside [1,100].
	ErrInvalidRate = errors.New("bank engine: annual rate must be between 1 and 100")
	// ErrUnauthorized is returned when a caller other than the owner adjusts
	// engine parameters.
	ErrUnauthorized = errors.New("bank engine: caller is not the bank owner")
	// ErrInvalidAmount rejects nil or negative amounts.
	ErrInvalidAmount = errors.New("bank engine: amount must be positive")
	// ErrDuplicateDeposit is returned when an account with an active deposit
	// deposits again.
	ErrDuplicateDeposit = errors.New("bank engine: account already has an active deposit")
	// ErrBelowMinimum is returned for deposits under the 1 BNK floor.
	ErrBelowMinimum = errors.New("bank engine: minimum deposit is 1 BNK")
	// ErrInsufficientBalance is returned when the caller cannot cover the
	// attached value.
	ErrInsufficientBalance = errors.New("bank engine: insufficient balance")
	// ErrNoActiveDeposit is returned when a withdrawal finds no position.
	ErrNoActiveDeposit = errors.New("bank engine: account has no active deposit")
	// ErrDuplicateLoan is returned when an account with an active loan
	// borrows again.
	ErrDuplicateLoan = errors.New("bank engine: account already has an active loan")
	// ErrInsufficientLiquidity is returned when the vault cannot cover a
	// payout.
	ErrInsufficientLiquidity = errors.New("bank engine: insufficient liquidity")
	// ErrNoActiveLoan is returned when a repayment finds no position.
	ErrNoActiveLoan = errors.New("bank engine: account has no active loan")
	// ErrAmountMismatch is returned when a repayment does not equal the
	// outstanding principal exactly.
	ErrAmountMismatch = errors.New("bank engine: repayment must equal the outstanding loan amount")
)
