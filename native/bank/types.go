package bank

import (
	"math/big"

	"bankchain/crypto"
)

// Investor records a single account's deposit position. Records are reset,
// never deleted: HasActiveDeposit gates re-entry.
type Investor struct {
	Address          crypto.Address `json:"address"`
	HasActiveDeposit bool           `json:"hasActiveDeposit"`
	Amount           *big.Int       `json:"amount"`
	StartHeight      uint64         `json:"startHeight"`
}

// Borrower records a single account's loan position and the collateral the
// vault holds against it.
type Borrower struct {
	Address       crypto.Address `json:"address"`
	HasActiveLoan bool           `json:"hasActiveLoan"`
	Amount        *big.Int       `json:"amount"`
	Collateral    *big.Int       `json:"collateral"`
}

// BankState carries the engine-global accounting: the configured annual rate
// and the running sum of active deposit principals.
type BankState struct {
	AnnualRatePercent uint64   `json:"annualRatePercent"`
	TotalDeposited    *big.Int `json:"totalDeposited"`
}
