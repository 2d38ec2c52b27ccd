package events

import (
	"math/big"
	"strconv"

	"bankchain/core/types"
	"bankchain/crypto"
)

const (
	// TypeBankDeposited is emitted when an investor opens a deposit.
	TypeBankDeposited = "bank.deposited"
	// TypeBankWithdrawn is emitted when a deposit is closed and interest paid.
	TypeBankWithdrawn = "bank.withdrawn"
	// TypeBankBorrowed is emitted when a collateralized loan is opened.
	TypeBankBorrowed = "bank.borrowed"
	// TypeBankLoanRepaid is emitted when a loan is settled in full.
	TypeBankLoanRepaid = "bank.loan_repaid"
)

type BankDeposited struct {
	Account crypto.Address
	Amount  *big.Int
	Height  uint64
}

func (BankDeposited) EventType() string { return TypeBankDeposited }

func (e BankDeposited) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	return &types.Event{
		Type: TypeBankDeposited,
		Attributes: map[string]string{
			"account": e.Account.String(),
			"amount":  amount.String(),
			"height":  strconv.FormatUint(e.Height, 10),
		},
	}
}

type BankWithdrawn struct {
	Account   crypto.Address
	Principal *big.Int
	Interest  *big.Int
	Elapsed   uint64
}

func (BankWithdrawn) EventType() string { return TypeBankWithdrawn }

func (e BankWithdrawn) Event() *types.Event {
	principal := big.NewInt(0)
	if e.Principal != nil {
		principal = new(big.Int).Set(e.Principal)
	}
	interest := big.NewInt(0)
	if e.Interest != nil {
		interest = new(big.Int).Set(e.Interest)
	}
	return &types.Event{
		Type: TypeBankWithdrawn,
		Attributes: map[string]string{
			"account":   e.Account.String(),
			"principal": principal.String(),
			"interest":  interest.String(),
			"elapsed":   strconv.FormatUint(e.Elapsed, 10),
		},
	}
}

type BankBorrowed struct {
	Account    crypto.Address
	Amount     *big.Int
	Collateral *big.Int
	Rate       *big.Int
}

func (BankBorrowed) EventType() string { return TypeBankBorrowed }

func (e BankBorrowed) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	collateral := big.NewInt(0)
	if e.Collateral != nil {
		collateral = new(big.Int).Set(e.Collateral)
	}
	rate := big.NewInt(0)
	if e.Rate != nil {
		rate = new(big.Int).Set(e.Rate)
	}
	return &types.Event{
		Type: TypeBankBorrowed,
		Attributes: map[string]string{
			"account":    e.Account.String(),
			"amount":     amount.String(),
			"collateral": collateral.String(),
			"rate":       rate.String(),
		},
	}
}

type BankLoanRepaid struct {
	Account            crypto.Address
	Amount             *big.Int
	CollateralReturned *big.Int
	Fee                *big.Int
}

func (BankLoanRepaid) EventType() string { return TypeBankLoanRepaid }

func (e BankLoanRepaid) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	collateral := big.NewInt(0)
	if e.CollateralReturned != nil {
		collateral = new(big.Int).Set(e.CollateralReturned)
	}
	fee := big.NewInt(0)
	if e.Fee != nil {
		fee = new(big.Int).Set(e.Fee)
	}
	return &types.Event{
		Type: TypeBankLoanRepaid,
		Attributes: map[string]string{
			"account":            e.Account.String(),
			"amount":             amount.String(),
			"collateralReturned": collateral.String(),
			"fee":                fee.String(),
		},
	}
}
