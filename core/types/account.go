package types

import "math/big"

// Account holds the balances tracked for a single address. BalanceBNK is the
// base asset used for deposits and loans; BalanceZBNK is the settlement token
// managed by the token ledger.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceBNK  *big.Int `json:"balanceBNK"`
	BalanceZBNK *big.Int `json:"balanceZBNK"`
}

// EnsureBalances replaces nil balance fields with zero values so callers can
// operate on the account without nil checks.
func (a *Account) EnsureBalances() {
	if a == nil {
		return
	}
	if a.BalanceBNK == nil {
		a.BalanceBNK = big.NewInt(0)
	}
	if a.BalanceZBNK == nil {
		a.BalanceZBNK = big.NewInt(0)
	}
}
