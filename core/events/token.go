package events

import (
	"math/big"

	"bankchain/core/types"
	"bankchain/crypto"
)

const (
	// TypeTokenMinted is emitted whenever new ZBNK supply is created.
	TypeTokenMinted = "token.minted"
	// TypeTokenTransferred is emitted on every direct or delegated transfer.
	TypeTokenTransferred = "token.transferred"
	// TypeTokenApproved is emitted when an owner sets a spender allowance.
	TypeTokenApproved = "token.approved"
	// TypeTokenMinterChanged is emitted when the issuance capability moves.
	TypeTokenMinterChanged = "token.minter_changed"
)

type TokenMinted struct {
	To     crypto.Address
	Amount *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	return &types.Event{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"to":     e.To.String(),
			"amount": amount.String(),
		},
	}
}

type TokenTransferred struct {
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
	// Spender is set when the transfer was executed through an allowance.
	Spender crypto.Address
}

func (TokenTransferred) EventType() string { return TypeTokenTransferred }

func (e TokenTransferred) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	attrs := map[string]string{
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": amount.String(),
	}
	if !e.Spender.IsZero() {
		attrs["spender"] = e.Spender.String()
	}
	return &types.Event{Type: TypeTokenTransferred, Attributes: attrs}
}

type TokenApproved struct {
	Owner   crypto.Address
	Spender crypto.Address
	Amount  *big.Int
}

func (TokenApproved) EventType() string { return TypeTokenApproved }

func (e TokenApproved) Event() *types.Event {
	amount := big.NewInt(0)
	if e.Amount != nil {
		amount = new(big.Int).Set(e.Amount)
	}
	return &types.Event{
		Type: TypeTokenApproved,
		Attributes: map[string]string{
			"owner":   e.Owner.String(),
			"spender": e.Spender.String(),
			"amount":  amount.String(),
		},
	}
}

type TokenMinterChanged struct {
	Previous crypto.Address
	Current  crypto.Address
}

func (TokenMinterChanged) EventType() string { return TypeTokenMinterChanged }

func (e TokenMinterChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenMinterChanged,
		Attributes: map[string]string{
			"previous": e.Previous.String(),
			"current":  e.Current.String(),
		},
	}
}
