package token

import (
	"math/big"

	"github.com/holiman/uint256"

	"bankchain/core/events"
	"bankchain/core/types"
	"bankchain/crypto"
)

// Token metadata for the settlement token tracked by this ledger.
const (
	Symbol   = "ZBNK"
	Decimals = 18
)

// TokenState captures the ledger-global fields: the single account holding
// the issuance capability and the running supply total.
type TokenState struct {
	Minter      crypto.Address `json:"minter"`
	TotalSupply *big.Int       `json:"totalSupply"`
}

type ledgerState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	GetTokenState() (*TokenState, error)
	PutTokenState(state *TokenState) error
	GetAllowance(owner, spender crypto.Address) (*big.Int, error)
	PutAllowance(owner, spender crypto.Address, amount *big.Int) error
}

// Ledger enforces issuance control and delegated-transfer authorizations for
// the ZBNK settlement token.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs an unwired token ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter wires the ledger to an event sink. A nil emitter disables
// event emission.
func (l *Ledger) SetEmitter(emitter events.Emitter) { l.emitter = emitter }

func (l *Ledger) emit(evt events.Event) {
	if l.emitter != nil {
		l.emitter.Emit(evt)
	}
}

// Mint credits freshly issued ZBNK to the recipient. Only the current minter
// may issue; the balance and total supply are bounded at 2^256-1.
func (l *Ledger) Mint(caller, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	meta, err := l.ensureTokenState()
	if err != nil {
		return err
	}
	if !meta.Minter.Equal(caller) {
		return ErrUnauthorized
	}
	recipient, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	newSupply := new(big.Int).Add(meta.TotalSupply, amount)
	newBalance := new(big.Int).Add(recipient.BalanceZBNK, amount)
	if !fitsUint256(newSupply) || !fitsUint256(newBalance) {
		return ErrOverflow
	}

	recipient.BalanceZBNK = newBalance
	meta.TotalSupply = newSupply
	if err := l.state.PutAccount(to, recipient); err != nil {
		return err
	}
	if err := l.state.PutTokenState(meta); err != nil {
		return err
	}
	l.emit(events.TokenMinted{To: to, Amount: amount})
	return nil
}

// PassMinterRole atomically reassigns the issuance capability.
func (l *Ledger) PassMinterRole(caller, newMinter crypto.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	meta, err := l.ensureTokenState()
	if err != nil {
		return err
	}
	if !meta.Minter.Equal(caller) {
		return ErrUnauthorized
	}
	previous := meta.Minter
	meta.Minter = newMinter
	if err := l.state.PutTokenState(meta); err != nil {
		return err
	}
	l.emit(events.TokenMinterChanged{Previous: previous, Current: newMinter})
	return nil
}

// Transfer moves ZBNK from the caller to the recipient.
func (l *Ledger) Transfer(caller, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := l.move(caller, to, amount); err != nil {
		return err
	}
	l.emit(events.TokenTransferred{From: caller, To: to, Amount: amount})
	return nil
}

// Approve sets the spender's allowance over the caller's balance. The amount
// is an absolute replacement, not an increment.
func (l *Ledger) Approve(caller, spender crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := l.state.PutAllowance(caller, spender, new(big.Int).Set(amount)); err != nil {
		return err
	}
	l.emit(events.TokenApproved{Owner: caller, Spender: spender, Amount: amount})
	return nil
}

// TransferFrom moves ZBNK from the owner to the recipient on the strength of
// a prior Approve call, decrementing the remaining allowance.
func (l *Ledger) TransferFrom(caller, owner, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.ensureAllowance(owner, caller)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.move(owner, to, amount); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(allowance, amount)
	if err := l.state.PutAllowance(owner, caller, remaining); err != nil {
		return err
	}
	l.emit(events.TokenTransferred{From: owner, To: to, Amount: amount, Spender: caller})
	return nil
}

// BalanceOf reports the current ZBNK balance without side effects.
func (l *Ledger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	account, err := l.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.BalanceZBNK), nil
}

// Allowance reports the remaining delegated-transfer authorization.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	return l.ensureAllowance(owner, spender)
}

// Minter reports the account currently holding the issuance capability.
func (l *Ledger) Minter() (crypto.Address, error) {
	if l == nil || l.state == nil {
		return crypto.Address{}, ErrNilState
	}
	meta, err := l.ensureTokenState()
	if err != nil {
		return crypto.Address{}, err
	}
	return meta.Minter, nil
}

// TotalSupply reports the aggregate minted ZBNK.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, ErrNilState
	}
	meta, err := l.ensureTokenState()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(meta.TotalSupply), nil
}

func (l *Ledger) move(from, to crypto.Address, amount *big.Int) error {
	sender, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	if sender.BalanceZBNK.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from.Equal(to) {
		// Self transfers are a no-op once the balance guard passed.
		return nil
	}
	recipient, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	sender.BalanceZBNK = new(big.Int).Sub(sender.BalanceZBNK, amount)
	recipient.BalanceZBNK = new(big.Int).Add(recipient.BalanceZBNK, amount)
	if err := l.state.PutAccount(from, sender); err != nil {
		return err
	}
	return l.state.PutAccount(to, recipient)
}

func (l *Ledger) loadAccount(addr crypto.Address) (*types.Account, error) {
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		// Balances exist implicitly at zero.
		account = &types.Account{}
	}
	account.EnsureBalances()
	return account, nil
}

func (l *Ledger) ensureTokenState() (*TokenState, error) {
	meta, err := l.state.GetTokenState()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &TokenState{}
	}
	if meta.TotalSupply == nil {
		meta.TotalSupply = big.NewInt(0)
	}
	return meta, nil
}

func (l *Ledger) ensureAllowance(owner, spender crypto.Address) (*big.Int, error) {
	allowance, err := l.state.GetAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

func fitsUint256(value *big.Int) bool {
	if value == nil || value.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(value)
	return !overflow
}
