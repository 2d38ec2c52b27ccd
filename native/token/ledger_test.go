package token

import (
	"errors"
	"math/big"
	"testing"

	"bankchain/core/events"
	"bankchain/core/types"
	"bankchain/crypto"
)

type mockLedgerState struct {
	accounts   map[string]*types.Account
	meta       *TokenState
	allowances map[string]*big.Int
}

func newMockLedgerState(minter crypto.Address) *mockLedgerState {
	return &mockLedgerState{
		accounts:   make(map[string]*types.Account),
		meta:       &TokenState{Minter: minter, TotalSupply: big.NewInt(0)},
		allowances: make(map[string]*big.Int),
	}
}

func (m *mockLedgerState) key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockLedgerState) allowanceKey(owner, spender crypto.Address) string {
	return string(owner.Bytes()) + "/" + string(spender.Bytes())
}

func (m *mockLedgerState) GetAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[m.key(addr)], nil
}

func (m *mockLedgerState) PutAccount(addr crypto.Address, account *types.Account) error {
	m.accounts[m.key(addr)] = account
	return nil
}

func (m *mockLedgerState) GetTokenState() (*TokenState, error) { return m.meta, nil }

func (m *mockLedgerState) PutTokenState(state *TokenState) error {
	m.meta = state
	return nil
}

func (m *mockLedgerState) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	return m.allowances[m.allowanceKey(owner, spender)], nil
}

func (m *mockLedgerState) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	m.allowances[m.allowanceKey(owner, spender)] = amount
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(raw)
}

func newTestLedger(minter crypto.Address) (*Ledger, *mockLedgerState, *events.Recorder) {
	ledger := NewLedger()
	state := newMockLedgerState(minter)
	recorder := &events.Recorder{}
	ledger.SetState(state)
	ledger.SetEmitter(recorder)
	return ledger, state, recorder
}

func TestMintRequiresMinterRole(t *testing.T) {
	minter := makeAddress(0x01)
	outsider := makeAddress(0x02)
	ledger, _, _ := newTestLedger(minter)

	if err := ledger.Mint(outsider, outsider, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.Mint(minter, outsider, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf(outsider)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance: %s", balance)
	}
	supply, err := ledger.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected total supply: %s", supply)
	}
}

func TestMintOverflowRejected(t *testing.T) {
	minter := makeAddress(0x01)
	holder := makeAddress(0x02)
	ledger, state, _ := newTestLedger(minter)

	maxSupply := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	state.meta.TotalSupply = new(big.Int).Set(maxSupply)
	state.accounts[state.key(holder)] = &types.Account{BalanceZBNK: new(big.Int).Set(maxSupply)}

	if err := ledger.Mint(minter, holder, big.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	// The failed mint must leave the supply untouched.
	supply, err := ledger.TotalSupply()
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Cmp(maxSupply) != 0 {
		t.Fatalf("supply changed after failed mint: %s", supply)
	}
}

func TestPassMinterRole(t *testing.T) {
	minter := makeAddress(0x01)
	successor := makeAddress(0x02)
	ledger, _, recorder := newTestLedger(minter)

	if err := ledger.PassMinterRole(successor, successor); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := ledger.PassMinterRole(minter, successor); err != nil {
		t.Fatalf("pass minter role: %v", err)
	}
	current, err := ledger.Minter()
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	if !current.Equal(successor) {
		t.Fatalf("minter role not reassigned")
	}
	// The old minter lost the capability.
	if err := ledger.Mint(minter, minter, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for previous minter, got %v", err)
	}

	var seen bool
	for _, evt := range recorder.Events() {
		if evt.Type == events.TypeTokenMinterChanged {
			seen = true
		}
	}
	if !seen {
		t.Fatalf("expected %s event", events.TypeTokenMinterChanged)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	minter := makeAddress(0x01)
	sender := makeAddress(0x02)
	recipient := makeAddress(0x03)
	ledger, _, _ := newTestLedger(minter)

	if err := ledger.Mint(minter, sender, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(sender, recipient, big.NewInt(51)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(sender, recipient, big.NewInt(50)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	balance, err := ledger.BalanceOf(recipient)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected recipient balance: %s", balance)
	}
}

func TestTransferFromHonoursAllowance(t *testing.T) {
	minter := makeAddress(0x01)
	owner := makeAddress(0x02)
	spender := makeAddress(0x03)
	ledger, _, _ := newTestLedger(minter)

	if err := ledger.Mint(minter, owner, big.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, spender, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(300)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, spender, big.NewInt(200)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	remaining, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected remaining allowance: %s", remaining)
	}
	if err := ledger.TransferFrom(spender, owner, spender, big.NewInt(101)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance after decrement, got %v", err)
	}
}

func TestApproveReplacesAllowance(t *testing.T) {
	minter := makeAddress(0x01)
	owner := makeAddress(0x02)
	spender := makeAddress(0x03)
	ledger, _, _ := newTestLedger(minter)

	if err := ledger.Approve(owner, spender, big.NewInt(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(42)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	remaining, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("allowance should be replaced, got %s", remaining)
	}
}

func TestTransferFromInsufficientOwnerBalance(t *testing.T) {
	minter := makeAddress(0x01)
	owner := makeAddress(0x02)
	spender := makeAddress(0x03)
	ledger, _, _ := newTestLedger(minter)

	if err := ledger.Mint(minter, owner, big.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, spender, big.NewInt(10)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	// Allowance is only decremented when the transfer succeeds.
	remaining, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("allowance changed after failed pull: %s", remaining)
	}
}
