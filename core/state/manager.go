package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"bankchain/core/types"
	"bankchain/crypto"
	"bankchain/native/bank"
	"bankchain/native/oracle"
	"bankchain/native/token"
	"bankchain/storage"
)

var (
	accountPrefix   = []byte("acct/")
	allowancePrefix = []byte("token/allowance/")
	investorPrefix  = []byte("bank/investor/")
	borrowerPrefix  = []byte("bank/borrower/")
	feedPrefix      = []byte("oracle/feed/")
	eventsPrefix    = []byte("events/")

	tokenStateKey  = []byte("token/state")
	bankStateKey   = []byte("bank/state")
	chainHeightKey = []byte("chain/height")
)

func accountKey(addr crypto.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

func allowanceKey(owner, spender crypto.Address) []byte {
	key := append(append([]byte{}, allowancePrefix...), owner.Bytes()...)
	key = append(key, '/')
	return append(key, spender.Bytes()...)
}

func investorKey(addr crypto.Address) []byte {
	return append(append([]byte{}, investorPrefix...), addr.Bytes()...)
}

func borrowerKey(addr crypto.Address) []byte {
	return append(append([]byte{}, borrowerPrefix...), addr.Bytes()...)
}

func feedKey(pair string) []byte {
	return append(append([]byte{}, feedPrefix...), pair...)
}

func eventsKey(height uint64) []byte {
	return append(append([]byte{}, eventsPrefix...), fmt.Sprintf("%016x", height)...)
}

// Manager persists ledger records in a key-value database. Missing records
// read back as nil so the engines can apply their zero-value defaults.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, data)
}

// GetAccount loads an account record, nil when the address is unknown.
func (m *Manager) GetAccount(addr crypto.Address) (*types.Account, error) {
	account := new(types.Account)
	found, err := m.getJSON(accountKey(addr), account)
	if err != nil || !found {
		return nil, err
	}
	account.EnsureBalances()
	return account, nil
}

// PutAccount stores an account record.
func (m *Manager) PutAccount(addr crypto.Address, account *types.Account) error {
	return m.putJSON(accountKey(addr), account)
}

// GetTokenState loads the settlement-token metadata record.
func (m *Manager) GetTokenState() (*token.TokenState, error) {
	state := new(token.TokenState)
	found, err := m.getJSON(tokenStateKey, state)
	if err != nil || !found {
		return nil, err
	}
	return state, nil
}

// PutTokenState stores the settlement-token metadata record.
func (m *Manager) PutTokenState(state *token.TokenState) error {
	return m.putJSON(tokenStateKey, state)
}

// GetAllowance loads a delegated-transfer authorization, nil when none exists.
func (m *Manager) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	amount := new(big.Int)
	found, err := m.getJSON(allowanceKey(owner, spender), amount)
	if err != nil || !found {
		return nil, err
	}
	return amount, nil
}

// PutAllowance stores a delegated-transfer authorization.
func (m *Manager) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	return m.putJSON(allowanceKey(owner, spender), amount)
}

// GetInvestor loads a deposit record, nil when the address never deposited.
func (m *Manager) GetInvestor(addr crypto.Address) (*bank.Investor, error) {
	investor := new(bank.Investor)
	found, err := m.getJSON(investorKey(addr), investor)
	if err != nil || !found {
		return nil, err
	}
	return investor, nil
}

// PutInvestor stores a deposit record.
func (m *Manager) PutInvestor(investor *bank.Investor) error {
	return m.putJSON(investorKey(investor.Address), investor)
}

// GetBorrower loads a loan record, nil when the address never borrowed.
func (m *Manager) GetBorrower(addr crypto.Address) (*bank.Borrower, error) {
	borrower := new(bank.Borrower)
	found, err := m.getJSON(borrowerKey(addr), borrower)
	if err != nil || !found {
		return nil, err
	}
	return borrower, nil
}

// PutBorrower stores a loan record.
func (m *Manager) PutBorrower(borrower *bank.Borrower) error {
	return m.putJSON(borrowerKey(borrower.Address), borrower)
}

// GetBankState loads the aggregate lending record.
func (m *Manager) GetBankState() (*bank.BankState, error) {
	state := new(bank.BankState)
	found, err := m.getJSON(bankStateKey, state)
	if err != nil || !found {
		return nil, err
	}
	return state, nil
}

// PutBankState stores the aggregate lending record.
func (m *Manager) PutBankState(state *bank.BankState) error {
	return m.putJSON(bankStateKey, state)
}

// GetFeed loads a price feed record for the pair, nil when uninitialized.
func (m *Manager) GetFeed(pair string) (*oracle.FeedState, error) {
	state := new(oracle.FeedState)
	found, err := m.getJSON(feedKey(pair), state)
	if err != nil || !found {
		return nil, err
	}
	return state, nil
}

// PutFeed stores a price feed record for the pair.
func (m *Manager) PutFeed(pair string, state *oracle.FeedState) error {
	return m.putJSON(feedKey(pair), state)
}

// Height loads the last committed chain height, zero on a fresh database.
func (m *Manager) Height() (uint64, error) {
	var height uint64
	if _, err := m.getJSON(chainHeightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// PutHeight persists the chain height.
func (m *Manager) PutHeight(height uint64) error {
	return m.putJSON(chainHeightKey, height)
}

// EventsAt loads the events recorded at a height. Heights with no events
// return an empty slice.
func (m *Manager) EventsAt(height uint64) ([]*types.Event, error) {
	var list []*types.Event
	if _, err := m.getJSON(eventsKey(height), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PutEvents stores the events recorded at a height.
func (m *Manager) PutEvents(height uint64, list []*types.Event) error {
	if len(list) == 0 {
		return nil
	}
	return m.putJSON(eventsKey(height), list)
}
