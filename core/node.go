package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"bankchain/core/events"
	bankstate "bankchain/core/state"
	"bankchain/core/types"
	"bankchain/crypto"
	"bankchain/native/bank"
	"bankchain/native/oracle"
	"bankchain/native/token"
	"bankchain/storage"
)

// GenesisAlloc seeds an account with a BNK balance at bootstrap.
type GenesisAlloc struct {
	Address crypto.Address
	Balance *big.Int
}

// Genesis describes the initial ledger state: the bank owner, the feed
// administrator, the opening annual rate and the funded accounts.
type Genesis struct {
	Owner             crypto.Address
	OracleAdmin       crypto.Address
	AnnualRatePercent uint64
	LoanFeeBps        uint64
	Allocations       []GenesisAlloc
}

// Receipt reports the outcome of an accepted operation: the height it was
// committed at and every event it emitted.
type Receipt struct {
	ID     string         `json:"id"`
	Height uint64         `json:"height"`
	Events []*types.Event `json:"events"`
}

// Node is the central controller. It owns the chain height, serializes
// operations against the state manager and collects per-operation events.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	manager *bankstate.Manager
	ledger  *token.Ledger
	feed    *oracle.Feed
	engine  *bank.Engine
	height  uint64
	logger  *slog.Logger
}

// NewNode opens the ledger over db, bootstrapping genesis state on a fresh
// database.
func NewNode(db storage.Database, genesis Genesis, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	manager := bankstate.NewManager(db)

	ledger := token.NewLedger()
	ledger.SetState(manager)

	feed := oracle.NewFeed(oracle.DefaultPair)
	feed.SetState(manager)

	engine, err := bank.NewEngine(genesis.Owner, ledger, genesis.AnnualRatePercent, feed)
	if err != nil {
		return nil, err
	}
	engine.SetState(manager)
	if genesis.LoanFeeBps > 0 {
		engine.SetLoanFeeBps(genesis.LoanFeeBps)
	}

	height, err := manager.Height()
	if err != nil {
		return nil, err
	}
	node := &Node{
		db:      db,
		manager: manager,
		ledger:  ledger,
		feed:    feed,
		engine:  engine,
		height:  height,
		logger:  logger,
	}
	if err := node.bootstrap(genesis); err != nil {
		return nil, err
	}
	return node, nil
}

// bootstrap seeds genesis state exactly once: BNK allocations, the token
// minter role handed to the bank vault, and the initialized price feed.
func (n *Node) bootstrap(genesis Genesis) error {
	existing, err := n.manager.GetTokenState()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if genesis.Owner.IsZero() {
		return fmt.Errorf("genesis owner address is required")
	}
	admin := genesis.OracleAdmin
	if admin.IsZero() {
		admin = genesis.Owner
	}

	for _, alloc := range genesis.Allocations {
		if alloc.Balance == nil || alloc.Balance.Sign() < 0 {
			return fmt.Errorf("genesis allocation for %s has an invalid balance", alloc.Address)
		}
		account := &types.Account{BalanceBNK: new(big.Int).Set(alloc.Balance)}
		account.EnsureBalances()
		if err := n.manager.PutAccount(alloc.Address, account); err != nil {
			return err
		}
	}

	recorder := &events.Recorder{}
	n.ledger.SetEmitter(recorder)
	n.feed.SetEmitter(recorder)
	defer func() {
		n.ledger.SetEmitter(events.NoopEmitter{})
		n.feed.SetEmitter(events.NoopEmitter{})
	}()

	if err := n.manager.PutTokenState(&token.TokenState{Minter: genesis.Owner, TotalSupply: big.NewInt(0)}); err != nil {
		return err
	}
	if err := n.ledger.PassMinterRole(genesis.Owner, n.engine.ModuleAddress()); err != nil {
		return err
	}
	if err := n.feed.Initialize(admin); err != nil {
		return err
	}
	if err := n.manager.PutEvents(0, recorder.Events()); err != nil {
		return err
	}

	n.logger.Info("genesis state written",
		"owner", genesis.Owner.String(),
		"oracleAdmin", admin.String(),
		"vault", n.engine.ModuleAddress().String(),
		"allocations", len(genesis.Allocations))
	return nil
}

// execute runs op at the next height under the state lock. The height only
// advances when op succeeds; engines guard all state writes behind their
// checks, so a rejected operation leaves no trace.
func (n *Node) execute(name string, op func() error) (*Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := n.height + 1
	recorder := &events.Recorder{}
	n.ledger.SetEmitter(recorder)
	n.feed.SetEmitter(recorder)
	n.engine.SetEmitter(recorder)
	n.feed.SetBlockHeight(next)
	n.engine.SetBlockHeight(next)
	defer func() {
		n.ledger.SetEmitter(events.NoopEmitter{})
		n.feed.SetEmitter(events.NoopEmitter{})
		n.engine.SetEmitter(events.NoopEmitter{})
	}()

	if err := op(); err != nil {
		n.logger.Debug("operation rejected", "op", name, "err", err)
		return nil, err
	}
	if err := n.manager.PutEvents(next, recorder.Events()); err != nil {
		return nil, err
	}
	if err := n.manager.PutHeight(next); err != nil {
		return nil, err
	}
	n.height = next

	receipt := &Receipt{ID: uuid.NewString(), Height: next, Events: recorder.Events()}
	n.logger.Info("operation committed", "op", name, "height", next, "events", len(receipt.Events))
	return receipt, nil
}

// Height reports the last committed chain height.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// EventsAt lists the events committed at a height.
func (n *Node) EventsAt(height uint64) ([]*types.Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.manager.EventsAt(height)
}

// TokenTransfer moves settlement tokens from the caller to another account.
func (n *Node) TokenTransfer(caller, to crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("token_transfer", func() error {
		return n.ledger.Transfer(caller, to, amount)
	})
}

// TokenApprove sets the caller's delegated-transfer authorization for spender.
func (n *Node) TokenApprove(caller, spender crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("token_approve", func() error {
		return n.ledger.Approve(caller, spender, amount)
	})
}

// TokenTransferFrom spends the caller's authorization to move tokens out of
// the owner's account.
func (n *Node) TokenTransferFrom(caller, owner, to crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("token_transferFrom", func() error {
		return n.ledger.TransferFrom(caller, owner, to, amount)
	})
}

// TokenBalanceOf reads an account's settlement-token balance.
func (n *Node) TokenBalanceOf(addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.BalanceOf(addr)
}

// TokenAllowance reads the delegated-transfer authorization from owner to
// spender.
func (n *Node) TokenAllowance(owner, spender crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Allowance(owner, spender)
}

// TokenTotalSupply reads the settlement token's circulating supply.
func (n *Node) TokenTotalSupply() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.TotalSupply()
}

// OracleQuery reads the current exchange rate. A stale rate emits an advisory
// refresh request alongside the result.
func (n *Node) OracleQuery() (*big.Int, *Receipt, error) {
	var rate *big.Int
	receipt, err := n.execute("oracle_query", func() error {
		var queryErr error
		rate, queryErr = n.feed.Query()
		return queryErr
	})
	if err != nil {
		return nil, nil, err
	}
	return rate, receipt, nil
}

// OracleUpdate publishes a fresh exchange rate. Only the feed administrator
// may call.
func (n *Node) OracleUpdate(caller crypto.Address, rate *big.Int) (*Receipt, error) {
	return n.execute("oracle_update", func() error {
		return n.feed.Update(caller, rate)
	})
}

// OracleLastUpdateHeight reports when the rate was last published.
func (n *Node) OracleLastUpdateHeight() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.feed.LastUpdateHeight()
}

// BankDeposit locks amount BNK from the caller into the vault.
func (n *Node) BankDeposit(caller crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("bank_deposit", func() error {
		return n.engine.Deposit(caller, amount)
	})
}

// BankWithdraw closes the caller's deposit, returning principal plus minted
// interest.
func (n *Node) BankWithdraw(caller crypto.Address) (*Receipt, error) {
	return n.execute("bank_withdraw", func() error {
		return n.engine.Withdraw(caller)
	})
}

// BankBorrow opens a collateralized loan for the caller.
func (n *Node) BankBorrow(caller crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("bank_borrow", func() error {
		return n.engine.Borrow(caller, amount)
	})
}

// BankPayLoan settles the caller's loan with an exact repayment.
func (n *Node) BankPayLoan(caller crypto.Address, amount *big.Int) (*Receipt, error) {
	return n.execute("bank_payLoan", func() error {
		return n.engine.PayLoan(caller, amount)
	})
}

// BankUpdateAnnualRate replaces the deposit interest rate. Owner only.
func (n *Node) BankUpdateAnnualRate(caller crypto.Address, newRate uint64) (*Receipt, error) {
	return n.execute("bank_updateAnnualRate", func() error {
		return n.engine.UpdateAnnualRate(caller, newRate)
	})
}

// BankGetInvestor reads an account's deposit record.
func (n *Node) BankGetInvestor(addr crypto.Address) (*bank.Investor, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.GetInvestor(addr)
}

// BankGetBorrower reads an account's loan record.
func (n *Node) BankGetBorrower(addr crypto.Address) (*bank.Borrower, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.GetBorrower(addr)
}

// BankTotalDeposited reads the running sum of active deposit principals.
func (n *Node) BankTotalDeposited() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.TotalDeposited()
}

// BankAnnualRate reads the configured annual rate percent.
func (n *Node) BankAnnualRate() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.AnnualRate()
}

// GetAccount reads an account's base-asset record, zeroed when unknown.
func (n *Node) GetAccount(addr crypto.Address) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	account, err := n.manager.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &types.Account{}
		account.EnsureBalances()
	}
	return account, nil
}

// VaultAddress returns the module account holding deposits and collateral.
func (n *Node) VaultAddress() crypto.Address {
	return n.engine.ModuleAddress()
}
