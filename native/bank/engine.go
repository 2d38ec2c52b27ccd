package bank

import (
	"math/big"

	"bankchain/core/events"
	"bankchain/core/types"
	"bankchain/crypto"
)

const (
	// CollateralRatioPercent is the fixed multiplier applied to a loan's
	// rate-adjusted value when sizing collateral.
	CollateralRatioPercent = 150
	// DefaultLoanFeeBps is the repayment service charge taken in settlement
	// tokens, expressed in basis points of the collateral.
	DefaultLoanFeeBps = 200
	// ModuleName derives the vault address holding deposits and collateral.
	ModuleName = "bank/module/vault"
)

// MinimumDeposit is the deposit floor: 1 BNK in base units.
var MinimumDeposit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// TokenLedger is the settlement-token capability set the engine needs:
// issuance for interest and fees, direct transfer for collateral returns,
// delegated transfer for collateral pulls.
type TokenLedger interface {
	Mint(caller, to crypto.Address, amount *big.Int) error
	Transfer(caller, to crypto.Address, amount *big.Int) error
	TransferFrom(caller, owner, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// PriceFeed resolves the BNK/ZBNK exchange rate used for collateral sizing.
type PriceFeed interface {
	Query() (*big.Int, error)
}

type engineState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	GetInvestor(addr crypto.Address) (*Investor, error)
	PutInvestor(investor *Investor) error
	GetBorrower(addr crypto.Address) (*Borrower, error)
	PutBorrower(borrower *Borrower) error
	GetBankState() (*BankState, error)
	PutBankState(state *BankState) error
}

// Engine orchestrates deposits, interest accrual, collateralized borrowing
// and repayment against the token ledger and price feed capabilities.
type Engine struct {
	state         engineState
	token         TokenLedger
	feed          PriceFeed
	owner         crypto.Address
	moduleAddress crypto.Address
	annualRate    uint64
	loanFeeBps    uint64
	blockHeight   uint64
	emitter       events.Emitter
}

// NewEngine constructs a lending engine owned by owner. The annual rate seeds
// the persisted bank state on first use and must be within [1,100].
func NewEngine(owner crypto.Address, tokenLedger TokenLedger, annualRatePercent uint64, feed PriceFeed) (*Engine, error) {
	if annualRatePercent < 1 || annualRatePercent > 100 {
		return nil, ErrInvalidRate
	}
	if tokenLedger == nil || feed == nil {
		return nil, ErrNilCollaborator
	}
	return &Engine{
		token:         tokenLedger,
		feed:          feed,
		owner:         owner,
		moduleAddress: crypto.DeriveModuleAddress(ModuleName),
		annualRate:    annualRatePercent,
		loanFeeBps:    DefaultLoanFeeBps,
	}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the engine to an event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) { e.emitter = emitter }

// SetBlockHeight records the height used for interest accrual.
func (e *Engine) SetBlockHeight(height uint64) { e.blockHeight = height }

// SetLoanFeeBps overrides the repayment service charge.
func (e *Engine) SetLoanFeeBps(bps uint64) { e.loanFeeBps = bps }

// ModuleAddress returns the vault account holding deposited BNK and pulled
// collateral.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// AnnualRate reports the currently configured annual rate percent.
func (e *Engine) AnnualRate() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	bankState, err := e.ensureBankState()
	if err != nil {
		return 0, err
	}
	return bankState.AnnualRatePercent, nil
}

// TotalDeposited reports the running sum of active deposit principals.
func (e *Engine) TotalDeposited() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	bankState, err := e.ensureBankState()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(bankState.TotalDeposited), nil
}

// UpdateAnnualRate replaces the annual rate. Only the owner may call, and the
// new rate is validated against the same [1,100] bound as construction.
func (e *Engine) UpdateAnnualRate(caller crypto.Address, newRate uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if !e.owner.Equal(caller) {
		return ErrUnauthorized
	}
	if newRate < 1 || newRate > 100 {
		return ErrInvalidRate
	}
	bankState, err := e.ensureBankState()
	if err != nil {
		return err
	}
	bankState.AnnualRatePercent = newRate
	return e.state.PutBankState(bankState)
}

// Deposit locks the attached BNK value into the vault and opens the caller's
// deposit position. An account holds at most one active deposit.
func (e *Engine) Deposit(caller crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	investor, err := e.ensureInvestor(caller)
	if err != nil {
		return err
	}
	if investor.HasActiveDeposit {
		return ErrDuplicateDeposit
	}
	if amount.Cmp(MinimumDeposit) < 0 {
		return ErrBelowMinimum
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if callerAcc.BalanceBNK.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	bankState, err := e.ensureBankState()
	if err != nil {
		return err
	}

	callerAcc.BalanceBNK = new(big.Int).Sub(callerAcc.BalanceBNK, amount)
	moduleAcc.BalanceBNK = new(big.Int).Add(moduleAcc.BalanceBNK, amount)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return err
	}

	investor.HasActiveDeposit = true
	investor.Amount = new(big.Int).Set(amount)
	investor.StartHeight = e.blockHeight
	if err := e.state.PutInvestor(investor); err != nil {
		return err
	}

	bankState.TotalDeposited = new(big.Int).Add(bankState.TotalDeposited, amount)
	if err := e.state.PutBankState(bankState); err != nil {
		return err
	}

	e.emit(events.BankDeposited{Account: caller, Amount: amount, Height: e.blockHeight})
	return nil
}

// Withdraw closes the caller's deposit: the principal returns in BNK and the
// accrued simple interest is minted to the caller in ZBNK.
func (e *Engine) Withdraw(caller crypto.Address) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	investor, err := e.ensureInvestor(caller)
	if err != nil {
		return err
	}
	if !investor.HasActiveDeposit {
		return ErrNoActiveDeposit
	}
	bankState, err := e.ensureBankState()
	if err != nil {
		return err
	}
	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if moduleAcc.BalanceBNK.Cmp(investor.Amount) < 0 {
		return ErrInsufficientLiquidity
	}

	var elapsed uint64
	if e.blockHeight > investor.StartHeight {
		elapsed = e.blockHeight - investor.StartHeight
	}
	interest := simpleInterest(investor.Amount, bankState.AnnualRatePercent, elapsed)
	if interest.Sign() > 0 {
		if err := e.token.Mint(e.moduleAddress, caller, interest); err != nil {
			return err
		}
	}

	// The mint rewrote account records through the state manager; reload
	// before the base-asset writes so the token balances survive.
	moduleAcc, err = e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}

	principal := new(big.Int).Set(investor.Amount)
	moduleAcc.BalanceBNK = new(big.Int).Sub(moduleAcc.BalanceBNK, principal)
	callerAcc.BalanceBNK = new(big.Int).Add(callerAcc.BalanceBNK, principal)
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return err
	}

	investor.HasActiveDeposit = false
	investor.Amount = big.NewInt(0)
	investor.StartHeight = 0
	if err := e.state.PutInvestor(investor); err != nil {
		return err
	}

	bankState.TotalDeposited = new(big.Int).Sub(bankState.TotalDeposited, principal)
	if err := e.state.PutBankState(bankState); err != nil {
		return err
	}

	e.emit(events.BankWithdrawn{Account: caller, Principal: principal, Interest: interest, Elapsed: elapsed})
	return nil
}

// Borrow opens a loan against ZBNK collateral. The collateral is sized from
// the live feed rate and pulled through the caller's prior authorization;
// token-ledger failures propagate unchanged.
func (e *Engine) Borrow(caller crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	borrower, err := e.ensureBorrower(caller)
	if err != nil {
		return err
	}
	if borrower.HasActiveLoan {
		return ErrDuplicateLoan
	}
	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	if moduleAcc.BalanceBNK.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	rate, err := e.feed.Query()
	if err != nil {
		return err
	}
	collateral := requiredCollateral(amount, CollateralRatioPercent, rate)
	if collateral.Sign() > 0 {
		if err := e.token.TransferFrom(e.moduleAddress, caller, e.moduleAddress, collateral); err != nil {
			return err
		}
	}

	// The collateral pull rewrote both account records; reload before the
	// base-asset writes so the vault keeps the collateral it just took.
	moduleAcc, err = e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	moduleAcc.BalanceBNK = new(big.Int).Sub(moduleAcc.BalanceBNK, amount)
	callerAcc.BalanceBNK = new(big.Int).Add(callerAcc.BalanceBNK, amount)
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return err
	}

	borrower.HasActiveLoan = true
	borrower.Amount = new(big.Int).Set(amount)
	borrower.Collateral = collateral
	if err := e.state.PutBorrower(borrower); err != nil {
		return err
	}

	e.emit(events.BankBorrowed{Account: caller, Amount: amount, Collateral: collateral, Rate: rate})
	return nil
}

// PayLoan settles the caller's loan. The attached value must equal the
// outstanding principal exactly; the full collateral returns to the caller
// and the service fee is minted to the vault.
func (e *Engine) PayLoan(caller crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	borrower, err := e.ensureBorrower(caller)
	if err != nil {
		return err
	}
	if !borrower.HasActiveLoan {
		return ErrNoActiveLoan
	}
	if amount.Cmp(borrower.Amount) != 0 {
		return ErrAmountMismatch
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if callerAcc.BalanceBNK.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	collateral := new(big.Int).Set(borrower.Collateral)
	if collateral.Sign() > 0 {
		if err := e.token.Transfer(e.moduleAddress, caller, collateral); err != nil {
			return err
		}
	}
	fee := loanFee(collateral, e.loanFeeBps)
	if fee.Sign() > 0 {
		if err := e.token.Mint(e.moduleAddress, e.moduleAddress, fee); err != nil {
			return err
		}
	}

	// The collateral return and fee mint rewrote both account records;
	// reload before the base-asset writes.
	callerAcc, err = e.loadAccount(caller)
	if err != nil {
		return err
	}
	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return err
	}
	callerAcc.BalanceBNK = new(big.Int).Sub(callerAcc.BalanceBNK, amount)
	moduleAcc.BalanceBNK = new(big.Int).Add(moduleAcc.BalanceBNK, amount)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return err
	}

	borrower.HasActiveLoan = false
	borrower.Amount = big.NewInt(0)
	borrower.Collateral = big.NewInt(0)
	if err := e.state.PutBorrower(borrower); err != nil {
		return err
	}

	e.emit(events.BankLoanRepaid{Account: caller, Amount: amount, CollateralReturned: collateral, Fee: fee})
	return nil
}

// GetInvestor returns the deposit record for an account, zeroed when the
// account has never deposited.
func (e *Engine) GetInvestor(addr crypto.Address) (*Investor, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.ensureInvestor(addr)
}

// GetBorrower returns the loan record for an account, zeroed when the
// account has never borrowed.
func (e *Engine) GetBorrower(addr crypto.Address) (*Borrower, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.ensureBorrower(addr)
}

func (e *Engine) ensureInvestor(addr crypto.Address) (*Investor, error) {
	investor, err := e.state.GetInvestor(addr)
	if err != nil {
		return nil, err
	}
	if investor == nil {
		investor = &Investor{Address: addr}
	}
	if investor.Amount == nil {
		investor.Amount = big.NewInt(0)
	}
	return investor, nil
}

func (e *Engine) ensureBorrower(addr crypto.Address) (*Borrower, error) {
	borrower, err := e.state.GetBorrower(addr)
	if err != nil {
		return nil, err
	}
	if borrower == nil {
		borrower = &Borrower{Address: addr}
	}
	if borrower.Amount == nil {
		borrower.Amount = big.NewInt(0)
	}
	if borrower.Collateral == nil {
		borrower.Collateral = big.NewInt(0)
	}
	return borrower, nil
}

func (e *Engine) ensureBankState() (*BankState, error) {
	bankState, err := e.state.GetBankState()
	if err != nil {
		return nil, err
	}
	if bankState == nil {
		bankState = &BankState{AnnualRatePercent: e.annualRate}
	}
	if bankState.TotalDeposited == nil {
		bankState.TotalDeposited = big.NewInt(0)
	}
	return bankState, nil
}

func (e *Engine) loadAccount(addr crypto.Address) (*types.Account, error) {
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &types.Account{}
	}
	account.EnsureBalances()
	return account, nil
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}
