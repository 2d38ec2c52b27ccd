package state

import (
	"math/big"
	"testing"

	"bankchain/core/types"
	"bankchain/crypto"
	"bankchain/native/bank"
	"bankchain/native/oracle"
	"bankchain/native/token"
	"bankchain/storage"
)

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(raw)
}

func newManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func TestMissingRecordsReadBackNil(t *testing.T) {
	m := newManager()
	addr := makeAddress(0x01)

	account, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}
	tokenState, err := m.GetTokenState()
	if err != nil {
		t.Fatalf("get token state: %v", err)
	}
	if tokenState != nil {
		t.Fatalf("expected nil token state")
	}
	allowance, err := m.GetAllowance(addr, makeAddress(0x02))
	if err != nil {
		t.Fatalf("get allowance: %v", err)
	}
	if allowance != nil {
		t.Fatalf("expected nil allowance")
	}
	feed, err := m.GetFeed("BNK/ZBNK")
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if feed != nil {
		t.Fatalf("expected nil feed")
	}
	height, err := m.Height()
	if err != nil {
		t.Fatalf("height: %v", err)
	}
	if height != 0 {
		t.Fatalf("fresh database must report height 0, got %d", height)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	m := newManager()
	addr := makeAddress(0x01)

	stored := &types.Account{Nonce: 7, BalanceBNK: big.NewInt(1234), BalanceZBNK: big.NewInt(56)}
	if err := m.PutAccount(addr, stored); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 7 || loaded.BalanceBNK.Cmp(big.NewInt(1234)) != 0 || loaded.BalanceZBNK.Cmp(big.NewInt(56)) != 0 {
		t.Fatalf("account mismatch: %+v", loaded)
	}
}

func TestTokenRecordsRoundTrip(t *testing.T) {
	m := newManager()
	minter := makeAddress(0x01)
	owner := makeAddress(0x02)
	spender := makeAddress(0x03)

	if err := m.PutTokenState(&token.TokenState{Minter: minter, TotalSupply: big.NewInt(999)}); err != nil {
		t.Fatalf("put token state: %v", err)
	}
	tokenState, err := m.GetTokenState()
	if err != nil {
		t.Fatalf("get token state: %v", err)
	}
	if !tokenState.Minter.Equal(minter) || tokenState.TotalSupply.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("token state mismatch: %+v", tokenState)
	}

	if err := m.PutAllowance(owner, spender, big.NewInt(42)); err != nil {
		t.Fatalf("put allowance: %v", err)
	}
	allowance, err := m.GetAllowance(owner, spender)
	if err != nil {
		t.Fatalf("get allowance: %v", err)
	}
	if allowance.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("allowance mismatch: %s", allowance)
	}
	// Reversed owner and spender is a distinct authorization.
	reversed, err := m.GetAllowance(spender, owner)
	if err != nil {
		t.Fatalf("get reversed allowance: %v", err)
	}
	if reversed != nil {
		t.Fatalf("reversed allowance must be unset, got %s", reversed)
	}
}

func TestLendingRecordsRoundTrip(t *testing.T) {
	m := newManager()
	addr := makeAddress(0x04)

	if err := m.PutInvestor(&bank.Investor{Address: addr, HasActiveDeposit: true, Amount: big.NewInt(100), StartHeight: 9}); err != nil {
		t.Fatalf("put investor: %v", err)
	}
	investor, err := m.GetInvestor(addr)
	if err != nil {
		t.Fatalf("get investor: %v", err)
	}
	if !investor.HasActiveDeposit || investor.Amount.Cmp(big.NewInt(100)) != 0 || investor.StartHeight != 9 {
		t.Fatalf("investor mismatch: %+v", investor)
	}
	if !investor.Address.Equal(addr) {
		t.Fatalf("investor address mismatch: %s", investor.Address)
	}

	if err := m.PutBorrower(&bank.Borrower{Address: addr, HasActiveLoan: true, Amount: big.NewInt(10), Collateral: big.NewInt(495)}); err != nil {
		t.Fatalf("put borrower: %v", err)
	}
	borrower, err := m.GetBorrower(addr)
	if err != nil {
		t.Fatalf("get borrower: %v", err)
	}
	if !borrower.HasActiveLoan || borrower.Collateral.Cmp(big.NewInt(495)) != 0 {
		t.Fatalf("borrower mismatch: %+v", borrower)
	}

	if err := m.PutBankState(&bank.BankState{AnnualRatePercent: 10, TotalDeposited: big.NewInt(100)}); err != nil {
		t.Fatalf("put bank state: %v", err)
	}
	bankState, err := m.GetBankState()
	if err != nil {
		t.Fatalf("get bank state: %v", err)
	}
	if bankState.AnnualRatePercent != 10 || bankState.TotalDeposited.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("bank state mismatch: %+v", bankState)
	}
}

func TestFeedAndHeightRoundTrip(t *testing.T) {
	m := newManager()
	admin := makeAddress(0x05)

	if err := m.PutFeed(oracle.DefaultPair, &oracle.FeedState{Admin: admin, Rate: big.NewInt(33), LastUpdateHeight: 12}); err != nil {
		t.Fatalf("put feed: %v", err)
	}
	feed, err := m.GetFeed(oracle.DefaultPair)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if !feed.Admin.Equal(admin) || feed.Rate.Cmp(big.NewInt(33)) != 0 || feed.LastUpdateHeight != 12 {
		t.Fatalf("feed mismatch: %+v", feed)
	}

	if err := m.PutHeight(41); err != nil {
		t.Fatalf("put height: %v", err)
	}
	height, err := m.Height()
	if err != nil {
		t.Fatalf("height: %v", err)
	}
	if height != 41 {
		t.Fatalf("height mismatch: %d", height)
	}
}

func TestEventsRoundTrip(t *testing.T) {
	m := newManager()

	empty, err := m.EventsAt(3)
	if err != nil {
		t.Fatalf("events at: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events, got %d", len(empty))
	}

	list := []*types.Event{
		{Type: "bank.deposited", Attributes: map[string]string{"amount": "100"}},
		{Type: "oracle.refresh_requested", Attributes: map[string]string{"pair": oracle.DefaultPair}},
	}
	if err := m.PutEvents(3, list); err != nil {
		t.Fatalf("put events: %v", err)
	}
	loaded, err := m.EventsAt(3)
	if err != nil {
		t.Fatalf("events at: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(loaded))
	}
	if loaded[0].Type != "bank.deposited" || loaded[1].Attributes["pair"] != oracle.DefaultPair {
		t.Fatalf("events mismatch: %+v", loaded)
	}
}
