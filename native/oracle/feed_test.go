package oracle

import (
	"errors"
	"math/big"
	"testing"

	"bankchain/core/events"
	"bankchain/crypto"
)

type mockFeedState struct {
	feeds map[string]*FeedState
}

func newMockFeedState() *mockFeedState {
	return &mockFeedState{feeds: make(map[string]*FeedState)}
}

func (m *mockFeedState) GetFeed(pair string) (*FeedState, error) {
	return m.feeds[pair], nil
}

func (m *mockFeedState) PutFeed(pair string, state *FeedState) error {
	m.feeds[pair] = state
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.NewAddress(raw)
}

func newTestFeed(admin crypto.Address, height uint64) (*Feed, *events.Recorder) {
	feed := NewFeed("")
	feed.SetState(newMockFeedState())
	recorder := &events.Recorder{}
	feed.SetEmitter(recorder)
	feed.SetBlockHeight(height)
	if err := feed.Initialize(admin); err != nil {
		panic(err)
	}
	return feed, recorder
}

func countRefreshRequests(recorder *events.Recorder) int {
	var count int
	for _, evt := range recorder.Events() {
		if evt.Type == events.TypeRateRefreshRequested {
			count++
		}
	}
	return count
}

func TestInitializeStampsConstructionHeight(t *testing.T) {
	admin := makeAddress(0x01)
	feed, _ := newTestFeed(admin, 7)

	rate, err := feed.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rate.Sign() != 0 {
		t.Fatalf("initial rate should be zero, got %s", rate)
	}
	last, err := feed.LastUpdateHeight()
	if err != nil {
		t.Fatalf("last update height: %v", err)
	}
	if last != 7 {
		t.Fatalf("unexpected last update height: %d", last)
	}
}

func TestUpdateRequiresAdministrator(t *testing.T) {
	admin := makeAddress(0x01)
	outsider := makeAddress(0x02)
	feed, _ := newTestFeed(admin, 0)

	if err := feed.Update(outsider, big.NewInt(10)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	feed.SetBlockHeight(5)
	if err := feed.Update(admin, big.NewInt(10)); err != nil {
		t.Fatalf("update: %v", err)
	}
	rate, err := feed.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rate.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected rate: %s", rate)
	}
	last, err := feed.LastUpdateHeight()
	if err != nil {
		t.Fatalf("last update height: %v", err)
	}
	if last != 5 {
		t.Fatalf("unexpected last update height: %d", last)
	}
}

func TestQueryWithinWindowEmitsNothing(t *testing.T) {
	admin := makeAddress(0x01)
	feed, recorder := newTestFeed(admin, 0)

	// Gap of exactly the window is still fresh.
	feed.SetBlockHeight(3)
	if _, err := feed.Query(); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := countRefreshRequests(recorder); got != 0 {
		t.Fatalf("expected no refresh requests, got %d", got)
	}
}

func TestStaleQueryEmitsOneRefreshRequestPerCall(t *testing.T) {
	admin := makeAddress(0x01)
	feed, recorder := newTestFeed(admin, 0)

	feed.SetBlockHeight(4)
	if _, err := feed.Query(); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := countRefreshRequests(recorder); got != 1 {
		t.Fatalf("expected one refresh request, got %d", got)
	}
	if _, err := feed.Query(); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := countRefreshRequests(recorder); got != 2 {
		t.Fatalf("expected one refresh request per stale query, got %d", got)
	}

	// The event carries the pair identifier.
	for _, evt := range recorder.Events() {
		if evt.Type == events.TypeRateRefreshRequested && evt.Attributes["pair"] != DefaultPair {
			t.Fatalf("unexpected pair attribute: %q", evt.Attributes["pair"])
		}
	}
}

func TestStaleQueryNeverMutatesRate(t *testing.T) {
	admin := makeAddress(0x01)
	feed, _ := newTestFeed(admin, 0)

	feed.SetBlockHeight(100)
	rate, err := feed.Query()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rate.Sign() != 0 {
		t.Fatalf("stale query must not change the rate, got %s", rate)
	}
	last, err := feed.LastUpdateHeight()
	if err != nil {
		t.Fatalf("last update height: %v", err)
	}
	if last != 0 {
		t.Fatalf("stale query must not advance the update height, got %d", last)
	}
}

func TestUpdateRejectsNegativeRate(t *testing.T) {
	admin := makeAddress(0x01)
	feed, _ := newTestFeed(admin, 0)

	if err := feed.Update(admin, big.NewInt(-1)); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}
