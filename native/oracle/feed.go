package oracle

import (
	"errors"
	"math/big"

	"bankchain/core/events"
	"bankchain/crypto"
)

// DefaultPair identifies the exchange rate served by the feed: settlement
// token units per unit of base asset.
const DefaultPair = "BNK/ZBNK"

// stalenessWindow is the height delta beyond which a read signals that the
// cached rate should be refreshed.
const stalenessWindow = 3

var (
	// ErrNilState indicates the feed was used before wiring a state backend.
	ErrNilState = errors.New("price feed: state not configured")
	// ErrNotInitialized is returned when the feed record has never been
	// written for the configured pair.
	ErrNotInitialized = errors.New("price feed: feed not initialized")
	// ErrUnauthorized is returned when a non-administrator submits a rate.
	ErrUnauthorized = errors.New("price feed: caller is not the feed administrator")
	// ErrInvalidRate rejects nil or negative rates.
	ErrInvalidRate = errors.New("price feed: rate must be non-negative")
)

// FeedState is the persisted record for a single traded pair.
type FeedState struct {
	Admin            crypto.Address `json:"admin"`
	Rate             *big.Int       `json:"rate"`
	LastUpdateHeight uint64         `json:"lastUpdateHeight"`
}

type feedState interface {
	GetFeed(pair string) (*FeedState, error)
	PutFeed(pair string, state *FeedState) error
}

// Feed caches an exchange rate under a single administrator. Reads never
// mutate the cache; when the cached rate ages past the staleness window a
// read emits an advisory refresh-request event for the off-ledger reporter.
type Feed struct {
	state       feedState
	emitter     events.Emitter
	pair        string
	blockHeight uint64
}

// NewFeed constructs a feed for the given pair, defaulting to DefaultPair.
func NewFeed(pair string) *Feed {
	if pair == "" {
		pair = DefaultPair
	}
	return &Feed{pair: pair}
}

// SetState wires the feed to the external persistence layer.
func (f *Feed) SetState(state feedState) { f.state = state }

// SetEmitter wires the feed to an event sink.
func (f *Feed) SetEmitter(emitter events.Emitter) { f.emitter = emitter }

// SetBlockHeight records the height used for staleness detection and update
// stamping.
func (f *Feed) SetBlockHeight(height uint64) { f.blockHeight = height }

// Pair returns the traded pair identifier this feed serves.
func (f *Feed) Pair() string { return f.pair }

// Initialize writes the genesis feed record: rate zero, last update stamped
// at the current height, administered by admin. Re-initialization of an
// existing feed is a no-op.
func (f *Feed) Initialize(admin crypto.Address) error {
	if f == nil || f.state == nil {
		return ErrNilState
	}
	existing, err := f.state.GetFeed(f.pair)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return f.state.PutFeed(f.pair, &FeedState{
		Admin:            admin,
		Rate:             big.NewInt(0),
		LastUpdateHeight: f.blockHeight,
	})
}

// Query returns the cached rate without mutating it. When the rate is older
// than the staleness window the feed emits exactly one refresh-request event
// per call; the event is advisory and the cache is left untouched.
func (f *Feed) Query() (*big.Int, error) {
	if f == nil || f.state == nil {
		return nil, ErrNilState
	}
	record, err := f.loadFeed()
	if err != nil {
		return nil, err
	}
	if f.blockHeight-record.LastUpdateHeight > stalenessWindow {
		f.emit(events.RateRefreshRequested{Pair: f.pair, Height: f.blockHeight})
	}
	return new(big.Int).Set(record.Rate), nil
}

// Update stores a fresh rate. Only the feed administrator may update; the
// last-update height advances to the current height.
func (f *Feed) Update(caller crypto.Address, newRate *big.Int) error {
	if f == nil || f.state == nil {
		return ErrNilState
	}
	if newRate == nil || newRate.Sign() < 0 {
		return ErrInvalidRate
	}
	record, err := f.loadFeed()
	if err != nil {
		return err
	}
	if !record.Admin.Equal(caller) {
		return ErrUnauthorized
	}
	record.Rate = new(big.Int).Set(newRate)
	record.LastUpdateHeight = f.blockHeight
	if err := f.state.PutFeed(f.pair, record); err != nil {
		return err
	}
	f.emit(events.RateUpdated{Pair: f.pair, Rate: newRate, Height: f.blockHeight})
	return nil
}

// LastUpdateHeight reports when the rate was last set by the administrator.
func (f *Feed) LastUpdateHeight() (uint64, error) {
	if f == nil || f.state == nil {
		return 0, ErrNilState
	}
	record, err := f.loadFeed()
	if err != nil {
		return 0, err
	}
	return record.LastUpdateHeight, nil
}

// Admin reports the account allowed to update the rate.
func (f *Feed) Admin() (crypto.Address, error) {
	if f == nil || f.state == nil {
		return crypto.Address{}, ErrNilState
	}
	record, err := f.loadFeed()
	if err != nil {
		return crypto.Address{}, err
	}
	return record.Admin, nil
}

func (f *Feed) loadFeed() (*FeedState, error) {
	record, err := f.state.GetFeed(f.pair)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotInitialized
	}
	if record.Rate == nil {
		record.Rate = big.NewInt(0)
	}
	return record, nil
}

func (f *Feed) emit(evt events.Event) {
	if f.emitter != nil {
		f.emitter.Emit(evt)
	}
}
