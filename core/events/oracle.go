package events

import (
	"math/big"
	"strconv"

	"bankchain/core/types"
)

const (
	// TypeRateRefreshRequested is emitted when a feed read observes that the
	// cached rate is older than the staleness window. The event is advisory:
	// an off-ledger reporter reacts by submitting a fresh rate.
	TypeRateRefreshRequested = "oracle.refresh_requested"
	// TypeRateUpdated is emitted when the feed administrator stores a rate.
	TypeRateUpdated = "oracle.rate_updated"
)

type RateRefreshRequested struct {
	Pair   string
	Height uint64
}

func (RateRefreshRequested) EventType() string { return TypeRateRefreshRequested }

func (e RateRefreshRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeRateRefreshRequested,
		Attributes: map[string]string{
			"pair":   e.Pair,
			"height": strconv.FormatUint(e.Height, 10),
		},
	}
}

type RateUpdated struct {
	Pair   string
	Rate   *big.Int
	Height uint64
}

func (RateUpdated) EventType() string { return TypeRateUpdated }

func (e RateUpdated) Event() *types.Event {
	rate := big.NewInt(0)
	if e.Rate != nil {
		rate = new(big.Int).Set(e.Rate)
	}
	return &types.Event{
		Type: TypeRateUpdated,
		Attributes: map[string]string{
			"pair":   e.Pair,
			"rate":   rate.String(),
			"height": strconv.FormatUint(e.Height, 10),
		},
	}
}
