package rated

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"time"

	"bankchain/core/events"
	"bankchain/core/types"
	"bankchain/observability"
)

// Reporter watches the node's event log for rate refresh requests and
// publishes a fresh BNK/ZBNK rate from the upstream price source when one
// appears.
type Reporter struct {
	cfg        Config
	client     *http.Client
	logger     *slog.Logger
	metrics    *observability.ReporterMetrics
	lastHeight uint64
	requestID  int
}

// NewReporter builds a reporter from cfg. A nil logger falls back to the
// default slog logger.
func NewReporter(cfg Config, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
		metrics: observability.Reporter(),
	}
}

// Run polls until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	// Start scanning from the current tip; historical refresh requests are
	// assumed handled.
	if height, err := r.chainHeight(ctx); err == nil {
		r.lastHeight = height
	} else {
		r.logger.Warn("could not read initial height", "err", err)
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.Error("poll failed", "err", err)
			}
		}
	}
}

// Tick runs one poll cycle: scan new heights for refresh requests and, when
// any appeared, fetch the upstream price and submit it.
func (r *Reporter) Tick(ctx context.Context) error {
	height, err := r.chainHeight(ctx)
	if err != nil {
		return fmt.Errorf("chain height: %w", err)
	}

	refreshes := 0
	for h := r.lastHeight + 1; h <= height; h++ {
		list, err := r.eventsAt(ctx, h)
		if err != nil {
			return fmt.Errorf("events at %d: %w", h, err)
		}
		for _, evt := range list {
			if evt.Type == events.TypeRateRefreshRequested {
				refreshes++
			}
		}
		r.lastHeight = h
	}
	r.metrics.ObservePoll(refreshes)
	if refreshes == 0 {
		return nil
	}

	rate, err := r.fetchRate(ctx)
	if err != nil {
		r.metrics.ObserveFetchError()
		return fmt.Errorf("fetch rate: %w", err)
	}
	submitErr := r.submitRate(ctx, rate)
	r.metrics.ObserveSubmission(submitErr)
	if submitErr != nil {
		return fmt.Errorf("submit rate: %w", submitErr)
	}
	r.logger.Info("rate published", "rate", rate.String(), "refreshRequests", refreshes)
	return nil
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *Reporter) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		rawParams = append(rawParams, encoded)
	}
	r.requestID++
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      r.requestID,
		"method":  method,
		"params":  rawParams,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.NodeURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.RPCToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var envelope rpcEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return envelope.Result, nil
}

func (r *Reporter) chainHeight(ctx context.Context) (uint64, error) {
	result, err := r.call(ctx, "chain_height")
	if err != nil {
		return 0, err
	}
	var decoded struct {
		Height uint64 `json:"height"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return 0, err
	}
	return decoded.Height, nil
}

func (r *Reporter) eventsAt(ctx context.Context, height uint64) ([]*types.Event, error) {
	result, err := r.call(ctx, "events_list", map[string]uint64{"height": height})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Events []*types.Event `json:"events"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, err
	}
	return decoded.Events, nil
}

// fetchRate reads the upstream exchange-rate endpoint. The payload follows
// the CoinAPI exchange-rate shape; only the rate field is used.
func (r *Reporter) fetchRate(ctx context.Context) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.PriceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price source returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode price payload: %w", err)
	}
	if math.IsNaN(decoded.Rate) || math.IsInf(decoded.Rate, 0) || decoded.Rate < 0 {
		return nil, fmt.Errorf("price source returned invalid rate %v", decoded.Rate)
	}
	rounded := math.Round(decoded.Rate)
	// float64(MaxUint64) is 2^64 exactly, one past the largest representable
	// value, so >= catches everything the conversion would mangle.
	if rounded >= float64(math.MaxUint64) {
		return nil, fmt.Errorf("price source returned out-of-range rate %v", decoded.Rate)
	}
	return new(big.Int).SetUint64(uint64(rounded)), nil
}

func (r *Reporter) submitRate(ctx context.Context, rate *big.Int) error {
	_, err := r.call(ctx, "oracle_update", map[string]string{
		"caller": r.cfg.CallerAddress,
		"rate":   rate.String(),
	})
	return err
}
