package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bankchain/core"
	"bankchain/crypto"
	"bankchain/native/bank"
	"bankchain/native/oracle"
	"bankchain/native/token"
	"bankchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the node over JSON-RPC.
type Server struct {
	node      *core.Node
	authToken string
	logger    *slog.Logger
}

// NewServer builds an RPC server for node. An empty authToken falls back to
// the BANKCHAIN_RPC_TOKEN environment variable; when neither is set, mutating
// methods are rejected.
func NewServer(node *core.Node, authToken string, logger *slog.Logger) *Server {
	if authToken == "" {
		authToken = strings.TrimSpace(os.Getenv("BANKCHAIN_RPC_TOKEN"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{node: node, authToken: authToken, logger: logger}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint, a liveness probe
// and the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	if rec, ok := w.(*statusRecorder); ok {
		rec.errCode = code
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// errorCode translates engine sentinel errors into JSON-RPC error codes.
func errorCode(err error) int {
	switch {
	case errors.Is(err, token.ErrUnauthorized),
		errors.Is(err, oracle.ErrUnauthorized),
		errors.Is(err, bank.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, oracle.ErrInvalidRate),
		errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrInvalidRate),
		errors.Is(err, bank.ErrBelowMinimum),
		errors.Is(err, bank.ErrAmountMismatch):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	code := errorCode(err)
	status := http.StatusOK
	if code == codeUnauthorized {
		status = http.StatusForbidden
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	switch req.Method {
	case "token_transfer":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleTokenTransfer(rec, req)
	case "token_approve":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleTokenApprove(rec, req)
	case "token_transferFrom":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleTokenTransferFrom(rec, req)
	case "token_balanceOf":
		s.handleTokenBalanceOf(rec, req)
	case "token_allowance":
		s.handleTokenAllowance(rec, req)
	case "token_totalSupply":
		s.handleTokenTotalSupply(rec, req)
	case "oracle_query":
		s.handleOracleQuery(rec, req)
	case "oracle_update":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleOracleUpdate(rec, req)
	case "bank_deposit":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleBankDeposit(rec, req)
	case "bank_withdraw":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleBankWithdraw(rec, req)
	case "bank_borrow":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleBankBorrow(rec, req)
	case "bank_payLoan":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleBankPayLoan(rec, req)
	case "bank_updateAnnualRate":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(rec, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			break
		}
		s.handleBankUpdateAnnualRate(rec, req)
	case "bank_getInvestor":
		s.handleBankGetInvestor(rec, req)
	case "bank_getBorrower":
		s.handleBankGetBorrower(rec, req)
	case "events_list":
		s.handleEventsList(rec, req)
	case "chain_height":
		s.handleChainHeight(rec, req)
	default:
		writeError(rec, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}

	observability.RPC().ObserveRequest(req.Method, start, rec.errCode)
	if rec.errCode != 0 {
		s.logger.Debug("rpc request failed", "method", req.Method, "code", rec.errCode)
	}
}

// statusRecorder remembers the JSON-RPC error code written by a handler so
// the metrics layer can segment outcomes.
type statusRecorder struct {
	http.ResponseWriter
	errCode int
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenStr == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(tokenStr), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// decodeParams unmarshals the single object parameter every method accepts.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
