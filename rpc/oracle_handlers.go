package rpc

import (
	"math/big"
	"net/http"
	"strings"

	"bankchain/core"
	"bankchain/native/oracle"
)

type oracleUpdateParams struct {
	Caller string `json:"caller"`
	Rate   string `json:"rate"`
}

type oracleQueryResult struct {
	Pair             string        `json:"pair"`
	Rate             *big.Int      `json:"rate"`
	LastUpdateHeight uint64        `json:"lastUpdateHeight"`
	Receipt          *core.Receipt `json:"receipt"`
}

func (s *Server) handleOracleQuery(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	rate, receipt, err := s.node.OracleQuery()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	lastUpdate, err := s.node.OracleLastUpdateHeight()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, oracleQueryResult{
		Pair:             oracle.DefaultPair,
		Rate:             rate,
		LastUpdateHeight: lastUpdate,
		Receipt:          receipt,
	})
}

func (s *Server) handleOracleUpdate(w http.ResponseWriter, req *RPCRequest) {
	var params oracleUpdateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	rate, ok := new(big.Int).SetString(strings.TrimSpace(params.Rate), 10)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid rate", params.Rate)
		return
	}
	receipt, err := s.node.OracleUpdate(caller, rate)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}
