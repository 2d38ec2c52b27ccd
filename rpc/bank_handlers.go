package rpc

import (
	"math/big"
	"net/http"

	"bankchain/native/bank"
)

type bankAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type bankCallerParams struct {
	Caller string `json:"caller"`
}

type bankRateParams struct {
	Caller string `json:"caller"`
	Rate   uint64 `json:"rate"`
}

type bankAccountParams struct {
	Address string `json:"address"`
}

type bankInvestorResult struct {
	Address          string   `json:"address"`
	HasActiveDeposit bool     `json:"hasActiveDeposit"`
	Amount           *big.Int `json:"amount"`
	StartHeight      uint64   `json:"startHeight"`
}

type bankBorrowerResult struct {
	Address       string   `json:"address"`
	HasActiveLoan bool     `json:"hasActiveLoan"`
	Amount        *big.Int `json:"amount"`
	Collateral    *big.Int `json:"collateral"`
}

func (s *Server) handleBankDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params bankAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.BankDeposit(caller, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleBankWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params bankCallerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.BankWithdraw(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleBankBorrow(w http.ResponseWriter, req *RPCRequest) {
	var params bankAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.BankBorrow(caller, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleBankPayLoan(w http.ResponseWriter, req *RPCRequest) {
	var params bankAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.BankPayLoan(caller, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleBankUpdateAnnualRate(w http.ResponseWriter, req *RPCRequest) {
	var params bankRateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.node.BankUpdateAnnualRate(caller, params.Rate)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleBankGetInvestor(w http.ResponseWriter, req *RPCRequest) {
	var params bankAccountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	investor, err := s.node.BankGetInvestor(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, investorResult(investor))
}

func (s *Server) handleBankGetBorrower(w http.ResponseWriter, req *RPCRequest) {
	var params bankAccountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	borrower, err := s.node.BankGetBorrower(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, borrowerResult(borrower))
}

func investorResult(investor *bank.Investor) bankInvestorResult {
	return bankInvestorResult{
		Address:          investor.Address.String(),
		HasActiveDeposit: investor.HasActiveDeposit,
		Amount:           investor.Amount,
		StartHeight:      investor.StartHeight,
	}
}

func borrowerResult(borrower *bank.Borrower) bankBorrowerResult {
	return bankBorrowerResult{
		Address:       borrower.Address.String(),
		HasActiveLoan: borrower.HasActiveLoan,
		Amount:        borrower.Amount,
		Collateral:    borrower.Collateral,
	}
}
