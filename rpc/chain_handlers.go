package rpc

import (
	"net/http"

	"bankchain/core/types"
)

type eventsListParams struct {
	Height *uint64 `json:"height"`
}

type eventsListResult struct {
	Height uint64         `json:"height"`
	Events []*types.Event `json:"events"`
}

type chainHeightResult struct {
	Height uint64 `json:"height"`
}

// handleEventsList returns the events committed at a height. Omitting the
// height reads the latest committed one.
func (s *Server) handleEventsList(w http.ResponseWriter, req *RPCRequest) {
	var height uint64
	if len(req.Params) > 0 {
		var params eventsListParams
		if err := decodeParams(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		if params.Height == nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "height required", nil)
			return
		}
		height = *params.Height
	} else {
		height = s.node.Height()
	}
	list, err := s.node.EventsAt(height)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	if list == nil {
		list = []*types.Event{}
	}
	writeResult(w, req.ID, eventsListResult{Height: height, Events: list})
}

func (s *Server) handleChainHeight(w http.ResponseWriter, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	writeResult(w, req.ID, chainHeightResult{Height: s.node.Height()})
}
