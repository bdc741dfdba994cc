package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"gousdcbridge/bridge"
	"gousdcbridge/types"
)

// InitiateCCTPTransfer creates a bridging run. By default the run id is
// returned immediately and the worker pool takes over; with ?sync=true
// the request blocks until the run reaches a terminal phase.
func (h *Handler) InitiateCCTPTransfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req types.TransferRequest
	if err := json.Unmarshal(body, &req); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	if err := ethav.Validate(common.HexToAddress(req.DestinationAddress).Hex()); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "destinationAddress",
			Message: "No destination address or invalid address provided",
		}, http.StatusBadRequest)
		return
	}

	run, err := h.Orch.CreateRun(r.Context(), req)
	if err != nil {
		status, field := http.StatusInternalServerError, ""
		switch {
		case errors.Is(err, types.ErrInvalidAmount):
			status, field = http.StatusBadRequest, "amount"
		case errors.Is(err, types.ErrInvalidAddress):
			status, field = http.StatusBadRequest, "destinationAddress"
		case errors.Is(err, types.ErrUnsupportedChain):
			status, field = http.StatusBadRequest, "destinationChain"
		}
		h.Logger.Warn("transfer run rejected", zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   field,
			Message: err.Error(),
		}, status)
		return
	}

	if r.URL.Query().Get("sync") != "true" {
		responseJSON(w, &APIRunResponse{
			Status: "ok",
			Run:    run,
		}, http.StatusOK)
		return
	}

	// blocking mode; a dropped request leaves the run persisted and the
	// worker pool finishes it
	final, err := h.Orch.Execute(r.Context(), run.ID)
	if err != nil && !errors.Is(err, bridge.ErrRunBusy) {
		h.Logger.Error("error executing transfer run",
			zap.String("runId", run.ID),
			zap.Error(err))
		responseJSON(w, &APIRunResponse{
			Status: "error",
			Run:    run,
		}, http.StatusInternalServerError)
		return
	}
	if final == nil {
		final = run
	}

	responseJSON(w, &APIRunResponse{
		Status: "ok",
		Run:    final,
	}, http.StatusOK)
}
