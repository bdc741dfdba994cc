package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"gousdcbridge/types"
)

// RunStatus reports the current phase, every recorded transaction hash
// and, for failed runs, the structured cause.
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := h.Store.GetRun(runID)
	if err != nil {
		h.Logger.Error("error fetching run", zap.String("runId", runID), zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot fetch transfer run",
		}, http.StatusInternalServerError)
		return
	}
	if run == nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Transfer run not found",
		}, http.StatusNotFound)
		return
	}

	responseJSON(w, &APIRunResponse{
		Status: "ok",
		Run:    run,
	}, http.StatusOK)
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := h.Orch.Cancel(runID)
	if err != nil {
		if errors.Is(err, types.ErrRunNotCancellable) {
			responseJSON(w, &APIResponse{
				Status:  "error",
				Message: "Burn already confirmed, run can only complete",
			}, http.StatusConflict)
			return
		}
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: err.Error(),
		}, http.StatusBadRequest)
		return
	}

	responseJSON(w, &APIRunResponse{
		Status: "ok",
		Run:    run,
	}, http.StatusOK)
}

func (h *Handler) GetFailedRuns(w http.ResponseWriter, r *http.Request) {
	failed, err := h.Store.FindRunsByPhase(types.PhaseFailed)
	if err != nil {
		responseJSON(w, nil, http.StatusInternalServerError)
		return
	}

	responseJSON(w, failed, http.StatusOK)
}
