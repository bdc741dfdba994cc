package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// AttestationStatus is the idempotent long-tail query: clients holding a
// messageHash poll here at whatever cadence they like while the
// attestation service does its work.
func (h *Handler) AttestationStatus(w http.ResponseWriter, r *http.Request) {
	messageHash := chi.URLParam(r, "messageHash")

	rec, run, err := h.Orch.AttestationStatus(r.Context(), messageHash)
	if err != nil {
		h.Logger.Warn("attestation status query failed",
			zap.String("messageHash", messageHash),
			zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot query attestation service",
		}, http.StatusBadGateway)
		return
	}

	resp := &APIAttestationResponse{
		Status:      rec.Status,
		MessageHash: messageHash,
		Attestation: rec.Attestation,
	}
	if run != nil {
		resp.RunID = run.ID
		resp.RunPhase = run.Phase
	}

	responseJSON(w, resp, http.StatusOK)
}
