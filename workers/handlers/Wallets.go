package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"gousdcbridge/config"
	"gousdcbridge/types"
)

type CreateWalletRequest struct {
	Blockchain types.ChainID `json:"blockchain"`
}

func (h *Handler) GetWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Circle.ListWallets(r.Context())
	if err != nil {
		h.Logger.Error("error listing wallets", zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot list wallets",
		}, http.StatusBadGateway)
		return
	}

	responseJSON(w, wallets, http.StatusOK)
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req CreateWalletRequest
	if err := json.Unmarshal(body, &req); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	if _, err := config.ChainByID(req.Blockchain); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "blockchain",
			Message: "Blockchain not provided or not supported",
		}, http.StatusBadRequest)
		return
	}

	wallet, err := h.Circle.CreateWallet(r.Context(), req.Blockchain)
	if err != nil {
		h.Logger.Error("error creating wallet", zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot create wallet",
		}, http.StatusBadGateway)
		return
	}

	responseJSON(w, wallet, http.StatusOK)
}

func (h *Handler) WalletBalance(w http.ResponseWriter, r *http.Request) {
	walletID := chi.URLParam(r, "id")

	balances, err := h.Circle.GetWalletBalances(r.Context(), walletID)
	if err != nil {
		h.Logger.Error("error fetching wallet balances",
			zap.String("walletId", walletID),
			zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot fetch wallet balances",
		}, http.StatusBadGateway)
		return
	}

	responseJSON(w, balances, http.StatusOK)
}
