package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"gousdcbridge/amount"
	"gousdcbridge/config"
	"gousdcbridge/types"
)

type TransferSubmission struct {
	WalletID           string        `json:"walletId"`
	DestinationAddress string        `json:"destinationAddress"`
	Amount             string        `json:"amount"`
	Blockchain         types.ChainID `json:"blockchain"`
}

type APITransferResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

// SubmitTransfer handles the regular single-chain USDC transfer: one
// custody transfer call, MEDIUM fee tier, no bridging involved.
func (h *Handler) SubmitTransfer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req TransferSubmission
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

	if _, err := amount.ToSmallestUnit(req.Amount); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "amount",
			Message: "Amount is not a valid non-negative decimal",
		}, http.StatusBadRequest)
		return
	}

	chain, err := config.ChainByID(req.Blockchain)
	if err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "blockchain",
			Message: "Blockchain not provided or not supported",
		}, http.StatusBadRequest)
		return
	}

	txID, err := h.Circle.CreateTransfer(r.Context(), req.WalletID, chain.USDCTokenID, req.DestinationAddress, req.Amount)
	if err != nil {
		h.Logger.Error("error creating transfer",
			zap.String("walletId", req.WalletID),
			zap.Error(err))
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot create transfer",
		}, http.StatusBadGateway)
		return
	}

	responseJSON(w, &APITransferResponse{
		Status:        "ok",
		TransactionID: txID,
	}, http.StatusOK)
}
