package handlers

import (
	"go.uber.org/zap"

	"gousdcbridge/bridge"
	"gousdcbridge/circle"
	"gousdcbridge/types"
)

// Handler carries the collaborators the REST surface needs.
type Handler struct {
	Logger *zap.Logger
	Orch   *bridge.Orchestrator
	Store  bridge.RunStore
	Circle *circle.Client
}

func New(logger *zap.Logger, orch *bridge.Orchestrator, store bridge.RunStore, circleClient *circle.Client) *Handler {
	return &Handler{
		Logger: logger.With(zap.String("component", "handlers")),
		Orch:   orch,
		Store:  store,
		Circle: circleClient,
	}
}

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type APIRunResponse struct {
	Status string             `json:"status"`
	Run    *types.TransferRun `json:"run"`
}

type APIAttestationResponse struct {
	Status      string      `json:"status"`
	MessageHash string      `json:"messageHash"`
	Attestation string      `json:"attestation,omitempty"`
	RunID       string      `json:"runId,omitempty"`
	RunPhase    types.Phase `json:"runPhase,omitempty"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
