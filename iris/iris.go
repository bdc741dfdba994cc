// Package iris is the client for Circle's attestation service. One call
// per poll, the looping lives with the orchestrator.
package iris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"gousdcbridge/types"
)

type attestationResponse struct {
	Data *struct {
		Status      string `json:"status"`
		Attestation string `json:"attestation"`
	} `json:"data"`
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(logger *zap.Logger, baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(zap.String("component", "iris.Client")),
	}
}

// Poll fetches the attestation for a message hash. A 404 from the service
// means "not attested yet" and yields a pending record, not an error.
// Definitive error responses surface as ErrAttestationService; network
// failures and 5xx responses come back as plain errors so callers can
// retry them silently.
func (c *Client) Poll(ctx context.Context, messageHash string) (*types.AttestationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/attestations/"+messageHash, nil)
	if err != nil {
		return nil, fmt.Errorf("building attestation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching attestation: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading attestation response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &types.AttestationRecord{MessageHash: messageHash, Status: types.AttestationPending}, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("attestation service responded %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrAttestationService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed attestationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unmarshalling response: %v", types.ErrAttestationService, err)
	}

	// some deployments wrap the payload in a data envelope
	status, attestation := parsed.Status, parsed.Attestation
	if parsed.Data != nil {
		status, attestation = parsed.Data.Status, parsed.Data.Attestation
	}

	// the service reports the literal string PENDING in the attestation
	// field while signatures are still being collected
	if attestation == "" || strings.EqualFold(attestation, "PENDING") {
		c.logger.Debug("attestation pending",
			zap.String("messageHash", messageHash),
			zap.String("status", status))
		return &types.AttestationRecord{MessageHash: messageHash, Status: types.AttestationPending}, nil
	}

	return &types.AttestationRecord{
		MessageHash: messageHash,
		Status:      types.AttestationComplete,
		Attestation: attestation,
	}, nil
}
