package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gousdcbridge/bridge"
	"gousdcbridge/circle"
	"gousdcbridge/types"
)

type stubStore struct {
	runs map[string]*types.TransferRun
}

func (s *stubStore) CreateRun(run *types.TransferRun) error {
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(s.runs)+1)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *stubStore) SaveRun(run *types.TransferRun, prevPhase types.Phase) error {
	s.runs[run.ID] = run
	return nil
}

func (s *stubStore) GetRun(id string) (*types.TransferRun, error) {
	return s.runs[id], nil
}

func (s *stubStore) FindRunByMessageHash(messageHash string) (*types.TransferRun, error) {
	return nil, nil
}

func (s *stubStore) FindRunsByPhase(phase types.Phase) ([]*types.TransferRun, error) {
	var out []*types.TransferRun
	for _, r := range s.runs {
		if r.Phase == phase {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubGateway struct{}

func (stubGateway) SubmitContractCall(ctx context.Context, walletID, contractAddress, functionSignature string, args []interface{}, feeLevel string) (string, error) {
	return "", fmt.Errorf("not wired in this test")
}

func (stubGateway) AwaitConfirmation(ctx context.Context, transactionID string) (*circle.Transaction, error) {
	return nil, fmt.Errorf("not wired in this test")
}

func (stubGateway) ListWallets(ctx context.Context) ([]types.Wallet, error) {
	return []types.Wallet{{ID: "w-src", Address: "0xsrc", Blockchain: types.CHAIN_ETH_SEPOLIA}}, nil
}

func (stubGateway) CreateWallet(ctx context.Context, chain types.ChainID) (*types.Wallet, error) {
	return nil, fmt.Errorf("not wired in this test")
}

type stubReader struct{}

func (stubReader) ExtractMessage(ctx context.Context, chain types.ChainID, txHash string) (string, string, error) {
	return "", "", types.ErrMessageEventNotFound
}

type stubAttestor struct{}

func (stubAttestor) Poll(ctx context.Context, messageHash string) (*types.AttestationRecord, error) {
	return &types.AttestationRecord{MessageHash: messageHash, Status: types.AttestationPending}, nil
}

func newTestHandler() (*Handler, *stubStore) {
	store := &stubStore{runs: map[string]*types.TransferRun{}}
	orch := bridge.New(zap.NewNop(), store, stubGateway{}, stubReader{}, stubAttestor{})
	return New(zap.NewNop(), orch, store, nil), store
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestInitiateCCTPTransferBadJSON(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest("POST", "/cctp/transfer", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.InitiateCCTPTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateCCTPTransferInvalidAddress(t *testing.T) {
	h, _ := newTestHandler()

	body := `{"sourceWalletId":"w-src","destinationAddress":"nonsense","amount":"1.5","destinationChain":"AVAX-FUJI"}`
	req := httptest.NewRequest("POST", "/cctp/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InitiateCCTPTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "destinationAddress", resp.Field)
}

func TestInitiateCCTPTransferInvalidAmount(t *testing.T) {
	h, _ := newTestHandler()

	body := `{"sourceWalletId":"w-src","destinationAddress":"0x1d96f2f6bef1202e4ce1ff6dad0c2cb002861d3e","amount":"-4","destinationChain":"AVAX-FUJI"}`
	req := httptest.NewRequest("POST", "/cctp/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InitiateCCTPTransfer(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "amount", resp.Field)
}

func TestInitiateCCTPTransferAsync(t *testing.T) {
	h, store := newTestHandler()

	body := `{"sourceWalletId":"w-src","destinationAddress":"0x1d96f2f6bef1202e4ce1ff6dad0c2cb002861d3e","amount":"1.5","destinationChain":"AVAX-FUJI"}`
	req := httptest.NewRequest("POST", "/cctp/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.InitiateCCTPTransfer(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp APIRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Run)
	assert.Equal(t, types.PhaseCreated, resp.Run.Phase)

	stored, err := store.GetRun(resp.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRunStatusNotFound(t *testing.T) {
	h, _ := newTestHandler()

	req := withURLParam(httptest.NewRequest("GET", "/cctp/runs/nope", nil), "id", "nope")
	rec := httptest.NewRecorder()
	h.RunStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunStatusFound(t *testing.T) {
	h, store := newTestHandler()
	store.runs["run-1"] = &types.TransferRun{ID: "run-1", Phase: types.PhaseAwaitingAttestation}

	req := withURLParam(httptest.NewRequest("GET", "/cctp/runs/run-1", nil), "id", "run-1")
	rec := httptest.NewRecorder()
	h.RunStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp APIRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.PhaseAwaitingAttestation, resp.Run.Phase)
}

func TestCancelRunAfterBurnConflicts(t *testing.T) {
	h, store := newTestHandler()
	store.runs["run-1"] = &types.TransferRun{ID: "run-1", Phase: types.PhaseMintSubmitted}

	req := withURLParam(httptest.NewRequest("POST", "/cctp/runs/run-1/cancel", nil), "id", "run-1")
	rec := httptest.NewRecorder()
	h.CancelRun(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
