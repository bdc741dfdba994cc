package circle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gousdcbridge/types"
)

const apiBase = "https://api.circle.com"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := New(zap.NewNop(), apiBase, "test-key", "ciphertext-blob")
	c.PollInterval = 5 * time.Millisecond
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestSubmitContractCall(t *testing.T) {
	c := newTestClient(t)

	var captured contractExecutionRequest
	httpmock.RegisterResponder("POST", apiBase+"/v1/w3s/developer/transactions/contractExecution",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &captured))
			return httpmock.NewStringResponse(201, `{"data":{"id":"tx-123","state":"INITIATED"}}`), nil
		})

	id, err := c.SubmitContractCall(context.Background(), "wallet-1", "0xMessenger",
		"approve(address,uint256)", []interface{}{"0xSpender", "10000000"}, FeeLevelHigh)
	require.NoError(t, err)
	assert.Equal(t, "tx-123", id)

	assert.Equal(t, "wallet-1", captured.WalletID)
	assert.Equal(t, "0xMessenger", captured.ContractAddress)
	assert.Equal(t, "approve(address,uint256)", captured.ABIFunctionSignature)
	assert.Equal(t, []interface{}{"0xSpender", "10000000"}, captured.ABIParameters)
	assert.Equal(t, "level", captured.Fee.Type)
	assert.Equal(t, FeeLevelHigh, captured.Fee.Config.FeeLevel)
	assert.Equal(t, "ciphertext-blob", captured.EntitySecretCiphertext)
	assert.NotEmpty(t, captured.IdempotencyKey)
}

func TestSubmitContractCallGatewayDown(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("POST", apiBase+"/v1/w3s/developer/transactions/contractExecution",
		httpmock.NewStringResponder(502, `{"error":"bad gateway"}`))

	_, err := c.SubmitContractCall(context.Background(), "wallet-1", "0xMessenger",
		"approve(address,uint256)", []interface{}{"0xSpender", "1"}, FeeLevelHigh)
	assert.ErrorIs(t, err, types.ErrGatewayUnavailable)
}

func TestAwaitConfirmation(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/transactions/tx-123",
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(200, `{"data":{"transaction":{"id":"tx-123","state":"SENT"}}}`),
			httpmock.NewStringResponse(200, `{"data":{"transaction":{"id":"tx-123","state":"SENT"}}}`),
			httpmock.NewStringResponse(200, `{"data":{"transaction":{"id":"tx-123","txHash":"0xabc","state":"CONFIRMED"}}}`),
		}))

	tx, err := c.AwaitConfirmation(context.Background(), "tx-123")
	require.NoError(t, err)
	assert.Equal(t, TxStateConfirmed, tx.State)
	assert.Equal(t, "0xabc", tx.TxHash)
}

func TestAwaitConfirmationFailed(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/transactions/tx-bad",
		httpmock.NewStringResponder(200, `{"data":{"transaction":{"id":"tx-bad","state":"FAILED"}}}`))

	_, err := c.AwaitConfirmation(context.Background(), "tx-bad")
	var txErr *types.TransactionFailedError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "tx-bad", txErr.TransactionID)
}

// transient gateway errors during polling are absorbed, not surfaced
func TestAwaitConfirmationPollsThroughOutage(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/transactions/tx-123",
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(500, `{"error":"internal"}`),
			httpmock.NewStringResponse(200, `{"data":{"transaction":{"id":"tx-123","txHash":"0xabc","state":"COMPLETE"}}}`),
		}))

	tx, err := c.AwaitConfirmation(context.Background(), "tx-123")
	require.NoError(t, err)
	assert.Equal(t, TxStateComplete, tx.State)
}

// definitive 4xx rejections (an unknown transaction id) surface
// immediately instead of being polled forever
func TestAwaitConfirmationSurfacesDefinitiveError(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/transactions/tx-unknown",
		httpmock.NewStringResponder(404, `{"code":404,"message":"Transaction not found"}`))

	_, err := c.AwaitConfirmation(context.Background(), "tx-unknown")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestAwaitConfirmationHonoursContext(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/transactions/tx-123",
		httpmock.NewStringResponder(200, `{"data":{"transaction":{"id":"tx-123","state":"SENT"}}}`))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.AwaitConfirmation(ctx, "tx-123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListWallets(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/wallets",
		httpmock.NewStringResponder(200, `{"data":{"wallets":[
			{"id":"w-1","address":"0x1111","blockchain":"ETH-SEPOLIA"},
			{"id":"w-2","address":"0x2222","blockchain":"AVAX-FUJI"}
		]}}`))

	wallets, err := c.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "w-1", wallets[0].ID)
	assert.Equal(t, types.CHAIN_AVAX_FUJI, wallets[1].Blockchain)
}

func TestCreateWallet(t *testing.T) {
	c := newTestClient(t)

	var walletsReq createWalletsRequest
	httpmock.RegisterResponder("POST", apiBase+"/v1/w3s/developer/walletSets",
		httpmock.NewStringResponder(201, `{"data":{"walletSet":{"id":"ws-1"}}}`))
	httpmock.RegisterResponder("POST", apiBase+"/v1/w3s/developer/wallets",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &walletsReq))
			return httpmock.NewStringResponse(201, `{"data":{"wallets":[
				{"id":"w-new","address":"0x3333","blockchain":"MATIC-AMOY"}
			]}}`), nil
		})

	w, err := c.CreateWallet(context.Background(), types.CHAIN_MATIC_AMOY)
	require.NoError(t, err)
	assert.Equal(t, "w-new", w.ID)
	assert.Equal(t, types.CHAIN_MATIC_AMOY, w.Blockchain)

	assert.Equal(t, "ws-1", walletsReq.WalletSetID)
	assert.Equal(t, "SCA", walletsReq.AccountType)
	assert.Equal(t, 1, walletsReq.Count)
	assert.Equal(t, []types.ChainID{types.CHAIN_MATIC_AMOY}, walletsReq.Blockchains)
}

func TestGetWalletBalances(t *testing.T) {
	c := newTestClient(t)
	httpmock.RegisterResponder("GET", apiBase+"/v1/w3s/wallets/w-1/balances",
		httpmock.NewStringResponder(200, `{"data":{"tokenBalances":[
			{"token":{"id":"usdc-id","symbol":"USDC"},"amount":"42.5"}
		]}}`))

	balances, err := c.GetWalletBalances(context.Background(), "w-1")
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "USDC", balances[0].Token.Symbol)
	assert.Equal(t, "42.5", balances[0].Amount)
}
