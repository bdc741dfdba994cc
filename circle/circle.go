// Package circle is the gateway to the custodial wallet provider. It
// submits contract calls and transfers on behalf of managed wallets and
// polls them to a terminal state. Signing and key custody stay entirely
// on the provider side; the entity secret is forwarded as an opaque
// credential.
package circle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gousdcbridge/types"
)

type Client struct {
	baseURL      string
	apiKey       string
	entitySecret string
	httpClient   *http.Client
	logger       *zap.Logger

	// confirmation poll cadence, overridable in tests
	PollInterval time.Duration

	// one mutex per wallet id: concurrent submissions from the same
	// wallet race nonce assignment at the custody layer
	walletLocks sync.Map
}

func New(logger *zap.Logger, baseURL, apiKey, entitySecret string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		entitySecret: entitySecret,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:       logger.With(zap.String("component", "circle.Client")),
		PollInterval: 2 * time.Second,
	}
}

func (c *Client) walletLock(walletID string) *sync.Mutex {
	l, _ := c.walletLocks.LoadOrStore(walletID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// do runs one API call. Network failures and 5xx responses are wrapped in
// ErrGatewayUnavailable so polling loops can absorb them; 4xx responses
// are definitive and come back verbatim.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling %s %s payload: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", types.ErrGatewayUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s response: %v", types.ErrGatewayUnavailable, method, path, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s %s responded %d", types.ErrGatewayUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s responded %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshalling %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// SubmitContractCall asks the provider to sign and broadcast a contract
// call from the given wallet and returns the provider's transaction id.
func (c *Client) SubmitContractCall(ctx context.Context, walletID, contractAddress, functionSignature string, args []interface{}, feeLevel string) (string, error) {
	lock := c.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	payload := contractExecutionRequest{
		IdempotencyKey:         uuid.New().String(),
		WalletID:               walletID,
		ContractAddress:        contractAddress,
		ABIFunctionSignature:   functionSignature,
		ABIParameters:          args,
		Fee:                    levelFee(feeLevel),
		EntitySecretCiphertext: c.entitySecret,
	}

	var resp transactionEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/w3s/developer/transactions/contractExecution", payload, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("contract execution response carried no transaction id")
	}

	c.logger.Info("submitted contract call",
		zap.String("walletId", walletID),
		zap.String("contract", contractAddress),
		zap.String("function", functionSignature),
		zap.String("transactionId", resp.Data.ID))
	return resp.Data.ID, nil
}

// CreateTransfer submits a plain single-chain token transfer (MEDIUM fee
// tier, no bridge orchestration involved).
func (c *Client) CreateTransfer(ctx context.Context, walletID, tokenID, destinationAddress, amount string) (string, error) {
	lock := c.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	payload := transferRequest{
		IdempotencyKey:         uuid.New().String(),
		WalletID:               walletID,
		TokenID:                tokenID,
		DestinationAddress:     destinationAddress,
		Amounts:                []string{amount},
		Fee:                    levelFee(FeeLevelMedium),
		EntitySecretCiphertext: c.entitySecret,
	}

	var resp transactionEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/w3s/developer/transactions/transfer", payload, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// GetTransaction fetches the current state of a submitted transaction.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	var resp getTransactionEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/w3s/transactions/"+transactionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Transaction, nil
}

// AwaitConfirmation polls a transaction until it leaves the pending
// state. FAILED yields a TransactionFailedError and is not retried here;
// gateway outages are absorbed and polled through, while definitive
// rejections (an unknown transaction id) surface immediately. No overall
// bound is imposed, callers cancel through ctx.
func (c *Client) AwaitConfirmation(ctx context.Context, transactionID string) (*Transaction, error) {
	for {
		tx, err := c.GetTransaction(ctx, transactionID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !errors.Is(err, types.ErrGatewayUnavailable) {
				return nil, err
			}
			c.logger.Warn("transaction poll failed, retrying",
				zap.String("transactionId", transactionID),
				zap.Error(err))
		case tx.State == TxStateFailed:
			return nil, &types.TransactionFailedError{TransactionID: transactionID}
		case tx.State == TxStateConfirmed || tx.State == TxStateComplete:
			return tx, nil
		default:
			c.logger.Debug("transaction not terminal yet",
				zap.String("transactionId", transactionID),
				zap.String("state", tx.State))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

// ListWallets returns every wallet managed for this entity.
func (c *Client) ListWallets(ctx context.Context) ([]types.Wallet, error) {
	var resp walletsEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/w3s/wallets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Wallets, nil
}

// CreateWallet provisions a new SCA wallet on the given chain, creating a
// dedicated wallet set for it.
func (c *Client) CreateWallet(ctx context.Context, chain types.ChainID) (*types.Wallet, error) {
	var setResp walletSetEnvelope
	err := c.do(ctx, http.MethodPost, "/v1/w3s/developer/walletSets", walletSetRequest{
		IdempotencyKey:         uuid.New().String(),
		Name:                   fmt.Sprintf("%s Wallet Set", chain),
		EntitySecretCiphertext: c.entitySecret,
	}, &setResp)
	if err != nil {
		return nil, err
	}
	if setResp.Data.WalletSet.ID == "" {
		return nil, fmt.Errorf("wallet set response carried no id")
	}

	var resp walletsEnvelope
	err = c.do(ctx, http.MethodPost, "/v1/w3s/developer/wallets", createWalletsRequest{
		IdempotencyKey:         uuid.New().String(),
		WalletSetID:            setResp.Data.WalletSet.ID,
		Blockchains:            []types.ChainID{chain},
		AccountType:            "SCA",
		Count:                  1,
		EntitySecretCiphertext: c.entitySecret,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data.Wallets) == 0 {
		return nil, fmt.Errorf("wallet creation response carried no wallets")
	}

	c.logger.Info("created wallet",
		zap.String("chain", string(chain)),
		zap.String("walletId", resp.Data.Wallets[0].ID))
	return &resp.Data.Wallets[0], nil
}

// GetWalletBalances returns the token balances of one wallet.
func (c *Client) GetWalletBalances(ctx context.Context, walletID string) ([]TokenBalance, error) {
	var resp balancesEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/w3s/wallets/"+walletID+"/balances", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.TokenBalances, nil
}
