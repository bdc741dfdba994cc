package circle

import "gousdcbridge/types"

// Fee priority tiers. Bridge legs (approve, burn, mint) ride HIGH so the
// on-chain work keeps pace with attestation timing; plain token transfers
// use MEDIUM.
const (
	FeeLevelHigh   = "HIGH"
	FeeLevelMedium = "MEDIUM"
)

// Custody transaction states. Anything else observed while polling is a
// non-terminal state and is polled through.
const (
	TxStateConfirmed = "CONFIRMED"
	TxStateComplete  = "COMPLETE"
	TxStateFailed    = "FAILED"
)

// Transaction is the custody provider's view of a submitted transaction.
type Transaction struct {
	ID     string `json:"id"`
	TxHash string `json:"txHash"`
	State  string `json:"state"`
}

// TokenBalance is one asset balance of a custodial wallet.
type TokenBalance struct {
	Token struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
	} `json:"token"`
	Amount string `json:"amount"`
}

type feeConfig struct {
	FeeLevel string `json:"feeLevel"`
}

type fee struct {
	Type   string    `json:"type"`
	Config feeConfig `json:"config"`
}

func levelFee(level string) fee {
	return fee{Type: "level", Config: feeConfig{FeeLevel: level}}
}

type contractExecutionRequest struct {
	IdempotencyKey         string        `json:"idempotencyKey"`
	WalletID               string        `json:"walletId"`
	ContractAddress        string        `json:"contractAddress"`
	ABIFunctionSignature   string        `json:"abiFunctionSignature"`
	ABIParameters          []interface{} `json:"abiParameters"`
	Fee                    fee           `json:"fee"`
	EntitySecretCiphertext string        `json:"entitySecretCiphertext,omitempty"`
}

type transferRequest struct {
	IdempotencyKey         string   `json:"idempotencyKey"`
	WalletID               string   `json:"walletId"`
	TokenID                string   `json:"tokenId"`
	DestinationAddress     string   `json:"destinationAddress"`
	Amounts                []string `json:"amounts"`
	Fee                    fee      `json:"fee"`
	EntitySecretCiphertext string   `json:"entitySecretCiphertext,omitempty"`
}

type walletSetRequest struct {
	IdempotencyKey         string `json:"idempotencyKey"`
	Name                   string `json:"name"`
	EntitySecretCiphertext string `json:"entitySecretCiphertext,omitempty"`
}

type createWalletsRequest struct {
	IdempotencyKey         string          `json:"idempotencyKey"`
	WalletSetID            string          `json:"walletSetId"`
	Blockchains            []types.ChainID `json:"blockchains"`
	AccountType            string          `json:"accountType"`
	Count                  int             `json:"count"`
	EntitySecretCiphertext string          `json:"entitySecretCiphertext,omitempty"`
}

type transactionData struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type transactionEnvelope struct {
	Data transactionData `json:"data"`
}

type getTransactionEnvelope struct {
	Data struct {
		Transaction Transaction `json:"transaction"`
	} `json:"data"`
}

type walletsEnvelope struct {
	Data struct {
		Wallets []types.Wallet `json:"wallets"`
	} `json:"data"`
}

type walletSetEnvelope struct {
	Data struct {
		WalletSet struct {
			ID string `json:"id"`
		} `json:"walletSet"`
	} `json:"data"`
}

type balancesEnvelope struct {
	Data struct {
		TokenBalances []TokenBalance `json:"tokenBalances"`
	} `json:"data"`
}
