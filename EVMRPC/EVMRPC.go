package EVMRPC

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"gousdcbridge/config"
	"gousdcbridge/types"
)

// WithClient runs f against the chain's RPC endpoints in registry order
// until one succeeds. Public endpoints come and go, so every read goes
// through this failover.
func WithClient[T any](chain types.ChainID, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	cfg, err := config.ChainByID(chain)
	if err != nil {
		return res, err
	}

	for _, url := range cfg.RPCList {
		var client *ethclient.Client
		client, err = ethclient.Dial(url)
		if err != nil {
			err = fmt.Errorf("connecting to %s: %w", url, err)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
	}
	return
}
