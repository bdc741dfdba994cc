package EVMRPC

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"gousdcbridge/types"
)

// topic of the MessageTransmitter's MessageSent(bytes) event
var messageSentTopic = crypto.Keccak256Hash([]byte("MessageSent(bytes)"))

var bytesArgs = func() abi.Arguments {
	t, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: t}}
}()

// Reader extracts bridge messages from confirmed burn transactions.
type Reader struct {
	logger *zap.Logger
}

func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger.With(zap.String("component", "EVMRPC.Reader"))}
}

// ExtractMessage fetches the receipt for a burn transaction and returns
// the MessageSent payload together with its keccak256 content hash, the
// key the attestation service attests against. A burn receipt without
// the event is unrecoverable and surfaces ErrMessageEventNotFound.
func (r *Reader) ExtractMessage(ctx context.Context, chain types.ChainID, txHash string) (string, string, error) {
	receipt, err := WithClient(chain, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, common.HexToHash(txHash))
	})
	if err != nil {
		r.logger.Warn("receipt fetch failed",
			zap.String("chain", string(chain)),
			zap.String("txHash", txHash),
			zap.Error(err))
		return "", "", fmt.Errorf("fetching receipt for %s: %w", txHash, err)
	}

	messageBytes, messageHash, err := MessageFromLogs(receipt.Logs)
	if err != nil {
		return "", "", err
	}

	r.logger.Info("extracted bridge message",
		zap.String("txHash", txHash),
		zap.String("messageHash", messageHash))
	return messageBytes, messageHash, nil
}

// MessageFromLogs scans receipt logs for the MessageSent(bytes) event and
// decodes its single bytes parameter. Both return values are 0x-prefixed
// hex strings.
func MessageFromLogs(logs []*ethtypes.Log) (string, string, error) {
	for _, l := range logs {
		if len(l.Topics) == 0 || l.Topics[0] != messageSentTopic {
			continue
		}

		vals, err := bytesArgs.Unpack(l.Data)
		if err != nil {
			return "", "", fmt.Errorf("decoding MessageSent payload: %w", err)
		}
		msg, ok := vals[0].([]byte)
		if !ok {
			return "", "", fmt.Errorf("decoding MessageSent payload: unexpected type %T", vals[0])
		}

		return hexutil.Encode(msg), crypto.Keccak256Hash(msg).Hex(), nil
	}

	return "", "", types.ErrMessageEventNotFound
}
