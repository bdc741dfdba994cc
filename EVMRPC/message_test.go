package EVMRPC

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gousdcbridge/types"
)

func messageSentLog(t *testing.T, payload []byte) *ethtypes.Log {
	t.Helper()
	data, err := bytesArgs.Pack(payload)
	require.NoError(t, err)
	return &ethtypes.Log{
		Topics: []common.Hash{messageSentTopic},
		Data:   data,
	}
}

func TestMessageFromLogs(t *testing.T) {
	payload := []byte("cctp message payload")

	// unrelated transfer log first, the scanner must skip it
	unrelated := &ethtypes.Log{
		Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))},
	}

	msg, hash, err := MessageFromLogs([]*ethtypes.Log{unrelated, messageSentLog(t, payload)})
	require.NoError(t, err)

	assert.Equal(t, hexutil.Encode(payload), msg)
	assert.Equal(t, crypto.Keccak256Hash(payload).Hex(), hash)
}

func TestMessageFromLogsNotFound(t *testing.T) {
	_, _, err := MessageFromLogs([]*ethtypes.Log{
		{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
		{},
	})
	assert.ErrorIs(t, err, types.ErrMessageEventNotFound)
}

func TestEncodeDestination(t *testing.T) {
	got, err := EncodeDestination("0xAbC123")
	require.NoError(t, err)

	assert.Len(t, got, 66)
	assert.Equal(t, strings.ToLower(got), got)
	assert.True(t, strings.HasPrefix(got, "0x"))
	assert.True(t, strings.HasSuffix(got, "abc123"))
	assert.Equal(t, "0x"+strings.Repeat("0", 58)+"abc123", got)
}

func TestEncodeDestinationFullWidth(t *testing.T) {
	got, err := EncodeDestination(strings.Repeat("f", 64))
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("f", 64), got)
}

func TestEncodeDestinationInvalid(t *testing.T) {
	testCases := []string{
		"0x" + strings.Repeat("f", 65), // overflows bytes32
		"0xzz123",
		"",
		"0x",
	}
	for _, in := range testCases {
		t.Run(in, func(t *testing.T) {
			_, err := EncodeDestination(in)
			assert.ErrorIs(t, err, types.ErrInvalidAddress)
		})
	}
}
