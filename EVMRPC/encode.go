package EVMRPC

import (
	"fmt"
	"strings"

	"gousdcbridge/types"
)

// EncodeDestination packs an EVM address into the bytes32 mint recipient
// field of depositForBurn: lower-cased, 0x stripped, left-padded with
// zero nibbles to 64 hex characters. Returns ErrInvalidAddress if the
// stripped string would overflow the field or is not hex.
func EncodeDestination(address string) (string, error) {
	s := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))
	if len(s) == 0 || len(s) > 64 {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: %q", types.ErrInvalidAddress, address)
		}
	}
	return "0x" + strings.Repeat("0", 64-len(s)) + s, nil
}
