package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// EncodeHex re-encodes a hex string (optionally 0x prefixed) as base58.
func EncodeHex(hexStr string) (string, error) {
	if len(hexStr) >= 2 && hexStr[:2] == "0x" {
		hexStr = hexStr[2:]
	}

	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex string: %w", err)
	}

	return base58.Encode(raw), nil
}

// DecodeToHex decodes a base58 string to hex.
func DecodeToHex(base58Str string) (string, error) {
	raw, err := base58.Decode(base58Str)
	if err != nil {
		return "", fmt.Errorf("failed to decode base58 string: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("failed to decode base58 string")
	}

	return hex.EncodeToString(raw), nil
}
