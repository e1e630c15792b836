package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

var nonceMarker = []byte(`,"nonce":0,"previous_hash":`)

// splitCanonical serializes the block once with a zero nonce and splits the
// bytes around the nonce value. Top-level keys are sorted, so the last
// marker is always the block's own nonce, never one inside the payload.
func (b *Block) splitCanonical() (prefix, suffix []byte, err error) {
	saved := b.Nonce
	b.Nonce = 0
	raw, err := b.canonicalBytes()
	b.Nonce = saved
	if err != nil {
		return nil, nil, err
	}
	i := bytes.LastIndex(raw, nonceMarker)
	if i < 0 {
		return nil, nil, fmt.Errorf("serialize block %d: nonce field not found", b.Index)
	}
	cut := i + len(`,"nonce":`)
	prefix = append([]byte(nil), raw[:cut]...)
	suffix = append([]byte(nil), raw[cut+1:]...)
	return prefix, suffix, nil
}

func hashWithNonce(prefix, suffix []byte, nonce uint64) string {
	h := sha256.New()
	h.Write(prefix)
	var buf [20]byte
	h.Write(strconv.AppendUint(buf[:0], nonce, 10))
	h.Write(suffix)
	return hex.EncodeToString(h.Sum(nil))
}
