package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	w, err := New("  alice ", now)
	require.NoError(t, err)

	assert.Equal(t, "alice", w.Username)
	assert.True(t, IsAddress(w.Address))
	assert.Equal(t, time.UTC, w.CreatedAt.Location())
	assert.Contains(t, w.String(), w.Address)

	_, err = New("   ", now)
	assert.Error(t, err)
}

func TestGenerateAddress_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		addr := GenerateAddress("bob", now)
		_, dup := seen[addr]
		require.False(t, dup, "address %s generated twice", addr)
		seen[addr] = struct{}{}
	}
}

func TestIsAddress(t *testing.T) {
	assert.False(t, IsAddress(""))
	assert.False(t, IsAddress("alice"))
	assert.False(t, IsAddress("0OIl"))
}

func TestHexRoundTrip(t *testing.T) {
	enc, err := EncodeHex("0x00ff10")
	require.NoError(t, err)

	dec, err := DecodeToHex(enc)
	require.NoError(t, err)
	assert.Equal(t, "00ff10", dec)

	_, err = EncodeHex("zz")
	assert.Error(t, err)
	_, err = DecodeToHex("0OIl")
	assert.Error(t, err)
}
