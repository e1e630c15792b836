package wallet

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// AddressSize is the number of digest bytes kept in an address.
const AddressSize = 20

// Wallet is an address issued to a user. The ledger itself accepts any
// non-empty address string; wallets are a convenience for clients.
type Wallet struct {
	Username  string            `json:"username"`
	Address   string            `json:"address"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New issues a fresh address for username.
func New(username string, now time.Time) (*Wallet, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return &Wallet{
		Username:  username,
		Address:   GenerateAddress(username, now),
		CreatedAt: now.UTC(),
	}, nil
}

// GenerateAddress derives a base58 address from the username, the time and
// a random salt, so repeated calls for the same user never collide.
func GenerateAddress(username string, now time.Time) string {
	seed := fmt.Sprintf("%s_%d_%s", username, now.UnixNano(), uuid.New().String())
	sum := sha256.Sum256([]byte(seed))
	return base58.Encode(sum[:AddressSize])
}

// IsAddress reports whether addr looks like an address from GenerateAddress.
func IsAddress(addr string) bool {
	raw, err := base58.Decode(addr)
	return err == nil && len(raw) == AddressSize
}

func (w *Wallet) String() string {
	return fmt.Sprintf("Wallet(%s, %s)", w.Username, w.Address)
}
