// Package token mints and screens the opaque bearer credentials agents
// authenticate with. A token is the "swb_" prefix plus 48 hex characters
// from crypto/rand; the prefix makes gateway credentials recognizable in
// config and logs without resolving them.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Prefix marks every credential minted by this gateway.
	Prefix = "swb_"

	randBytes = 24
)

// Mint generates a fresh token value.
func Mint() (string, error) {
	b := make([]byte, randBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return Prefix + hex.EncodeToString(b), nil
}

// WellFormed reports whether s is syntactically a gateway token. It says
// nothing about whether the token resolves to a live agent.
func WellFormed(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	body := s[len(Prefix):]
	if len(body) != randBytes*2 {
		return false
	}
	for _, r := range body {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// Equal compares two credential strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
