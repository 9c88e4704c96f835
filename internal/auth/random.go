package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	inviteAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewSecret returns a 256-bit random secret, URL-safe base64 encoded.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewInviteCode returns a 6 character upper-case alphanumeric code.
func NewInviteCode() (string, error) {
	return randomString(inviteAlphabet, 6)
}

// NewUsername returns a generated login name of the form user_xxxxxx.
func NewUsername() (string, error) {
	s, err := randomString(usernameAlphabet, 6)
	if err != nil {
		return "", err
	}
	return "user_" + s, nil
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating random string: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
