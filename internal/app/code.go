package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	defaultCodeLength = 6
	maxCodeAttempts   = 16
)

// GenerateCode returns a random alphanumeric session code of length n.
func GenerateCode(n int) (string, error) {
	if n <= 0 {
		n = defaultCodeLength
	}
	limit := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate session code: %w", err)
		}
		buf[i] = codeAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
