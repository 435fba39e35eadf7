package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is enforced at registration. bcrypt itself caps input at
// 72 bytes.
const MinPasswordLen = 8

// HashPassword returns a bcrypt hash at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > 72 {
		return "", fmt.Errorf("password longer than 72 bytes")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
