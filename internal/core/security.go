// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CompareSecret hashes both sides first so the comparison time does not
// depend on the length of the presented value.
func CompareSecret(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare(
		[]byte(HashToken(presented)),
		[]byte(HashToken(expected)),
	) == 1
}
