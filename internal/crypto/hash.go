package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashToken хеширует идентификатор токена с использованием SHA256.
// В базе хранится только хеш отозванного токена.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}

	hash := sha256.Sum256([]byte(token))

	// Возвращаем hex-encoded строку
	return hex.EncodeToString(hash[:]), nil
}
