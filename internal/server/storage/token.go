package storage

import (
	"context"
	"time"
)

//go:generate moq -out token_mock.go . TokenStorage

// TokenStorage хранит отозванные при logout access токены до истечения их срока
type TokenStorage interface {
	// RevokeToken помечает токен отозванным. Повторный вызов не является ошибкой.
	RevokeToken(ctx context.Context, tokenHash string, expiresAt time.Time) error

	// IsTokenRevoked сообщает, был ли токен отозван
	IsTokenRevoked(ctx context.Context, tokenHash string) (bool, error)

	// DeleteExpiredTokens removes revocations of tokens that expired before now
	// Returns number of deleted tokens
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
