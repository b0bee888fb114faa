package handlers

import (
	"context"
	"time"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity оператор, от имени которого выполняется запрос.
// Заполняется auth middleware из claims access токена.
type Identity struct {
	ExpiresAt time.Time // ExpiresAt время истечения токена
	UserID    string
	Username  string
	TenantID  string
	TokenID   string // TokenID jti токена, по нему токен отзывается
}

// WithIdentity сохраняет оператора в контексте запроса
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext извлекает оператора из контекста
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != "" && id.TenantID != ""
}
