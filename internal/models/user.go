package models

import "time"

// User представляет оператора консоли
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	UpdatedAt    time.Time `json:"updated_at"`    // время последнего обновления
	LastLogin    time.Time `json:"last_login"`    // время последнего входа
	ID           string    `json:"id"`            // UUID пользователя
	TenantID     string    `json:"tenant_id"`     // компания пользователя
	Username     string    `json:"username"`      // уникальный username
	PasswordHash string    `json:"password_hash"` // argon2id хеш пароля
}
