// Package jwt выпускает и проверяет access токены операторов
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/livedesk/internal/models"
)

const issuer = "livedesk"

// ErrInvalidToken токен не подписан этим сервером, истек или поврежден
var ErrInvalidToken = errors.New("invalid token")

// Claims представляет JWT claims access токена.
// RegisteredClaims.ID (jti) используется для отзыва токена при logout.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Service подписывает токены HMAC-SHA256 секретом сервера
type Service struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewService создает сервис токенов
func NewService(secret []byte, ttl time.Duration) *Service {
	return &Service{
		now:    time.Now,
		secret: secret,
		ttl:    ttl,
	}
}

// GenerateAccessToken создает новый JWT access token для пользователя.
// Возвращает токен и время его жизни в секундах.
func (s *Service) GenerateAccessToken(user *models.User) (string, int64, error) {
	now := s.now()

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		TenantID: user.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, int64(s.ttl.Seconds()), nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.TenantID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}

	return claims, nil
}
