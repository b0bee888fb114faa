package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/iudanet/livedesk/internal/crypto"
	"github.com/iudanet/livedesk/internal/server/handlers"
	"github.com/iudanet/livedesk/internal/server/jwt"
	"github.com/iudanet/livedesk/internal/server/storage"
	"github.com/iudanet/livedesk/pkg/api"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// Токен берется из заголовка Authorization, для websocket также из параметра token.
func AuthMiddleware(logger *slog.Logger, tokens *jwt.Service, revoked storage.TokenStorage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, ok := extractToken(r)
			if !ok {
				logger.Warn("Missing or malformed access token", "path", r.URL.Path)
				writeError(w, "missing token", http.StatusUnauthorized)
				return
			}

			// Валидируем токен
			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			tokenHash, err := crypto.HashToken(claims.ID)
			if err != nil {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			isRevoked, err := revoked.IsTokenRevoked(ctx, tokenHash)
			if err != nil {
				logger.Error("Failed to check token revocation", "error", err)
				writeError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if isRevoked {
				logger.Warn("Revoked access token used", "user_id", claims.UserID)
				writeError(w, "token revoked", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx = handlers.WithIdentity(ctx, handlers.Identity{
				UserID:    claims.UserID,
				Username:  claims.Username,
				TenantID:  claims.TenantID,
				TokenID:   claims.ID,
				ExpiresAt: claims.ExpiresAt.Time,
			})

			logger.Debug("User authenticated", "user_id", claims.UserID, "tenant_id", claims.TenantID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken ожидает формат "Bearer <token>".
// Браузерный websocket не умеет ставить заголовки, поэтому для upgrade допустим ?token=.
func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if websocket.IsWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// writeError отвечает ошибкой в формате api.ErrorResponse
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
