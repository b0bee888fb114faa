package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/storage"
	"github.com/iudanet/livedesk/internal/validation"
	pkgapi "github.com/iudanet/livedesk/pkg/api"
)

var (
	// ErrNotAuthenticated нет сохраненной сессии
	ErrNotAuthenticated = errors.New("not authenticated, run login first")

	// ErrSessionExpired токен сохраненной сессии истек
	ErrSessionExpired = errors.New("session expired, run login again")
)

// Service предоставляет функции авторизации и хранит сессию оператора
type Service struct {
	apiClient *api.Client
	authStore storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(logger *slog.Logger, apiClient *api.Client, authStore storage.AuthStorage) *Service {
	return &Service{
		apiClient: apiClient,
		authStore: authStore,
		logger:    logger,
		now:       time.Now,
	}
}

// Login выполняет аутентификацию пользователя и сохраняет сессию
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	session := &storage.AuthData{
		Username:    username,
		UserID:      resp.UserID,
		TenantID:    resp.TenantID,
		AccessToken: resp.AccessToken,
		ServerURL:   s.apiClient.BaseURL(),
		ExpiresAt:   s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}

	if err := s.authStore.SaveAuth(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Logged in", "username", username, "tenant_id", resp.TenantID)
	return session, nil
}

// Session возвращает действующую сессию
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	session, err := s.authStore.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.Expired(s.now()) {
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Logout выполняет выход из системы
// Удаляет локальные данные авторизации и уведомляет сервер, если он доступен
func (s *Service) Logout(ctx context.Context) error {
	session, err := s.authStore.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	// Не прерываем выход, если сервер недоступен
	if logoutErr := s.apiClient.Logout(ctx, session.AccessToken); logoutErr != nil {
		s.logger.Warn("Failed to logout on server", "error", logoutErr)
	}

	if err := s.authStore.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}
