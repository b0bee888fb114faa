package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/livedesk/internal/client/api"
	"github.com/iudanet/livedesk/internal/client/storage"
	pkgapi "github.com/iudanet/livedesk/pkg/api"
)

// mockAuthStorage implements storage.AuthStorage for testing
type mockAuthStorage struct {
	data      *storage.AuthData
	saveErr   error
	getErr    error
	deleteErr error
}

func (m *mockAuthStorage) SaveAuth(ctx context.Context, auth *storage.AuthData) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	// Сохраняем копию данных
	saved := *auth
	m.data = &saved
	return nil
}

func (m *mockAuthStorage) GetAuth(ctx context.Context) (*storage.AuthData, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.data == nil {
		return nil, storage.ErrAuthNotFound
	}
	got := *m.data
	return &got, nil
}

func (m *mockAuthStorage) DeleteAuth(ctx context.Context) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.data == nil {
		return storage.ErrAuthNotFound
	}
	m.data = nil
	return nil
}

func (m *mockAuthStorage) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.data != nil, nil
}

func newTestService(t *testing.T, handler http.HandlerFunc, store storage.AuthStorage) *Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, api.NewClient(server.URL), store)
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc
}

func TestLogin(t *testing.T) {
	store := &mockAuthStorage{}
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "operator1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(pkgapi.ErrorResponse{Error: "unauthorized", Message: "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			AccessToken: "token",
			UserID:      "user-1",
			TenantID:    "tenant-1",
			ExpiresIn:   3600,
		})
	}, store)

	session, err := svc.Login(context.Background(), "alice", "operator1")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
	assert.Equal(t, "tenant-1", session.TenantID)
	assert.Equal(t, int64(1_700_003_600), session.ExpiresAt)
	assert.Equal(t, session, store.data)

	_, err = svc.Login(context.Background(), "alice", "wrong-pass")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestLogin_Validation(t *testing.T) {
	store := &mockAuthStorage{}
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server must not be called")
	}, store)

	_, err := svc.Login(context.Background(), "a", "operator1")
	assert.ErrorContains(t, err, "invalid username")

	_, err = svc.Login(context.Background(), "alice", "short")
	assert.ErrorContains(t, err, "invalid password")
	assert.Nil(t, store.data)
}

func TestLogin_SaveError(t *testing.T) {
	store := &mockAuthStorage{saveErr: errors.New("disk full")}
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{AccessToken: "token", ExpiresIn: 60})
	}, store)

	_, err := svc.Login(context.Background(), "alice", "operator1")
	assert.ErrorContains(t, err, "failed to save session")
}

func TestSession(t *testing.T) {
	tests := []struct {
		name    string
		store   *mockAuthStorage
		wantErr error
	}{
		{
			name:    "нет сессии",
			store:   &mockAuthStorage{},
			wantErr: ErrNotAuthenticated,
		},
		{
			name:    "сессия истекла",
			store:   &mockAuthStorage{data: &storage.AuthData{AccessToken: "t", ExpiresAt: 1_699_999_999}},
			wantErr: ErrSessionExpired,
		},
		{
			name:  "действующая сессия",
			store: &mockAuthStorage{data: &storage.AuthData{AccessToken: "t", ExpiresAt: 1_700_000_100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {}, tt.store)

			session, err := svc.Session(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "t", session.AccessToken)
		})
	}
}

func TestLogout(t *testing.T) {
	var gotAuth string
	store := &mockAuthStorage{data: &storage.AuthData{AccessToken: "token-1"}}
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}, store)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Nil(t, store.data)

	// Повторный выход без сессии
	assert.ErrorIs(t, svc.Logout(context.Background()), ErrNotAuthenticated)
}

func TestLogout_ServerUnavailable(t *testing.T) {
	store := &mockAuthStorage{data: &storage.AuthData{AccessToken: "token-1"}}
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, store)

	// Локальная сессия удаляется даже при ошибке сервера
	require.NoError(t, svc.Logout(context.Background()))
	assert.Nil(t, store.data)
}
