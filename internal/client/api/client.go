package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

var (
	// ErrNetwork запрос не дошел до сервера или ответ не был прочитан
	ErrNetwork = errors.New("network failure")

	// ErrUnauthorized сервер отклонил токен доступа
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError ответ сервера со статусом вне 2xx
type HTTPError struct {
	Message    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is позволяет проверять 401 через errors.Is(err, ErrUnauthorized)
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL возвращает адрес сервера
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Logout завершает сессию на сервере
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// ListPage запрашивает страницу коллекции с фильтром поиска
func (c *Client) ListPage(ctx context.Context, accessToken string, collection models.Collection, req api.PageRequest) (*api.PageResponse, error) {
	query := url.Values{}
	query.Set("searchParam", req.SearchParam)
	query.Set("pageNumber", strconv.Itoa(req.PageNumber))

	var resp api.PageResponse
	path := fmt.Sprintf("/api/v1/%s?%s", collection, query.Encode())
	if err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("list %s request failed: %w", collection, err)
	}
	return &resp, nil
}

// CreateRecord создает запись и возвращает ее в "плоском" виде
func (c *Client) CreateRecord(ctx context.Context, accessToken string, collection models.Collection, req api.RecordRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	path := fmt.Sprintf("/api/v1/%s", collection)
	if err := c.doRequest(ctx, http.MethodPost, path, accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("create %s request failed: %w", collection, err)
	}
	return resp, nil
}

// UpdateRecord изменяет запись
func (c *Client) UpdateRecord(ctx context.Context, accessToken string, collection models.Collection, id int64, req api.RecordRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	path := fmt.Sprintf("/api/v1/%s/%d", collection, id)
	if err := c.doRequest(ctx, http.MethodPut, path, accessToken, req, &resp); err != nil {
		return nil, fmt.Errorf("update %s request failed: %w", collection, err)
	}
	return resp, nil
}

// DeleteRecord удаляет запись
func (c *Client) DeleteRecord(ctx context.Context, accessToken string, collection models.Collection, id int64) error {
	path := fmt.Sprintf("/api/v1/%s/%d", collection, id)
	if err := c.doRequest(ctx, http.MethodDelete, path, accessToken, nil, nil); err != nil {
		return fmt.Errorf("delete %s request failed: %w", collection, err)
	}
	return nil
}

// SendMessage отправляет сообщение в чат и возвращает обновленный чат
func (c *Client) SendMessage(ctx context.Context, accessToken string, chatID int64, text string) (json.RawMessage, error) {
	var resp json.RawMessage
	path := fmt.Sprintf("/api/v1/chats/%d/messages", chatID)
	if err := c.doRequest(ctx, http.MethodPost, path, accessToken, api.MessageRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("send message request failed: %w", err)
	}
	return resp, nil
}

// ReorderTags сохраняет новый порядок тегов
func (c *Client) ReorderTags(ctx context.Context, accessToken string, tags []api.TagOrder) error {
	req := api.ReorderRequest{Tags: tags}
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/tags/reorder", accessToken, req, nil); err != nil {
		return fmt.Errorf("reorder tags request failed: %w", err)
	}
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result any) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			httpErr.Message = errResp.Message
			if httpErr.Message == "" {
				httpErr.Message = errResp.Error
			}
		}
		return httpErr
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
