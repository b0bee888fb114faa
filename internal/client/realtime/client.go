// Package realtime подписка клиента на изменения коллекции через websocket.
//
// Подписка принадлежит вызывающему: Subscribe открывает соединение,
// Close освобождает его. Глобального реестра соединений нет.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

const (
	// Время на запись управляющего сообщения
	writeWait = 10 * time.Second

	// Время ожидания следующего ping от сервера
	pingWait = 90 * time.Second

	// Время ожидания subscribe_ack
	handshakeTimeout = 10 * time.Second

	// Максимальный размер входящего сообщения
	maxMessageSize = 64 * 1024

	eventBuffer = 64
)

var (
	// ErrSubscriptionDropped соединение подписки закрылось не по инициативе клиента
	ErrSubscriptionDropped = errors.New("subscription dropped")

	// ErrSubscribeRejected сервер ответил ошибкой на subscribe
	ErrSubscribeRejected = errors.New("subscribe rejected")
)

// Client открывает подписки от имени одного пользователя и тенанта
type Client struct {
	dialer      *websocket.Dialer
	logger      *slog.Logger
	baseURL     string
	accessToken string
	tenantID    string
}

// NewClient создает realtime клиент. baseURL в формате http(s)://host:port.
func NewClient(logger *slog.Logger, baseURL, accessToken, tenantID string) *Client {
	return &Client{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger:      logger,
		baseURL:     baseURL,
		accessToken: accessToken,
		tenantID:    tenantID,
	}
}

// Subscribe открывает канал событий коллекции текущего тенанта.
// Возвращается после подтверждения подписки сервером.
func (c *Client) Subscribe(ctx context.Context, collection models.Collection) (*Subscription, error) {
	wsURL, err := c.realtimeURL(collection)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.accessToken)

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial realtime (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial realtime: %w", err)
	}

	sub := &Subscription{
		conn:       conn,
		logger:     c.logger.With("collection", collection),
		events:     make(chan api.Event, eventBuffer),
		done:       make(chan struct{}),
		collection: collection,
		tenantID:   c.tenantID,
		id:         uuid.New().String(),
	}

	if err := sub.handshake(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	sub.wg.Add(1)
	go sub.readPump()

	sub.logger.Info("Subscribed to realtime events", "subscription_id", sub.id)
	return sub, nil
}

func (c *Client) realtimeURL(collection models.Collection) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/realtime"
	u.RawQuery = url.Values{"collection": []string{string(collection)}}.Encode()
	return u.String(), nil
}

// Subscription открытая подписка на коллекцию.
// События доставляются в порядке получения через Events.
type Subscription struct {
	err        error
	conn       *websocket.Conn
	logger     *slog.Logger
	events     chan api.Event
	done       chan struct{}
	collection models.Collection
	tenantID   string
	id         string
	wg         sync.WaitGroup
	mu         sync.Mutex
	closeOnce  sync.Once
}

// Events канал событий. Закрывается, когда подписка завершена;
// причину возвращает Err.
func (s *Subscription) Events() <-chan api.Event {
	return s.events
}

// Err возвращает причину завершения подписки.
// nil, если подписка активна или закрыта через Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close освобождает подписку и дожидается завершения чтения
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "unsubscribe")
		// Ошибка записи close-фрейма не важна: соединение закрывается в любом случае
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = s.conn.Close()
	})
	s.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close subscription: %w", err)
	}
	return nil
}

func (s *Subscription) handshake(ctx context.Context) error {
	payload, err := json.Marshal(api.SubscribePayload{Collection: string(s.collection)})
	if err != nil {
		return fmt.Errorf("failed to marshal subscribe payload: %w", err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetWriteDeadline(deadline)
	_ = s.conn.SetReadDeadline(deadline)

	// Отмена ctx закрывает соединение и прерывает ожидание ack
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	if err := s.conn.WriteJSON(api.Message{ID: s.id, Type: api.TypeSubscribe, Payload: payload}); err != nil {
		return handshakeError(ctx, "failed to send subscribe", err)
	}

	for {
		var msg api.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return handshakeError(ctx, "failed to read subscribe ack", err)
		}

		switch msg.Type {
		case api.TypeSubscribeAck:
			if msg.ID != s.id {
				continue
			}
			if !stop() {
				// ctx отменен одновременно с ack, соединение уже закрывается
				return handshakeError(ctx, "subscribe canceled", net.ErrClosed)
			}
			_ = s.conn.SetWriteDeadline(time.Time{})
			return nil
		case api.TypeError:
			var e api.ErrorPayload
			_ = json.Unmarshal(msg.Payload, &e)
			return fmt.Errorf("%w: %s: %s", ErrSubscribeRejected, e.Code, e.Message)
		}
	}
}

func handshakeError(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", msg, ctxErr)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// readPump читает сообщения сервера до ошибки соединения или Close
func (s *Subscription) readPump() {
	defer s.wg.Done()
	defer close(s.events)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pingWait))
	s.conn.SetPingHandler(func(appData string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pingWait))
		err := s.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		var msg api.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("Failed to decode realtime message", "error", err)
			continue
		}

		switch msg.Type {
		case api.TypeEvent:
			var event api.Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				s.logger.Warn("Failed to decode realtime event", "error", err)
				continue
			}
			if event.Collection != string(s.collection) {
				continue
			}
			if s.tenantID != "" && event.TenantID != s.tenantID {
				s.logger.Warn("Dropping event of foreign tenant", "tenant_id", event.TenantID)
				continue
			}

			select {
			case s.events <- event:
			case <-s.done:
				return
			}
		case api.TypeError:
			var e api.ErrorPayload
			_ = json.Unmarshal(msg.Payload, &e)
			s.logger.Error("Realtime server error", "code", e.Code, "message", e.Message)
		case api.TypeUnsubscribeAck:
			s.finish(fmt.Errorf("%w: unsubscribed by server", ErrSubscriptionDropped))
			return
		}
	}
}

func (s *Subscription) finish(cause error) {
	select {
	case <-s.done:
		// Закрыто клиентом
		return
	default:
	}

	if !errors.Is(cause, ErrSubscriptionDropped) {
		cause = fmt.Errorf("%w: %w", ErrSubscriptionDropped, cause)
	}

	s.mu.Lock()
	s.err = cause
	s.mu.Unlock()

	s.logger.Warn("Realtime subscription dropped", "error", cause)
}
