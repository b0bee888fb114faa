package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Очередь исходящих сообщений соединения
	sendBuffer = 256
)

// Send pings to peer with this period. Must be less than pongWait.
var pingPeriod = (pongWait * 9) / 10

// conn websocket соединение подписчика.
// Читает только readPump, пишет только writePump.
type conn struct {
	hub      *Hub
	ws       *websocket.Conn
	logger   *slog.Logger
	send     chan api.Message
	done     chan struct{}
	tenantID string
	stopOnce sync.Once
}

func newConn(hub *Hub, ws *websocket.Conn, logger *slog.Logger, tenantID string) *conn {
	return &conn{
		hub:      hub,
		ws:       ws,
		logger:   logger,
		send:     make(chan api.Message, sendBuffer),
		done:     make(chan struct{}),
		tenantID: tenantID,
	}
}

// stop завершает обе горутины соединения. Безопасно вызывать повторно.
func (c *conn) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// trySend ставит сообщение в очередь без ожидания.
// false означает, что очередь переполнена.
func (c *conn) trySend(msg api.Message) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// enqueue ждет места в очереди, пока соединение живо
func (c *conn) enqueue(msg api.Message) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.stop()
		c.hub.wg.Done()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Websocket connection closed", "error", err)
			} else {
				c.logger.Debug("Websocket connection closed")
			}
			return
		}

		var msg api.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Failed to decode websocket message", "error", err)
			c.sendError("", "invalid_message", "message must be a JSON object")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *conn) handleMessage(msg api.Message) {
	switch msg.Type {
	case api.TypeSubscribe:
		collection, ok := c.collectionOf(msg)
		if !ok {
			return
		}
		if c.hub.subscribe(c, collection, api.Message{ID: msg.ID, Type: api.TypeSubscribeAck}) {
			c.logger.Info("Subscribed to collection", "collection", collection, "subscription_id", msg.ID)
		}
	case api.TypeUnsubscribe:
		collection, ok := c.collectionOf(msg)
		if !ok {
			return
		}
		c.hub.unsubscribeConn(c, collection)
		c.enqueue(api.Message{ID: msg.ID, Type: api.TypeUnsubscribeAck})
		c.logger.Info("Unsubscribed from collection", "collection", collection, "subscription_id", msg.ID)
	default:
		c.sendError(msg.ID, "unknown_type", "unsupported message type "+msg.Type)
	}
}

func (c *conn) collectionOf(msg api.Message) (models.Collection, bool) {
	var payload api.SubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendError(msg.ID, "invalid_payload", "invalid subscribe payload")
		return "", false
	}

	collection := models.Collection(payload.Collection)
	if !collection.IsValid() {
		c.sendError(msg.ID, "invalid_collection", "unknown collection "+payload.Collection)
		return "", false
	}
	return collection, true
}

func (c *conn) sendError(id, code, message string) {
	payload, err := json.Marshal(api.ErrorPayload{Code: code, Message: message})
	if err != nil {
		c.logger.Error("Failed to marshal error payload", "error", err)
		return
	}
	c.enqueue(api.Message{ID: id, Type: api.TypeError, Payload: payload})
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("Failed to write websocket message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			err := c.ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug("Failed to send close frame", "error", err)
			}
			return
		}
	}
}
