package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/iudanet/livedesk/internal/models"
	"github.com/iudanet/livedesk/pkg/api"
)

// ErrHubClosed hub остановлен и не принимает соединения
var ErrHubClosed = errors.New("realtime hub closed")

// Recorder учитывает события и подписки в метриках
type Recorder interface {
	EventPublished(collection, action string)
	PublishFailed(collection string)
	EventDropped(collection string)
	SubscriberAdded(collection string)
	SubscriberRemoved(collection string)
}

// topic ключ подписки: события тенанта не попадают к другим тенантам
type topic struct {
	tenantID   string
	collection models.Collection
}

// Hub держит websocket подписчиков и раздает им события брокера
type Hub struct {
	broker      Broker
	recorder    Recorder
	logger      *slog.Logger
	seq         *Sequencer
	topics      map[topic]map[*conn]struct{}
	conns       map[*conn]struct{}
	unsubscribe func()
	upgrader    websocket.Upgrader
	wg          sync.WaitGroup
	mu          sync.RWMutex
	started     bool
	closed      bool
}

// NewHub создает hub поверх брокера
func NewHub(logger *slog.Logger, broker Broker, recorder Recorder) *Hub {
	return &Hub{
		broker:   broker,
		recorder: recorder,
		logger:   logger,
		seq:      NewSequencer(),
		topics:   make(map[topic]map[*conn]struct{}),
		conns:    make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

// Start подписывает hub на события брокера
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if h.started {
		return nil
	}

	unsubscribe, err := h.broker.Subscribe(h.dispatch)
	if err != nil {
		return fmt.Errorf("failed to subscribe hub to broker: %w", err)
	}
	h.unsubscribe = unsubscribe
	h.started = true

	h.logger.Info("Realtime hub started", "node_id", h.seq.NodeID())
	return nil
}

// Publish присваивает событию номер и отправляет его в брокер.
// Подписчики получают событие только через брокер, в том числе на этом экземпляре.
func (h *Hub) Publish(ctx context.Context, event api.Event) error {
	event.Seq = h.seq.Next()

	if err := h.broker.Publish(ctx, event); err != nil {
		h.recorder.PublishFailed(event.Collection)
		return fmt.Errorf("failed to publish %s event: %w", event.Collection, err)
	}

	h.recorder.EventPublished(event.Collection, event.Action)
	return nil
}

// dispatch раздает событие подписчикам его тенанта и коллекции
func (h *Hub) dispatch(event api.Event) {
	h.seq.Observe(event.Seq)

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", "error", err)
		return
	}
	msg := api.Message{Type: api.TypeEvent, Payload: payload}

	key := topic{tenantID: event.TenantID, collection: models.Collection(event.Collection)}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.topics[key] {
		if c.trySend(msg) {
			continue
		}
		// Медленный подписчик отключается, клиент переподпишется и перечитает страницу
		h.recorder.EventDropped(event.Collection)
		c.logger.Warn("Subscriber queue is full, closing connection", "collection", event.Collection)
		c.stop()
	}
}

// Subscribers возвращает число подписок коллекции тенанта
func (h *Hub) Subscribers(tenantID string, collection models.Collection) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic{tenantID: tenantID, collection: collection}])
}

// ServeWS переводит запрос в websocket соединение пользователя тенанта.
// Аутентификация выполняется до вызова.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tenantID, userID string) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "realtime is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту ошибкой
		h.logger.Warn("Failed to upgrade websocket", "error", err)
		return
	}

	c := newConn(h, ws, h.logger.With("tenant_id", tenantID, "user_id", userID), tenantID)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ws.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	c.logger.Debug("Websocket connection established")
}

// subscribe добавляет соединение в подписчики коллекции и ставит ack в очередь.
// Под блокировкой dispatch не может вставить событие раньше ack.
func (h *Hub) subscribe(c *conn, collection models.Collection, ack api.Message) bool {
	key := topic{tenantID: c.tenantID, collection: collection}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[key]
	if !ok {
		subs = make(map[*conn]struct{})
		h.topics[key] = subs
	}
	_, exists := subs[c]
	if !exists {
		subs[c] = struct{}{}
		h.recorder.SubscriberAdded(string(collection))
	}

	if !c.trySend(ack) {
		c.logger.Warn("Subscriber queue is full, closing connection", "collection", collection)
		c.stop()
	}
	return !exists
}

func (h *Hub) unsubscribeConn(c *conn, collection models.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, collection)
}

func (h *Hub) removeLocked(c *conn, collection models.Collection) {
	key := topic{tenantID: c.tenantID, collection: collection}
	subs, ok := h.topics[key]
	if !ok {
		return
	}
	if _, exists := subs[c]; !exists {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.topics, key)
	}
	h.recorder.SubscriberRemoved(string(collection))
}

// unregister удаляет соединение и все его подписки
func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, collection := range models.Collections {
		h.removeLocked(c, collection)
	}
	delete(h.conns, c)
}

// Close отключает всех подписчиков и отписывает hub от брокера.
// Возвращается после завершения горутин всех соединений.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	for c := range h.conns {
		c.stop()
	}
	h.mu.Unlock()

	h.wg.Wait()
	h.logger.Info("Realtime hub stopped")
	return nil
}

// sameOrigin пропускает клиентов без Origin (CLI) и запросы с того же хоста
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	originHost := strings.Split(u.Host, ":")[0]
	requestHost := strings.Split(r.Host, ":")[0]
	return strings.EqualFold(originHost, requestHost)
}
